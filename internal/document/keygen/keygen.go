// Package keygen derives store keys from submitted documents.
//
// A key is the document's first top-level field name followed by the
// submission time: "<field>_YYYYMMDD_HHMMSS". The first field is taken from
// the request body in source order, read straight off the JSON token stream,
// so the result never depends on Go map iteration.
package keygen

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jsonstash/jsonstash/internal/document"
)

// TimestampLayout is the key timestamp format, second precision.
const TimestampLayout = "20060102_150405"

// Generator builds keys. The zero value uses local wall-clock time.
type Generator struct {
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
	// UTC formats the timestamp in UTC instead of the local zone.
	UTC bool
}

// New returns a Generator using the system clock.
func New(utc bool) *Generator {
	return &Generator{Now: time.Now, UTC: utc}
}

// Generate returns the key for raw, or document.ErrInvalidDocument when raw
// is not a JSON object with at least one field.
func (g *Generator) Generate(raw []byte) (string, error) {
	name, err := FirstField(raw)
	if err != nil {
		return "", err
	}
	return Sanitize(name) + "_" + g.timestamp(), nil
}

func (g *Generator) timestamp() string {
	now := time.Now
	if g != nil && g.Now != nil {
		now = g.Now
	}
	t := now()
	if g != nil && g.UTC {
		t = t.UTC()
	}
	return t.Format(TimestampLayout)
}

// FirstField returns the name of the first field of the JSON object in raw,
// in source order. The whole input must be a single valid JSON object.
func FirstField(raw []byte) (string, error) {
	if !json.Valid(raw) {
		return "", fmt.Errorf("%w: not valid JSON", document.ErrInvalidDocument)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %v", document.ErrInvalidDocument, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return "", fmt.Errorf("%w: top-level value must be an object", document.ErrInvalidDocument)
	}
	tok, err = dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return "", fmt.Errorf("%w: %v", document.ErrInvalidDocument, err)
	}
	name, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("%w: object has no fields", document.ErrInvalidDocument)
	}
	return name, nil
}

// Sanitize maps a field name onto the key alphabet [A-Za-z0-9._-]; any other
// rune becomes '-'. Underscores are kept, so a field like "my_user" groups
// under the prefix "my".
func Sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}
