package diff

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

// Marker returns the one-character line marker used in text reports.
func (k Kind) Marker() string {
	switch k {
	case Added:
		return "+"
	case Removed:
		return "-"
	case TypeChanged:
		return "!"
	default:
		return "~"
	}
}

// FormatValue renders v as compact JSON for reports.
func FormatValue(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return strings.TrimRight(buf.String(), "\n")
}

// TypeName returns the JSON kind of v ("object", "number", ...).
func TypeName(v any) string { return kindOf(v) }

// Line renders c as a single report line without a trailing newline.
func (c Change) Line() string {
	switch c.Kind {
	case Added:
		return fmt.Sprintf("+ %s: %s", c.Path, FormatValue(c.New))
	case Removed:
		return fmt.Sprintf("- %s: %s", c.Path, FormatValue(c.Old))
	case TypeChanged:
		return fmt.Sprintf("! %s: %s (%s) -> %s (%s)", c.Path,
			FormatValue(c.Old), kindOf(c.Old), FormatValue(c.New), kindOf(c.New))
	default:
		return fmt.Sprintf("~ %s: %s -> %s", c.Path, FormatValue(c.Old), FormatValue(c.New))
	}
}

// Summary is a one-line count of changes, e.g. "1 added, 2 changed".
func (r *Result) Summary() string {
	if r.Empty() {
		return "no differences"
	}
	counts := r.Counts()
	var parts []string
	for _, k := range []Kind{Added, Removed, Changed, TypeChanged} {
		if n := counts[k]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, strings.ReplaceAll(string(k), "_", " ")))
		}
	}
	return strings.Join(parts, ", ")
}

// WriteText writes one line per change to w, coloured with ANSI escapes
// when color is set.
func (r *Result) WriteText(w io.Writer, color bool) error {
	if r.Empty() {
		_, err := io.WriteString(w, "no differences\n")
		return err
	}
	for _, c := range r.Changes {
		line := c.Line()
		if color {
			line = colorFor(c.Kind) + line + ansiReset
		}
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// Text returns the uncoloured text report.
func (r *Result) Text() string {
	var sb strings.Builder
	_ = r.WriteText(&sb, false)
	return sb.String()
}

func colorFor(k Kind) string {
	switch k {
	case Added:
		return ansiGreen
	case Removed:
		return ansiRed
	default:
		return ansiYellow
	}
}
