package document

import (
	"errors"
	"fmt"
	"time"
)

// Document is any JSON value submitted by a client: object, array or scalar.
// Numbers are held as json.Number so a stored document round-trips exactly.
type Document = any

// Entry is a stored document together with its key. It is what mirrors
// receive after the authoritative store accepted a write.
type Entry struct {
	Key      string
	Prefix   string
	Value    Document
	Body     []byte // pretty-printed JSON, identical to the file contents
	StoredAt time.Time
}

var (
	// ErrNotFound is returned when a key is absent from the store.
	ErrNotFound = errors.New("document not found")

	// ErrInvalidDocument is returned for input that is not a JSON object
	// with at least one field.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidKey is returned for keys that cannot be used as a filename.
	ErrInvalidKey = errors.New("invalid key")

	// ErrStorageIO marks failures reading or writing backing files.
	ErrStorageIO = errors.New("storage i/o error")
)

// StorageError describes a failed file operation on the backing directory.
type StorageError struct {
	Op   string
	Key  string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %q (%s): %v", e.Op, e.Key, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is reports every StorageError as ErrStorageIO.
func (e *StorageError) Is(target error) bool { return target == ErrStorageIO }
