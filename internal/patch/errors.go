package patch

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by a Store when the document does not exist
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned by a Store when the version token is stale
	ErrConflict = errors.New("version conflict")
	// ErrMalformedContent is returned by a Transform that cannot parse the document
	ErrMalformedContent = errors.New("malformed content")
)

// StoreOp names the store call that failed
type StoreOp string

const (
	OpGet    StoreOp = "get"
	OpPut    StoreOp = "put"
	OpDelete StoreOp = "delete"
)

// StoreError wraps a backend failure with the call and document it happened on
type StoreError struct {
	Op   StoreOp
	Path string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError wraps err unless it is nil
func NewStoreError(op StoreOp, path string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Path: path, Err: err}
}
