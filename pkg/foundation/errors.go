package foundation

import (
	"errors"
	"fmt"
)

// ErrIndexOutOfRange is wrapped by every IndexError.
var ErrIndexOutOfRange = errors.New("index out of range")

// IndexError reports an index outside a container's bounds.
type IndexError struct {
	Op    string
	Index int
	// Bound is the exclusive upper limit of valid indexes for Op.
	Bound int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s: index %d out of range [0, %d)", e.Op, e.Index, e.Bound)
}

func (e *IndexError) Unwrap() error {
	return ErrIndexOutOfRange
}

// CloneError reports the element that stopped a deep copy.
type CloneError struct {
	Index int
	Type  string
	Err   error
}

func (e *CloneError) Error() string {
	return fmt.Sprintf("clone element %d (%s): %v", e.Index, e.Type, e.Err)
}

func (e *CloneError) Unwrap() error {
	return e.Err
}
