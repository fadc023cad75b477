package catalog

import (
	"errors"
	"fmt"
)

// ErrUnknownReference matches any UnknownReferenceError via errors.Is.
var ErrUnknownReference = errors.New("unknown catalog reference")

// UnknownReferenceError reports an id that is absent from the snapshot or inactive.
// It must never be turned into a zero price.
type UnknownReferenceError struct {
	Kind     Kind
	ID       string
	Inactive bool
}

// Error implements the error interface.
func (e *UnknownReferenceError) Error() string {
	if e.Inactive {
		return fmt.Sprintf("%s %q is not available", e.Kind, e.ID)
	}
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// Is lets errors.Is match ErrUnknownReference.
func (e *UnknownReferenceError) Is(target error) bool {
	return target == ErrUnknownReference
}
