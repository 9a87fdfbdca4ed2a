package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyExists is returned by CreateStrict when the id is taken.
	ErrAlreadyExists = errors.New("work item already exists")
	// ErrNotFound is returned by transitions targeting an unknown id.
	ErrNotFound = errors.New("work item not found")
	// ErrBadTransition is returned when an item is not in a legal source
	// status for the requested transition.
	ErrBadTransition = errors.New("illegal status transition")
)

func badTransition(id string, from Status, to Status) error {
	return fmt.Errorf("%w: %s cannot move from %s to %s", ErrBadTransition, id, from, to)
}
