package fetch

import (
	"errors"
	"fmt"
)

var (
	// ErrTransient marks failures worth another attempt: timeouts, connection
	// resets, throttling, upstream 5xx responses.
	ErrTransient = errors.New("transient fetch error")
	// ErrPermanent marks failures that will not heal on retry: missing
	// resources, client errors, unsupported content.
	ErrPermanent = errors.New("permanent fetch error")
)

// Transient tags err with the transient marker, keeping both in the chain.
func Transient(operation string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", ErrTransient, operation)
	}
	return fmt.Errorf("%w: %s: %w", ErrTransient, operation, err)
}

// Permanent tags err with the permanent marker.
func Permanent(operation string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", ErrPermanent, operation)
	}
	return fmt.Errorf("%w: %s: %w", ErrPermanent, operation, err)
}

// IsTransient reports whether another attempt at the same fetch could succeed.
// Unclassified errors are treated as transient so flaky infrastructure never
// silently exhausts an item's budget on a single network blip.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPermanent) {
		return false
	}
	return true
}
