// Package feeerrors defines the stable error kinds surfaced by the fee engine.
//
// Domain packages declare their own sentinels wrapping one of these kinds, so
// callers can branch on the kind with errors.Is without knowing the domain.
package feeerrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound              = errors.New("not_found")
	ErrAlreadyCarriedForward = errors.New("already_carried_forward")
	ErrValidation            = errors.New("validation_failure")
	ErrPersistence           = errors.New("persistence_failure")
)

// New declares a domain sentinel of the given kind.
func New(kind error, code string) error {
	return fmt.Errorf("%s: %w", code, kind)
}

// Validation wraps a validator error as ErrValidation.
func Validation(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrValidation) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

// Wrap leaves kinded errors untouched and classifies everything else as
// ErrPersistence. It is applied at transaction boundaries.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	if Kind(err) != nil {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

// Kind returns the kind sentinel carried by err, or nil.
func Kind(err error) error {
	for _, kind := range []error{ErrNotFound, ErrAlreadyCarriedForward, ErrValidation, ErrPersistence} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
