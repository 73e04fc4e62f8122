package service

import (
	"errors"
	"fmt"

	"github.com/lyzr/storefront/cmd/shop-api/repository"
)

var (
	ErrNotFound          = repository.ErrNotFound
	ErrInsufficientStock = repository.ErrInsufficientStock
	ErrEmptyCart         = repository.ErrEmptyCart
	ErrConflict          = repository.ErrConflict

	// ErrValidation marks a request the caller must fix
	ErrValidation = errors.New("invalid request")

	// ErrInvalidQuantity is returned for cart quantities below one
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	// ErrInvalidTransition is returned when a status change is not allowed
	ErrInvalidTransition = errors.New("invalid status transition")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// IsValidation reports whether err should be shown to the caller as a 400
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrInvalidQuantity) || errors.Is(err, ErrEmptyCart)
}
