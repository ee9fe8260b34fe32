package tracker

import (
	"errors"
	"fmt"

	"nutripal/store"
)

var (
	ErrAIRequired   = errors.New("AI mode required; predefined foods are disabled")
	ErrNotFound     = store.ErrNotFound
	ErrInvalidIndex = errors.New("invalid item index")
	ErrFoodNotFound = errors.New("food not found")
)

// ValidationError reports a bad request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}
