package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicate is wrapped by stores when a unique column already holds the value.
	ErrDuplicate = errors.New("duplicate key")

	// ErrUnknownCollection is returned for a collection key that is not registered.
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrNoRecords is returned when exporting an empty collection.
	ErrNoRecords = errors.New("no records found")
)

// ValidationError lists the submitted fields that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid submission: %s", strings.Join(e.Fields, ", "))
}

// IsValidation reports whether err is a *ValidationError and returns it.
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
