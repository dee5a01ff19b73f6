// Package util provides small helpers shared across the pipeline workers.
package util

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidCorrelationID indicates a correlation id that is not a v4 UUID.
var ErrInvalidCorrelationID = errors.New("invalid correlation id")

// NewCorrelationID returns a fresh v4 UUID for messages that arrived without
// a correlation id.
func NewCorrelationID() string {
	return uuid.NewString()
}

// ParseCorrelationID validates that value is a v4 UUID and returns it in
// canonical form.
func ParseCorrelationID(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("%w: value is empty", ErrInvalidCorrelationID)
	}

	u, err := uuid.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCorrelationID, err)
	}
	if u.Version() != 4 {
		return "", fmt.Errorf("%w: expected version 4", ErrInvalidCorrelationID)
	}
	return u.String(), nil
}
