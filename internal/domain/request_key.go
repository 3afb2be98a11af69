package domain

import (
	"fmt"
	"strings"
)

// RequestKey is the normalized identity of an analysis request.
// Two requests with the same key refer to the same unit of work.
type RequestKey string

// NewRequestKey folds case, trims surrounding whitespace and collapses inner
// whitespace runs of an entity name. It returns ErrEmptyEntityName when
// nothing is left.
func NewRequestKey(entityName string) (RequestKey, error) {
	normalized := strings.ToLower(DisplayName(entityName))
	if normalized == "" {
		return "", fmt.Errorf("%w: %w", ErrValidation, ErrEmptyEntityName)
	}
	return RequestKey(normalized), nil
}

// String returns the key as a plain string.
func (k RequestKey) String() string {
	return string(k)
}

// DisplayName trims an entity name and collapses inner whitespace runs, keeping
// the caller's casing.
func DisplayName(entityName string) string {
	return strings.Join(strings.Fields(entityName), " ")
}
