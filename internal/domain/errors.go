package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain value fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrEmptyEntityName is returned when an entity name is empty after normalization.
	ErrEmptyEntityName = errors.New("entity name cannot be empty")

	// ErrUnknownSentiment is returned when a sentiment label is outside the closed label set.
	ErrUnknownSentiment = errors.New("unknown sentiment label")
)
