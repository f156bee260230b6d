package model

import "errors"

var (
	// ErrColumnNotFound is returned when a search or projection column does not exist.
	ErrColumnNotFound = errors.New("column not found")
	// ErrValidation marks caller input that fails validation.
	ErrValidation = errors.New("validation error")
	// ErrInference wraps failures of the embedding provider.
	ErrInference = errors.New("model inference error")
)
