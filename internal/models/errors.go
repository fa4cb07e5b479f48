package models

import (
	"errors"
	"fmt"
)

var (
	// ErrExtraction means no usable text could be recovered from a document.
	ErrExtraction = errors.New("no text extracted from document")

	// ErrChunking means the normalized text produced no chunk above the minimum length.
	ErrChunking = errors.New("text too short after chunking")

	// ErrSchemaMissing means the backing table or ranking function is not provisioned.
	ErrSchemaMissing = errors.New("vector schema not provisioned")

	// ErrUpstream wraps any failure of an embedding, storage, search or synthesis call.
	ErrUpstream = errors.New("upstream failure")

	// ErrConfigInvalid is returned when configuration values cannot be used.
	ErrConfigInvalid = errors.New("invalid configuration")

	// ErrInvalidInput is returned for malformed requests.
	ErrInvalidInput = errors.New("invalid input")
)

// Upstream tags err as an upstream failure of op. Schema errors keep their own kind.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrSchemaMissing) || errors.Is(err, ErrUpstream) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUpstream, err)
}
