package domain

import "errors"

var (
	// ErrTitleAlreadyExists is returned when creating a title whose id is already live in the ledger
	ErrTitleAlreadyExists = errors.New("title already exists")

	// ErrTitleNotFound is returned when the target title has no live ledger entry
	ErrTitleNotFound = errors.New("title not found")

	// ErrInvalidInput is returned for malformed metadata, a missing owner field,
	// a negative price, a no-op transfer or an empty owner query
	ErrInvalidInput = errors.New("invalid input")
)
