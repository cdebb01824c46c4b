package entity

import "errors"

var (
	// ErrNotFound is returned when a record does not exist for the requesting user
	ErrNotFound = errors.New("invoice not found")

	// ErrInvalidInput is returned when a record or patch fails validation
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidAmount is returned when an amount is not a non-negative number
	ErrInvalidAmount = errors.New("invalid amount")
)
