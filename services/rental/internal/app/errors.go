package app

import "errors"

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput wraps every payload the store or the field rules reject.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict covers duplicate ids and rooms that already have an active tenant.
	ErrConflict = errors.New("conflict")
	// ErrUnknownResource is returned for resource names outside the rental sheets.
	ErrUnknownResource = errors.New("unknown resource")

	// ErrInvalidCredentials is shown to clients as-is; it does not say
	// whether the username exists.
	ErrInvalidCredentials = errors.New("Incorrect username or password")
	ErrUnauthorized       = errors.New("unauthorized")

	ErrStorageNotConfigured = errors.New("object storage not configured")
	ErrNoReceipt            = errors.New("expense has no receipt")
)
