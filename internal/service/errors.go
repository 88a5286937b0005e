package service

import "errors"

// Error taxonomy for pool operations. Handlers map these to HTTP statuses
// with errors.Is; services attach detail via fmt.Errorf("%w: ...").
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)
