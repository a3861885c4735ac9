package service

import "errors"

// Terminal error taxonomy for realtime events. Each failure is surfaced
// only to the originating connection, never broadcast, and leaves no
// partial persistence behind.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
)
