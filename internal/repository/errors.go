package repository

import "errors"

// Common errors for post store operations. Every store implementation
// returns these so callers can match them with errors.Is.
var (
	ErrPostNotFound = errors.New("post not found")
	ErrPostExists   = errors.New("post id already exists")
	ErrUnavailable  = errors.New("store unavailable")
)
