package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyReviewed = errors.New("already reviewed")
	ErrAlreadyLiked    = errors.New("movie already in favourites")
	ErrInvalidInput    = errors.New("invalid input")
	// ErrConflict marks a lost concurrent write; callers retry the whole operation.
	ErrConflict     = errors.New("concurrent write conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)
