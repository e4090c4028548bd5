package services

import "errors"

var (
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUserNotFound      = errors.New("user not found")
	ErrUploadUnavailable = errors.New("image upload unavailable")
)
