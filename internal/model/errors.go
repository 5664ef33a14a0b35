package model

import "errors"

var (
	// User related errors
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")

	// Authentication related errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInactiveUser       = errors.New("inactive user")

	// Decision related errors
	ErrModelUnavailable = errors.New("model unavailable")
	ErrDecisionNotFound = errors.New("decision not found")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
