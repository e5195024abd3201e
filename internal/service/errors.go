package service

import "errors"

// Centralized service layer errors.
// All errors returned by service methods are defined here for consistency
// and to make error handling in handlers predictable.

// ===== Authentication Errors =====
var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrNoUserWithEmail    = errors.New("there is no user with that email address")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
	ErrWrongPassword      = errors.New("current password is wrong")
	ErrPasswordNotAllowed = errors.New("password updates are not allowed on this route")
	ErrInvalidResetToken  = errors.New("reset token is invalid or has expired")
	ErrResetEmailFailed   = errors.New("failed to send the password reset email")
)

// ===== Tour Errors =====
var (
	ErrTourNotFound     = errors.New("tour not found")
	ErrInvalidYear      = errors.New("invalid year")
	ErrInvalidLatLng    = errors.New("latitude and longitude must be given as lat,lng")
	ErrInvalidDistance  = errors.New("distance must be a positive number")
	ErrInvalidUnit      = errors.New("unit must be mi or km")
	ErrUnknownTourField = errors.New("unknown tour field")
)

// ===== Review Errors =====
var (
	ErrReviewTourNotFound = errors.New("reviewed tour not found")
)
