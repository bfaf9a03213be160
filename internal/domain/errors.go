package domain

import "errors"

// Sentinel errors returned by stores and services. The HTTP layer is the only
// place that translates them to wire responses.
var (
	// ErrValidation indicates malformed or missing required input.
	ErrValidation = errors.New("invalid input")
	// ErrInvalidCredentials is returned for unknown usernames and wrong
	// passwords alike, so a caller cannot tell which one failed.
	ErrInvalidCredentials = errors.New("incorrect username or password")
	// ErrInvalidToken indicates a malformed or badly signed session token.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired indicates a well-formed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrForbidden indicates an authenticated requester who is not the owner.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates a missing user, event or image.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness violation (username or email taken).
	ErrConflict = errors.New("already exists")
)
