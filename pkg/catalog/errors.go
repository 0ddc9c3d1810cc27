package catalog

import "errors"

// Domain errors for catalog operations. Store methods return these instead of
// leaking gorm/driver errors; the HTTP layer maps them to status codes.
var (
	// User errors
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("user already exists")

	// ErrInvalidCredentials covers both unknown-user and password-mismatch so
	// callers cannot distinguish the two.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Media errors. ErrMediaNotFound covers rows that do not exist, are
	// tombstoned, or belong to another user.
	ErrMediaNotFound  = errors.New("media does not exist or user does not have permissions")
	ErrDuplicateMedia = errors.New("media with the same hash already exists")

	// Face errors
	ErrFaceNotFound = errors.New("face not found")
)
