package registry

import "errors"

// Common errors returned by registry stores.
var (
	// Open errors
	ErrOpenNotFound = errors.New("open not found")

	// Directory errors
	ErrDirectoryNotFound  = errors.New("directory not found")
	ErrDuplicateDirectory = errors.New("directory already registered")

	// User errors
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("user already exists")
)
