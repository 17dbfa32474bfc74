package storage

import "errors"

// ErrNotFound is returned when no account matches the lookup key.
var ErrNotFound = errors.New("user not found")

// ErrDuplicateEmail is returned when creating an account with an address
// that is already registered.
var ErrDuplicateEmail = errors.New("email already registered")
