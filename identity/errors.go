package identity

import "errors"

var (
	// ErrInvalidPlayer indicates a malformed player uuid.
	ErrInvalidPlayer = errors.New("identity: invalid player")

	// ErrInvalidAddress indicates an empty or malformed network address.
	ErrInvalidAddress = errors.New("identity: invalid address")

	// ErrNotFound indicates no player is recorded for the address or uuid.
	ErrNotFound = errors.New("identity: not found")

	// ErrClosed indicates the directory has been closed.
	ErrClosed = errors.New("identity: directory closed")
)
