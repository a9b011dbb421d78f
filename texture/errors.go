package texture

import "errors"

var (
	// ErrNotFound indicates the profile or its skin texture does not exist.
	ErrNotFound = errors.New("texture: not found")

	// ErrRemote indicates a network, protocol, guard or image decoding failure.
	ErrRemote = errors.New("texture: remote failure")
)
