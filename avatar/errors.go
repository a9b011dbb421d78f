package avatar

import "errors"

var (
	// ErrStorage indicates the heads directory could not be read or written.
	ErrStorage = errors.New("avatar: storage failure")

	// ErrNoFetcher indicates a Store was configured without a fetcher.
	ErrNoFetcher = errors.New("avatar: fetcher is required")
)
