package cache

import (
	"errors"
	"time"
)

// Default bounds for the composed icon cache.
const (
	DefaultMaxEntries = 100
	DefaultIdleTTL    = 5 * time.Minute
)

// ErrInvalidPolicy indicates a policy with negative bounds.
var ErrInvalidPolicy = errors.New("cache: invalid policy")

// Policy configures eviction behavior.
type Policy struct {
	// MaxEntries bounds the number of entries. When a Set would exceed it,
	// the least recently accessed entry is evicted. Zero disables caching.
	MaxEntries int

	// IdleTTL is the expire-after-access window. An entry not read or
	// written for longer than IdleTTL is treated as absent.
	// Zero means entries never expire by time.
	IdleTTL time.Duration
}

// DefaultPolicy returns the default caching policy.
// MaxEntries: 100, IdleTTL: 5 minutes
func DefaultPolicy() Policy {
	return Policy{
		MaxEntries: DefaultMaxEntries,
		IdleTTL:    DefaultIdleTTL,
	}
}

// NoCachePolicy returns a policy that disables caching entirely.
func NoCachePolicy() Policy {
	return Policy{}
}

// ShouldCache returns true if caching is enabled by this policy.
func (p Policy) ShouldCache() bool {
	return p.MaxEntries > 0
}

// Validate rejects negative bounds.
func (p Policy) Validate() error {
	if p.MaxEntries < 0 {
		return errors.Join(ErrInvalidPolicy, errors.New("max entries must not be negative"))
	}
	if p.IdleTTL < 0 {
		return errors.Join(ErrInvalidPolicy, errors.New("idle ttl must not be negative"))
	}
	return nil
}
