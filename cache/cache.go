package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// MaxKeyLength bounds cache keys. Display names are hashed by the Keyer, so
// real keys are far shorter.
const MaxKeyLength = 512

var (
	ErrNilCache   = errors.New("cache: cache is nil")
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
)

// Cache holds finished icon bytes by key.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Get never errors; a miss is (nil, false). A hit refreshes the entry's
//     access time.
//   - Eviction is up to the implementation; callers must tolerate a miss
//     right after a Set.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte) error

	// Delete is idempotent.
	Delete(ctx context.Context, key string) error

	// Purge removes every entry.
	Purge()

	Len() int
}

// ValidateKey rejects blank keys, keys over MaxKeyLength and keys holding
// control characters.
func ValidateKey(key string) error {
	switch {
	case strings.TrimSpace(key) == "":
		return ErrInvalidKey
	case len(key) > MaxKeyLength:
		return fmt.Errorf("%w: %d bytes", ErrKeyTooLong, len(key))
	case strings.ContainsFunc(key, unicode.IsControl):
		return fmt.Errorf("%w: control character in %q", ErrInvalidKey, key)
	}
	return nil
}
