package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// Keyer generates deterministic cache keys for a player identity.
//
// Contract:
// - Determinism: same inputs must produce same key.
// - Distinctness: a different uuid or a different display name yields a
//   different key, so a renamed player is composed afresh.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	Key(id uuid.UUID, name string) string
}

// DefaultKeyer generates keys of the form icon:<uuid>:<hash>, where hash is
// the first 16 hex characters of SHA-256(name). Hashing keeps arbitrary
// display names out of the key alphabet.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key generates a deterministic cache key.
func (k *DefaultKeyer) Key(id uuid.UUID, name string) string {
	hash := sha256.Sum256([]byte(name))
	return fmt.Sprintf("icon:%s:%s", id.String(), hex.EncodeToString(hash[:8]))
}

var _ Keyer = (*DefaultKeyer)(nil)
