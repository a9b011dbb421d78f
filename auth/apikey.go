package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// DefaultAPIKeyHeader carries the admin API key.
const DefaultAPIKeyHeader = "X-API-Key"

// APIKey is one configured key. Hash is the SHA-256 hex digest of the key;
// the plain key is never kept in memory once hashed.
type APIKey struct {
	Hash      string
	Principal string
	Roles     []string
}

// NewAPIKey hashes key and grants it roles.
func NewAPIKey(key, principal string, roles ...string) APIKey {
	return APIKey{Hash: HashAPIKey(key), Principal: principal, Roles: roles}
}

// HashAPIKey returns the SHA-256 hex digest of key.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(key)))
	return hex.EncodeToString(sum[:])
}

// APIKeyAuthenticator accepts a fixed set of API keys.
type APIKeyAuthenticator struct {
	header string
	keys   []APIKey
}

// NewAPIKeyAuthenticator creates an authenticator reading header (default
// X-API-Key). It returns nil when keys is empty.
func NewAPIKeyAuthenticator(header string, keys ...APIKey) *APIKeyAuthenticator {
	if len(keys) == 0 {
		return nil
	}
	if header == "" {
		header = DefaultAPIKeyHeader
	}
	return &APIKeyAuthenticator{header: header, keys: keys}
}

func (a *APIKeyAuthenticator) Name() string { return string(MethodAPIKey) }

func (a *APIKeyAuthenticator) Supports(req *Request) bool {
	return req.Header(a.header) != ""
}

// Authenticate compares the presented key's hash against every configured
// hash in constant time.
func (a *APIKeyAuthenticator) Authenticate(_ context.Context, req *Request) (*Result, error) {
	presented := req.Header(a.header)
	if presented == "" {
		return Failure(ErrMissingCredentials, MethodAPIKey), nil
	}
	hash := []byte(HashAPIKey(presented))

	var match *APIKey
	for i := range a.keys {
		if subtle.ConstantTimeCompare(hash, []byte(a.keys[i].Hash)) == 1 {
			match = &a.keys[i]
		}
	}
	if match == nil {
		return Failure(ErrInvalidCredentials, MethodAPIKey), nil
	}
	return Success(&Identity{
		Principal: match.Principal,
		Roles:     match.Roles,
		Method:    MethodAPIKey,
	}), nil
}

var _ Authenticator = (*APIKeyAuthenticator)(nil)
