package identity

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entry is one recorded player and the address it was last seen at.
type Entry struct {
	Player    Player
	Address   string
	UpdatedAt time.Time
}

// Directory maps network addresses to players.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Record is an upsert keyed by player uuid: a player has at most one
//     address. Several players may share an address; Lookup returns the most
//     recently recorded one.
//   - Errors: Lookup and Address return ErrNotFound when nothing matches.
type Directory interface {
	Lookup(ctx context.Context, address string) (Player, error)
	Record(ctx context.Context, player Player, address string) error
	Address(ctx context.Context, id uuid.UUID) (string, error)
	Clear(ctx context.Context) error
	ClearPlayer(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]Entry, error)
	Ping(ctx context.Context) error
	Close() error
}

// NormalizeAddress returns the host part of address with any port and IPv6
// brackets removed. IP addresses are returned in canonical form.
func NormalizeAddress(address string) (string, error) {
	host := strings.TrimSpace(address)
	if host == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	if host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	if ip, err := netip.ParseAddr(host); err == nil {
		return ip.Unmap().WithZone("").String(), nil
	}
	return strings.ToLower(host), nil
}
