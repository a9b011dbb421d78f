package identity

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryDirectory is an in-process Directory. Its contents are lost on exit.
type MemoryDirectory struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]Entry
	now     func() time.Time
	closed  bool
}

// NewMemoryDirectory creates an empty MemoryDirectory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		entries: make(map[uuid.UUID]Entry),
		now:     time.Now,
	}
}

func (d *MemoryDirectory) Lookup(ctx context.Context, address string) (Player, error) {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return Player{}, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return Player{}, ErrClosed
	}

	var (
		best  Entry
		found bool
	)
	for _, e := range d.entries {
		if e.Address != addr {
			continue
		}
		if !found || e.UpdatedAt.After(best.UpdatedAt) {
			best, found = e, true
		}
	}
	if !found {
		return Player{}, ErrNotFound
	}
	return best.Player, nil
}

func (d *MemoryDirectory) Record(ctx context.Context, player Player, address string) error {
	if player.ID == uuid.Nil {
		return ErrInvalidPlayer
	}
	addr, err := NormalizeAddress(address)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	now := d.now().UTC()
	// Keep UpdatedAt strictly increasing so Lookup ordering is stable
	// when the clock does not advance between records.
	for _, e := range d.entries {
		if !now.After(e.UpdatedAt) {
			now = e.UpdatedAt.Add(time.Nanosecond)
		}
	}
	d.entries[player.ID] = Entry{Player: player, Address: addr, UpdatedAt: now}
	return nil
}

func (d *MemoryDirectory) Address(ctx context.Context, id uuid.UUID) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return "", ErrClosed
	}
	e, ok := d.entries[id]
	if !ok {
		return "", ErrNotFound
	}
	return e.Address, nil
}

func (d *MemoryDirectory) Clear(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	clear(d.entries)
	return nil
}

func (d *MemoryDirectory) ClearPlayer(ctx context.Context, id uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	delete(d.entries, id)
	return nil
}

// List returns every entry, most recently updated first.
func (d *MemoryDirectory) List(ctx context.Context) ([]Entry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, ErrClosed
	}
	out := make([]Entry, 0, len(d.entries))
	for _, e := range d.entries {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Entry) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Player.ID.String(), b.Player.ID.String())
	})
	return out, nil
}

func (d *MemoryDirectory) Ping(ctx context.Context) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	return nil
}

func (d *MemoryDirectory) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

var _ Directory = (*MemoryDirectory)(nil)
