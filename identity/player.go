package identity

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Player identifies a player by uuid. Name is the display name seen at
// request time and is informational only.
type Player struct {
	ID   uuid.UUID
	Name string
}

// ParsePlayer builds a Player from a uuid string in any form accepted by
// uuid.Parse, including the hyphen-less form.
func ParsePlayer(id, name string) (Player, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return Player{}, fmt.Errorf("%w: %q: %w", ErrInvalidPlayer, id, err)
	}
	if parsed == uuid.Nil {
		return Player{}, fmt.Errorf("%w: nil uuid", ErrInvalidPlayer)
	}
	return Player{ID: parsed, Name: strings.TrimSpace(name)}, nil
}

// String returns "name (uuid)".
func (p Player) String() string {
	if p.Name == "" {
		return p.ID.String()
	}
	return p.Name + " (" + p.ID.String() + ")"
}
