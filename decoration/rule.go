package decoration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonwraymond/listicons/identity"
	"github.com/jonwraymond/listicons/permission"
)

// Layout says whether the decoration is drawn above or below the head.
type Layout int

const (
	// Overlay draws the decoration on top of the head.
	Overlay Layout = iota
	// Underlay draws the decoration beneath the head.
	Underlay
)

// String returns the configuration spelling of the layout.
func (l Layout) String() string {
	switch l {
	case Overlay:
		return "OVERLAY"
	case Underlay:
		return "UNDERLAY"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// ErrInvalidLayout indicates an unknown layout name.
var ErrInvalidLayout = errors.New("decoration: invalid layout")

// ErrInvalidRule indicates a rule that cannot be registered.
var ErrInvalidRule = errors.New("decoration: invalid rule")

// ParseLayout parses "OVERLAY" or "UNDERLAY", ignoring case.
// The empty string is Overlay.
func ParseLayout(s string) (Layout, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "OVERLAY":
		return Overlay, nil
	case "UNDERLAY":
		return Underlay, nil
	default:
		return Overlay, fmt.Errorf("%w: %q", ErrInvalidLayout, s)
	}
}

// Predicate decides whether a rule applies to a player.
type Predicate func(ctx context.Context, player identity.Player) bool

// Rule is one decoration candidate.
type Rule struct {
	Name      string
	Priority  int
	Layout    Layout
	Predicate Predicate
	// Assets are image file names relative to the images directory.
	// Only the first is drawn.
	Assets []string
}

// Validate reports whether the rule can be registered.
func (r Rule) Validate() error {
	if r.Predicate == nil {
		return fmt.Errorf("%w: %q has no predicate", ErrInvalidRule, r.Name)
	}
	if r.Layout != Overlay && r.Layout != Underlay {
		return fmt.Errorf("%w: %q: %w", ErrInvalidRule, r.Name, ErrInvalidLayout)
	}
	return nil
}

// Always is a predicate that accepts every player.
func Always(context.Context, identity.Player) bool { return true }

// PermissionPredicate accepts players holding perm according to checker.
// An empty perm accepts every player.
func PermissionPredicate(checker permission.Checker, perm string) Predicate {
	perm = strings.TrimSpace(perm)
	switch {
	case perm == "":
		return Always
	case checker == nil:
		return func(context.Context, identity.Player) bool { return false }
	}
	return func(ctx context.Context, player identity.Player) bool {
		return checker.Has(ctx, player, perm)
	}
}
