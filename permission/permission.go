package permission

import (
	"context"
	"strings"

	"github.com/jonwraymond/listicons/identity"
)

// Checker reports whether a player holds a permission.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: lookups that cannot be answered report false.
type Checker interface {
	Has(ctx context.Context, player identity.Player, permission string) bool
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, player identity.Player, permission string) bool

// Has calls f.
func (f CheckerFunc) Has(ctx context.Context, player identity.Player, permission string) bool {
	return f(ctx, player, permission)
}

// AllowAll grants every permission.
type AllowAll struct{}

// Has always returns true.
func (AllowAll) Has(context.Context, identity.Player, string) bool { return true }

// GroupConfig defines one permission group.
type GroupConfig struct {
	// Permissions are permission patterns granted by this group. A pattern
	// prefixed with "-" denies instead; denies win over grants.
	Permissions []string `toml:"permissions"`

	// Inherits lists groups whose permissions this group also carries.
	Inherits []string `toml:"inherits"`
}

// Config configures a Table.
type Config struct {
	// Groups maps group name to its definition.
	Groups map[string]GroupConfig `toml:"groups"`

	// Players maps a player uuid or name to group names.
	Players map[string][]string `toml:"players"`

	// DefaultGroup applies to players with no assignment.
	DefaultGroup string `toml:"default_group"`
}

// Table is a Checker backed by static group configuration.
type Table struct {
	groups       map[string]GroupConfig
	byID         map[string][]string
	byName       map[string][]string
	defaultGroup string
}

// NewTable builds a Table. Player keys that parse as uuids match by uuid;
// all other keys match display names case-insensitively.
func NewTable(cfg Config) *Table {
	t := &Table{
		groups:       make(map[string]GroupConfig, len(cfg.Groups)),
		byID:         make(map[string][]string),
		byName:       make(map[string][]string),
		defaultGroup: cfg.DefaultGroup,
	}
	for name, g := range cfg.Groups {
		t.groups[name] = g
	}
	for key, groups := range cfg.Players {
		if p, err := identity.ParsePlayer(key, ""); err == nil {
			t.byID[p.ID.String()] = append(t.byID[p.ID.String()], groups...)
			continue
		}
		name := strings.ToLower(strings.TrimSpace(key))
		t.byName[name] = append(t.byName[name], groups...)
	}
	return t
}

// Has reports whether player holds permission.
func (t *Table) Has(_ context.Context, player identity.Player, permission string) bool {
	granted := false
	for _, group := range t.Groups(player) {
		g, ok := t.groups[group]
		if !ok {
			continue
		}
		for _, pattern := range g.Permissions {
			if deny, found := strings.CutPrefix(pattern, "-"); found {
				if matchPattern(deny, permission) {
					return false
				}
				continue
			}
			if matchPattern(pattern, permission) {
				granted = true
			}
		}
	}
	return granted
}

// Groups returns the player's groups including inherited ones, in
// breadth-first order. Inheritance cycles are tolerated.
func (t *Table) Groups(player identity.Player) []string {
	var start []string
	start = append(start, t.byID[player.ID.String()]...)
	if player.Name != "" {
		start = append(start, t.byName[strings.ToLower(player.Name)]...)
	}
	if len(start) == 0 && t.defaultGroup != "" {
		start = append(start, t.defaultGroup)
	}

	seen := make(map[string]bool)
	result := make([]string, 0, len(start))
	queue := start
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if seen[current] {
			continue
		}
		seen[current] = true
		result = append(result, current)

		if g, ok := t.groups[current]; ok {
			for _, inherited := range g.Inherits {
				if !seen[inherited] {
					queue = append(queue, inherited)
				}
			}
		}
	}
	return result
}

// matchPattern matches a dotted permission against a pattern.
// "*" matches everything; "a.b.*" matches "a.b" and anything below it.
func matchPattern(pattern, value string) bool {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	value = strings.ToLower(value)
	if pattern == "*" {
		return true
	}
	if prefix, found := strings.CutSuffix(pattern, ".*"); found {
		return value == prefix || strings.HasPrefix(value, prefix+".")
	}
	if prefix, found := strings.CutSuffix(pattern, "*"); found {
		return strings.HasPrefix(value, prefix)
	}
	return pattern == value
}

var (
	_ Checker = (*Table)(nil)
	_ Checker = CheckerFunc(nil)
	_ Checker = AllowAll{}
)
