package permission

import (
	"context"
	"slices"
	"testing"

	"github.com/google/uuid"

	"github.com/jonwraymond/listicons/identity"
)

var (
	notch = identity.Player{ID: uuid.MustParse("069a79f4-44e9-4726-a5be-fca90e38aaf5"), Name: "Notch"}
	jeb   = identity.Player{ID: uuid.MustParse("853c80ef-3c37-49fd-aa49-938b674adae6"), Name: "jeb_"}
	guest = identity.Player{ID: uuid.MustParse("00000000-0000-4000-8000-000000000001"), Name: "Guest"}
)

func testTable() *Table {
	return NewTable(Config{
		Groups: map[string]GroupConfig{
			"default": {Permissions: []string{"listicons.icon.basic"}},
			"vip":     {Permissions: []string{"listicons.icon.vip"}, Inherits: []string{"default"}},
			"staff":   {Permissions: []string{"listicons.icon.*", "-listicons.icon.event"}, Inherits: []string{"vip"}},
			"loop":    {Inherits: []string{"loop", "vip"}},
		},
		Players: map[string][]string{
			"069a79f4-44e9-4726-a5be-fca90e38aaf5": {"staff"},
			"JEB_":                                 {"loop"},
		},
		DefaultGroup: "default",
	})
}

func TestTable_Has(t *testing.T) {
	table := testTable()
	ctx := context.Background()

	tests := []struct {
		player identity.Player
		perm   string
		want   bool
	}{
		{guest, "listicons.icon.basic", true},
		{guest, "listicons.icon.vip", false},
		{jeb, "listicons.icon.vip", true},
		{jeb, "listicons.icon.basic", true},
		{notch, "listicons.icon.anything", true},
		{notch, "listicons.icon", true},
		{notch, "listicons.icon.event", false},
		{notch, "other.node", false},
	}
	for _, tt := range tests {
		if got := table.Has(ctx, tt.player, tt.perm); got != tt.want {
			t.Errorf("Has(%s, %q) = %v, want %v", tt.player.Name, tt.perm, got, tt.want)
		}
	}
}

func TestTable_GroupsInheritanceAndCycles(t *testing.T) {
	table := testTable()
	got := table.Groups(jeb)
	want := []string{"loop", "vip", "default"}
	if !slices.Equal(got, want) {
		t.Fatalf("Groups(jeb) = %v, want %v", got, want)
	}
	if got := table.Groups(guest); !slices.Equal(got, []string{"default"}) {
		t.Fatalf("Groups(guest) = %v", got)
	}
}

func TestTable_NoDefaultGroup(t *testing.T) {
	table := NewTable(Config{})
	if table.Has(context.Background(), guest, "anything") {
		t.Fatal("empty table granted a permission")
	}
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern, value string
		want           bool
	}{
		{"*", "a.b", true},
		{"a.*", "a", true},
		{"a.*", "a.b.c", true},
		{"a.*", "ab", false},
		{"a*", "ab", true},
		{"A.B", "a.b", true},
		{"a.b", "a.c", false},
	}
	for _, tt := range tests {
		if got := matchPattern(tt.pattern, tt.value); got != tt.want {
			t.Errorf("matchPattern(%q, %q) = %v", tt.pattern, tt.value, got)
		}
	}
}
