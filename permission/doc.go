// Package permission answers whether a player holds a named permission.
//
// Table is a small group-based permission model loaded from configuration:
// groups grant permission patterns and may inherit other groups, players are
// assigned to groups by uuid or name, and players without an assignment fall
// into the default group. Decoration rules use a Checker as their predicate.
package permission
