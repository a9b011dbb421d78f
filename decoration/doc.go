// Package decoration picks the decorative frame drawn around a player's head.
//
// Rules are registered at startup and kept in a fixed order: highest
// priority first, ties broken by registration order. Select returns the
// first rule whose predicate accepts the player. The ordered rule set is an
// immutable snapshot swapped atomically on Register and Reload, so selection
// takes no lock.
package decoration
