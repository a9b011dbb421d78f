// Package icon produces finished server-list icons for players.
//
// Cache.Icon looks the player up in a bounded in-memory cache keyed by uuid
// and display name. On a miss it runs the load pipeline exactly once per key
// no matter how many callers are waiting: select a decoration rule, obtain
// the head from the avatar store, and compose the two when a rule applied.
// Failed loads surface as ErrUnavailable and are never cached.
package icon
