// Package avatar keeps a disk copy of each player's 32x32 head image.
//
// Store.Avatar serves the file <uuid>.png when it is younger than the
// freshness window (24 hours by default) and otherwise fetches a new head
// through a texture.Fetcher, replacing the file atomically. A stale file is
// never served when the fetch fails. Concurrent requests for one player share
// a single fetch.
//
// Files live on a go-billy filesystem, osfs in production, rooted at the
// heads directory.
package avatar
