// Package identity maps client network addresses to previously seen players.
//
// A Player is recorded against the address it joined from. When an
// unauthenticated client later pings from the same address, Lookup returns
// that player so the caller can resolve an icon for it. Two Directory
// implementations are provided: MemoryDirectory for tests and ephemeral
// runs, and SQLiteDirectory for persistence across restarts.
//
// Addresses are normalised before use: the port is stripped and IPv6
// brackets are removed, so "[::1]:25565" and "::1" name the same client.
package identity
