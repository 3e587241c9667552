// Package session implements the bounded, device-deduplicated refresh-token
// session store.
//
// Per identity there is a ZSET index (token → creation-timestamp score) and
// one HASH record per token. Save, revoke, and revoke-all each run as a
// single Lua script, so replace-on-same-device and evict-oldest-on-overflow
// can never interleave with another caller's mutation. Reads are plain
// commands and may be served from a replica client.
//
// "Oldest" is the minimum creation-timestamp score; at equal scores Redis
// orders ZSET members lexicographically, which is the documented tie-break.
//
//	Docs: docs/session.md
package session
