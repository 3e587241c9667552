// Package scripts provides the atomic script executor every goGuard component
// is built on: it runs a named server-side Lua script against a fixed set of
// keys and positional string arguments, and decodes the single structured
// reply.
//
// # Error taxonomy
//
// Two failure categories are distinguished here and nowhere else:
//
//   - [ErrStoreUnavailable] — the script could not be executed at all
//     (connection, timeout, server error).
//   - [ErrMalformedResult] — the store replied, but the reply does not parse
//     into the expected shape.
//
// Logical rejections (locked, blocked, overflow) are not errors; they travel
// as ordinary data in the decoded result.
//
// # What this package must NOT do
//
//   - Contain domain policy or key construction (those live with each component).
//   - Retry a script after an ambiguous failure.
//   - Be imported outside the goGuard module.
package scripts
