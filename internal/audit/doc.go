// Package audit delivers gate denial events to a sink without blocking the
// request path.
//
// # Components
//
//   - [Sink]: event consumer (channel, JSON lines writer, zerolog, no-op).
//   - [Dispatcher]: buffered relay with drop-if-full or block-if-full semantics.
//   - [Event]: one denial, with request ID, method, path, client IP and status.
//
// # What this package must NOT do
//
//   - Decide which requests are audited; the gate does that.
//   - Import the root package.
package audit
