// Package route compiles path patterns into anchored matchers used to decide
// which requests are public and which requests the gate applies to at all.
//
// # Pattern syntax
//
// Patterns use the path-to-regexp dialect common to JavaScript web
// frameworks, so route lists can be carried over verbatim:
//
//   - literal text matches itself;
//   - "(...)" is a raw regular-expression group and may use lookahead;
//   - ":name" matches one path segment, with optional "?", "*" or "+";
//   - a single trailing "/", "#" or "?" is always accepted.
//
// Groups are evaluated by a backtracking engine (regexp2) because the
// canonical asset-exclusion matcher relies on negative lookahead, which the
// standard library's RE2 engine does not support.
//
// # What this package must NOT do
//
//   - Inspect anything but the request path (no query, headers, or host).
//   - Hold mutable state after construction.
package route
