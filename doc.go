// Package revsense gates HTTP routes behind an authenticated session.
//
// Each request passes through one linear decision:
//
//  1. Scope: paths outside the configured matcher (static assets, framework
//     internals) are not touched at all.
//  2. Bypass: outside [ModeProduction] every request is admitted.
//  3. Public: paths matching a public route are admitted.
//  4. Enforce: the configured [Protector] is invoked exactly once and either
//     admits the request or the gate answers with a sign-in redirect, 401,
//     or 503.
//
// The runtime mode is an explicit [Config] value. Reading it from the
// process environment is the caller's job (see internal/config).
//
// # Architecture boundaries
//
// The gate decides whether a protector runs, never how a session is
// verified. Token and session verification live behind [Protector]; the
// protector package ships JWT and Redis-backed implementations.
//
// # What this package must NOT do
//
//   - Read environment variables or other ambient process state.
//   - Parse tokens, cookies, or sessions itself.
//   - Invoke the protector for bypassed, public, or out-of-scope requests.
package revsense
