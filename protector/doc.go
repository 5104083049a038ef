// Package protector provides [revsense.Protector] implementations backed by
// signed session tokens.
//
//   - [Token] verifies the token signature and claims only. No I/O.
//   - [Session] additionally requires a live, unrevoked session in Redis.
//
// Tokens are read from an "Authorization: Bearer" header first and the
// session cookie second.
//
// # Errors
//
// Rejected credentials wrap [revsense.ErrUnauthenticated]. A session store
// outage wraps [revsense.ErrProtectorUnavailable]; the request is still
// denied.
package protector
