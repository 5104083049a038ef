// Package session stores server-side sessions in Redis so that a signed
// session token can be revoked before it expires.
//
// Records use a compact, versioned binary encoding (see [Encode]). Keys are
// namespaced by prefix and tenant; each user has an index set used for
// sign-out-everywhere.
//
// # Architecture boundaries
//
// The store does not parse tokens or decide whether a request is admitted.
// The protector package combines both.
package session
