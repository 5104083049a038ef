// Package jwt issues and verifies the signed session tokens presented to
// the gate, either in an Authorization bearer header or a session cookie.
package jwt
