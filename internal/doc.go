// Package internal holds process plumbing private to this module.
//
// # Sub-packages
//
//   - audit: async denial-event dispatch (Dispatcher and Sink implementations)
//   - config: environment settings for the gate binary; the only reader of APP_ENV
//   - logging: zerolog construction
//   - redisconn: Redis client setup with startup retry
//
// # What this package must NOT do
//
//   - Decide gate outcomes; that belongs to the root package.
package internal
