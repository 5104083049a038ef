// Package middleware mounts a [revsense.Gate] on common router stacks.
//
//   - [Guard]: net/http and chi style func(http.Handler) http.Handler.
//   - [Gin]: gin.HandlerFunc.
//   - [Echo]: echo.MiddlewareFunc.
//
// Every adapter calls [revsense.Gate.Serve] once per request and, when the
// request is admitted, hands the downstream handler the request carrying
// the admitted identity.
//
// # Architecture boundaries
//
// Adapters translate framework types only. Route classification and
// challenge responses are the gate's.
package middleware
