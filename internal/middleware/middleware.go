// Package middleware holds the echo middleware shared by every route:
// request ids, request-scoped logging, tracing, auth, rate limiting and the
// global error handler.
package middleware
