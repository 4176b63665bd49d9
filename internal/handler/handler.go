// Package handler is the HTTP layer: it binds requests, calls services and
// shapes responses.
package handler
