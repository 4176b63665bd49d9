// Package model holds the domain types shared by the handler, service and
// repository layers, plus the request/response payloads of the HTTP API.
package model

import "github.com/go-playground/validator/v10"

// validate is shared by every payload; validator caches struct metadata.
var validate = validator.New()
