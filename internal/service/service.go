// Package service holds the business logic between handlers and repositories.
package service
