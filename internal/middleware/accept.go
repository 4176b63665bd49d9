package middleware

import (
	"mime"
	"strings"

	"github.com/deppfellow/spoon/internal/errs"
	"github.com/labstack/echo/v4"
)

// RequireAcceptsJSON rejects requests whose Accept header does not allow a
// JSON response. The admin UI always sends one.
func RequireAcceptsJSON() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !AcceptsJSON(c.Request().Header.Get(echo.HeaderAccept)) {
				return errs.NewBadRequestError("Request must accept JSON in response", true, nil, nil, nil)
			}
			return next(c)
		}
	}
}

// AcceptsJSON reports whether an Accept header value allows application/json.
// Wildcards do not count.
func AcceptsJSON(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		if mediaType == echo.MIMEApplicationJSON || strings.HasSuffix(mediaType, "+json") {
			return true
		}
	}
	return false
}
