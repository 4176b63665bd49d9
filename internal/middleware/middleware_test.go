package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/deppfellow/spoon/internal/config"
	"github.com/deppfellow/spoon/internal/errs"
	"github.com/deppfellow/spoon/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer() *server.Server {
	logger := zerolog.Nop()
	return &server.Server{
		Config: &config.Config{},
		Logger: &logger,
	}
}

func TestAcceptsJSON(t *testing.T) {
	tests := []struct {
		accept string
		want   bool
	}{
		{"application/json", true},
		{"text/html, application/json;q=0.9", true},
		{"application/problem+json", true},
		{"*/*", false},
		{"text/html", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.accept, func(t *testing.T) {
			assert.Equal(t, tt.want, AcceptsJSON(tt.accept))
		})
	}
}

func TestRequireAcceptsJSON(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = NewGlobalMiddlewares(newTestServer()).GlobalErrorHandler
	e.POST("/x", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]bool{"success": true})
	}, RequireAcceptsJSON())

	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set(echo.HeaderAccept, "text/html")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestID(t *testing.T) {
	e := echo.New()
	var seen string
	e.GET("/x", func(c echo.Context) error {
		seen = GetRequestID(c)
		return c.NoContent(http.StatusNoContent)
	}, RequestID())

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", seen)
}

func TestGlobalErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"http error", errs.NewBadRequestError("bad", true, nil, nil, nil), http.StatusBadRequest, "BAD_REQUEST"},
		{"unknown route", echo.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"echo error", echo.NewHTTPError(http.StatusUnsupportedMediaType, "nope"), http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE"},
		{"anything else", errors.New("driver exploded"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
			rec := c.Response().Writer.(*httptest.ResponseRecorder)

			NewGlobalMiddlewares(newTestServer()).GlobalErrorHandler(tt.err, c)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var body errs.HTTPError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.NotContains(t, body.Message, "driver")
		})
	}
}

func TestRateLimitDisabled(t *testing.T) {
	s := newTestServer()
	e := echo.New()
	e.GET("/x", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, NewRateLimitMiddleware(s).Limit())

	for range 5 {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
}

func TestRateLimitDenies(t *testing.T) {
	s := newTestServer()
	s.Config.Server.RateLimit = 0.5
	e := echo.New()
	e.HTTPErrorHandler = NewGlobalMiddlewares(s).GlobalErrorHandler
	e.GET("/x", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, NewRateLimitMiddleware(s).Limit())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
