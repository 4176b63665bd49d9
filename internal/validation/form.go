package validation

import (
	"bytes"
	"io"
	"mime"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
)

// FormPair is one key/value pair from a form-encoded body, already unescaped.
type FormPair struct {
	Key   string
	Value string
}

// FormPairsBinder is implemented by payloads that need the form body in the
// order the client sent it. url.Values is a map, so bracketed keys such as
// `groups[tab one][]=4` lose their relative order once parsed by net/http.
type FormPairsBinder interface {
	BindFormPairs(pairs []FormPair) error
}

// ParseFormPairs splits a form-encoded body into ordered, unescaped pairs.
// Malformed escapes are kept verbatim rather than rejected.
func ParseFormPairs(body string) []FormPair {
	var pairs []FormPair
	for _, part := range strings.Split(body, "&") {
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		pairs = append(pairs, FormPair{
			Key:   unescape(key),
			Value: unescape(value),
		})
	}
	return pairs
}

func unescape(s string) string {
	if out, err := url.QueryUnescape(s); err == nil {
		return out
	}
	return strings.ReplaceAll(s, "+", " ")
}

// isFormRequest reports whether the request carries a urlencoded body.
func isFormRequest(c echo.Context) bool {
	mediaType, _, err := mime.ParseMediaType(c.Request().Header.Get(echo.HeaderContentType))
	if err != nil {
		return false
	}
	return mediaType == echo.MIMEApplicationForm
}

// readFormPairs reads the raw body and restores it so echo's binder can read
// it again afterwards.
func readFormPairs(c echo.Context) ([]FormPair, error) {
	req := c.Request()
	if req.Body == nil {
		return nil, nil
	}

	raw, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	_ = req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(raw))

	return ParseFormPairs(string(raw)), nil
}
