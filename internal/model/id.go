package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// ID is an identifier posted by the admin UI. Clients send ids either as JSON
// numbers or as numeric strings, so both decode to the same value.
type ID int64

// UnmarshalJSON accepts numbers, numeric strings and null.
func (id *ID) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		*id = 0
		return nil
	}

	v, err := cast.ToInt64E(raw)
	if err != nil {
		return fmt.Errorf("invalid id %s", string(b))
	}
	*id = ID(v)
	return nil
}

// UnmarshalParam implements echo.BindUnmarshaler for form and query values.
func (id *ID) UnmarshalParam(param string) error {
	param = strings.TrimSpace(param)
	if param == "" {
		*id = 0
		return nil
	}

	v, err := strconv.ParseInt(param, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", param)
	}
	*id = ID(v)
	return nil
}

// Int64 returns the raw value.
func (id ID) Int64() int64 {
	return int64(id)
}

// toID coerces a decoded id, returning 0 for anything that is not a number.
// A zero id never passes row validation, so bad input surfaces as a failed row.
func toID(v any) int64 {
	id, err := cast.ToInt64E(v)
	if err != nil {
		return 0
	}
	return id
}
