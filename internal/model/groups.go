package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/deppfellow/spoon/internal/validation"
)

// IDGroup is one entry of an ordered group name -> ids mapping.
// Key is the group name exactly as posted, i.e. still URL-encoded.
type IDGroup struct {
	Key string  `json:"key"`
	IDs []int64 `json:"ids"`
}

// Name is the human readable group name.
func (g IDGroup) Name() string {
	return DecodeGroupName(g.Key)
}

// IDGroups is an ordered mapping from group keys to ordered id lists.
//
// Both the order of the groups and the order of ids inside a group are
// significant: they become the display order of the saved rows.
type IDGroups []IDGroup

// Len returns the total number of ids across all groups.
func (g IDGroups) Len() int {
	n := 0
	for _, group := range g {
		n += len(group.IDs)
	}
	return n
}

// set replaces the ids of key, keeping its original position.
func (g IDGroups) set(key string, ids []int64) IDGroups {
	for i := range g {
		if g[i].Key == key {
			g[i].IDs = ids
			return g
		}
	}
	return append(g, IDGroup{Key: key, IDs: ids})
}

// appendID adds id to the end of key's list, creating the group on first use.
func (g IDGroups) appendID(key string, id int64) IDGroups {
	for i := range g {
		if g[i].Key == key {
			g[i].IDs = append(g[i].IDs, id)
			return g
		}
	}
	return append(g, IDGroup{Key: key, IDs: []int64{id}})
}

// UnmarshalJSON decodes a JSON object while keeping its key order.
//
// Anything other than an object (array, string, null) decodes to an empty
// mapping. A group value may be a list of ids or a single id.
func (g *IDGroups) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		*g = IDGroups{}
		return nil
	}

	groups := IDGroups{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected group key %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("group %q: %w", key, err)
		}

		ids, err := decodeIDList(raw)
		if err != nil {
			return fmt.Errorf("group %q: %w", key, err)
		}
		groups = groups.set(key, ids)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*g = groups
	return nil
}

// decodeIDList reads a group value: a list of ids, a single id, or an object
// whose values are taken in key order. Values that are not ids decode to 0 so
// row validation rejects them.
func decodeIDList(raw json.RawMessage) ([]int64, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		if tok == nil {
			return []int64{}, nil
		}
		return []int64{toID(tok)}, nil
	}

	ids := []int64{}
	for dec.More() {
		if delim == '{' {
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
		}

		var item any
		if err := dec.Decode(&item); err != nil {
			return nil, err
		}
		ids = append(ids, toID(item))
	}
	return ids, nil
}

// GroupsFromFormPairs collects `name[group][]=id` (or `name[group][n]=id`,
// or `name[group]=id`) pairs into an ordered mapping. A bare `name=value`
// pair is not a mapping and contributes nothing.
func GroupsFromFormPairs(name string, pairs []validation.FormPair) IDGroups {
	groups := IDGroups{}
	prefix := name + "["

	for _, pair := range pairs {
		rest, ok := strings.CutPrefix(pair.Key, prefix)
		if !ok {
			continue
		}
		key, _, ok := strings.Cut(rest, "]")
		if !ok {
			continue
		}
		groups = groups.appendID(key, toID(pair.Value))
	}

	return groups
}

// IDsFromFormPairs collects `name[]=id` (or `name[n]=id`) pairs in order.
func IDsFromFormPairs(name string, pairs []validation.FormPair) []int64 {
	var ids []int64
	prefix := name + "["

	for _, pair := range pairs {
		if strings.HasPrefix(pair.Key, prefix) {
			ids = append(ids, toID(pair.Value))
		}
	}

	return ids
}

// DecodeGroupName URL-decodes a posted group key. The admin UI encodes group
// names before using them as keys, so "groupB%20Name" becomes "groupB Name".
// Malformed escapes are left as they are.
func DecodeGroupName(key string) string {
	if name, err := url.QueryUnescape(key); err == nil {
		return name
	}
	return strings.ReplaceAll(key, "+", " ")
}
