package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/layer-3/carbx/core"
)

var errUnsupportedShape = errors.New("unsupported grouped orders shape")

// wrapperKeys are the envelope fields the backend has been seen to use, in precedence order
var wrapperKeys = []string{"data", "items", "orders"}

// DecodeGroupedOrders normalizes every known grouped-orders response shape to a slice:
// a bare array, an object wrapping the array under data/items/orders, or an object
// keyed arbitrarily whose values are groups (document order is kept).
func DecodeGroupedOrders(raw []byte) ([]core.GroupedOrder, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errUnsupportedShape
	}

	switch trimmed[0] {
	case '[':
		var groups []core.GroupedOrder
		if err := json.Unmarshal(trimmed, &groups); err != nil {
			return nil, err
		}
		return groups, nil
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return nil, err
		}
		for _, key := range wrapperKeys {
			value, ok := fields[key]
			if !ok {
				continue
			}
			var groups []core.GroupedOrder
			if err := json.Unmarshal(value, &groups); err == nil && groups != nil {
				return groups, nil
			}
		}
		return decodeGroupMap(trimmed)
	default:
		return nil, errUnsupportedShape
	}
}

// decodeGroupMap decodes an object of groups keeping the key order of the document
func decodeGroupMap(raw []byte) ([]core.GroupedOrder, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	groups := []core.GroupedOrder{}
	for dec.More() {
		key, err := dec.Token()
		if err != nil {
			return nil, err
		}
		var group core.GroupedOrder
		if err := dec.Decode(&group); err != nil {
			return nil, fmt.Errorf("group %v: %w", key, err)
		}
		groups = append(groups, group)
	}
	return groups, nil
}
