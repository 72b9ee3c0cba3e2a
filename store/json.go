package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringList persists a []string as a JSON array in a single text column.
// It works the same on both wired dialects, unlike native array columns.
type StringList []string

var (
	_ driver.Valuer = StringList(nil)
	_ interface {
		Scan(src any) error
	} = (*StringList)(nil)
)

// Value encodes the list as JSON. A nil list is stored as an empty array so
// reads never have to distinguish NULL from empty.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return json.Marshal(l)
}

// Scan decodes a JSON array from TEXT or BLOB storage.
func (l *StringList) Scan(src any) error {
	if src == nil {
		*l = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("string list: unsupported source type %T", src)
	}
	if len(data) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(data, l)
}

// emptyJSONArray and emptyJSONObject are the defaults applied to omitted
// opaque payloads on append paths.
var (
	emptyJSONArray  = json.RawMessage("[]")
	emptyJSONObject = json.RawMessage("{}")
)

// OrEmptyArray returns raw unchanged unless it is empty, in which case a
// JSON empty array is returned.
func OrEmptyArray(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return emptyJSONArray
	}
	return raw
}

// OrEmptyObject returns raw unchanged unless it is empty, in which case a
// JSON empty object is returned.
func OrEmptyObject(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return emptyJSONObject
	}
	return raw
}
