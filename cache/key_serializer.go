package cache

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// KeySeparator delimits cache key segments.
const KeySeparator = "::"

// defaultKeySerializer joins the method name with one segment per argument.
// Scalars and Stringers serialize directly; structured arguments are
// msgpack-encoded and hex-dumped, which is deterministic for structs (field
// order is fixed by the type). Map arguments are not guaranteed stable and
// should be avoided in keys.
type defaultKeySerializer struct{}

// NewDefaultKeySerializer creates the default key serializer.
func NewDefaultKeySerializer() KeySerializer {
	return &defaultKeySerializer{}
}

// SerializeKey builds a cache key from the method name and args.
func (s *defaultKeySerializer) SerializeKey(method string, args ...any) string {
	if len(args) == 0 {
		return method
	}

	parts := make([]string, 0, len(args)+1)
	parts = append(parts, method)
	for _, arg := range args {
		parts = append(parts, s.serializeValue(arg))
	}
	return strings.Join(parts, KeySeparator)
}

func (s *defaultKeySerializer) serializeValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "nil"
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return fmt.Sprintf("%v", val)
	default:
		data, err := msgpack.Marshal(val)
		if err != nil {
			// Stability over perfection: fall back to type info rather
			// than failing the read path.
			return fmt.Sprintf("unencodable:%T", val)
		}
		return "mp:" + hex.EncodeToString(data)
	}
}
