package store

import (
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

const (
	keyTagString  = 's'
	keyTagInteger = 'i'
)

// encodeID maps a record identifier to its bucket key. Integers of any width
// and signedness map to the same key for the same numeric value, since
// decoding may return either int64 or uint64.
func encodeID(id any) ([]byte, error) {
	switch v := id.(type) {
	case string:
		if v == "" {
			return nil, errors.Wrap(ErrInvalidID, "empty string")
		}
		return append([]byte{keyTagString}, v...), nil
	case uuid.UUID:
		return append([]byte{keyTagString}, v.String()...), nil
	case int:
		return strconv.AppendInt([]byte{keyTagInteger}, int64(v), 10), nil
	case int8:
		return strconv.AppendInt([]byte{keyTagInteger}, int64(v), 10), nil
	case int16:
		return strconv.AppendInt([]byte{keyTagInteger}, int64(v), 10), nil
	case int32:
		return strconv.AppendInt([]byte{keyTagInteger}, int64(v), 10), nil
	case int64:
		return strconv.AppendInt([]byte{keyTagInteger}, v, 10), nil
	case uint:
		return strconv.AppendUint([]byte{keyTagInteger}, uint64(v), 10), nil
	case uint8:
		return strconv.AppendUint([]byte{keyTagInteger}, uint64(v), 10), nil
	case uint16:
		return strconv.AppendUint([]byte{keyTagInteger}, uint64(v), 10), nil
	case uint32:
		return strconv.AppendUint([]byte{keyTagInteger}, uint64(v), 10), nil
	case uint64:
		return strconv.AppendUint([]byte{keyTagInteger}, v, 10), nil
	case nil:
		return nil, errors.Wrap(ErrInvalidID, "nil")
	default:
		return nil, errors.Wrapf(ErrInvalidID, "unsupported id type %T", id)
	}
}

// keyString renders a key for logs and errors.
func keyString(key []byte) string {
	if len(key) == 0 {
		return ""
	}
	return string(key[1:])
}

func newID() string {
	return uuid.NewString()
}
