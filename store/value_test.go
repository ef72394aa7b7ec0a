package store

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jasonbaker/agentm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueRoundTrip(t *testing.T) {
	rec := agentm.NewRecord(agentm.IDKey, "x", "nested", agentm.NewRecord("b", 1, "a", 2), "list", []any{"p", "q"})
	raw, err := appendValue(nil, vfDefault, 300, rec)
	require.NoError(t, err)

	got, meta, err := decodeRecord(raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), meta.ModCount)
	assert.Equal(t, rec.Keys(), got.Keys())

	nested, ok := got.Get("nested")
	require.True(t, ok)
	require.IsType(t, &agentm.Record{}, nested)
	assert.Equal(t, []string{"b", "a"}, nested.(*agentm.Record).Keys())
	assert.Equal(t, []any{"p", "q"}, must(got.Get("list")))
}

func TestValueDecodeErrors(t *testing.T) {
	var vle value
	var derr *DataError

	err := vle.decode([]byte{1})
	require.True(t, errors.As(err, &derr))
	assert.Contains(t, err.Error(), "at least 3 bytes")

	err = vle.decode([]byte{byte(vfDefault), 0x80, 0x80})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad mod count")

	err = vle.decode([]byte{0x7f, 0, 0x80})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported flags")

	_, _, err = decodeRecord([]byte{byte(vfDefault), 1, 0xc1})
	require.True(t, errors.As(err, &derr))
	assert.Contains(t, err.Error(), "failed to decode record")
}

func TestEncodeID(t *testing.T) {
	u := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	tests := []struct {
		id  any
		key string
	}{
		{"abc", "sabc"},
		{u, "s6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
		{u.String(), "s6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
		{42, "i42"},
		{int64(-5), "i-5"},
		{uint64(42), "i42"},
		{int8(42), "i42"},
	}
	for _, tt := range tests {
		key, err := encodeID(tt.id)
		require.NoError(t, err, "%#v", tt.id)
		assert.Equal(t, tt.key, string(key), "%#v", tt.id)
	}

	for _, bad := range []any{nil, "", 1.5, []byte("x"), true} {
		_, err := encodeID(bad)
		assert.ErrorIs(t, err, ErrInvalidID, "%#v", bad)
	}

	assert.Equal(t, "abc", keyString([]byte("sabc")))
	assert.Equal(t, "", keyString(nil))
	assert.Len(t, newID(), 36)
}

func TestDataErrorTruncates(t *testing.T) {
	data := make([]byte, 200)
	err := dataErrf(data, 0, nil, "bad")
	assert.Contains(t, err.Error(), "bad: (200) ")
	assert.Contains(t, err.Error(), "...")
}
