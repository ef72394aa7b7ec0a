package agentm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

func TestRecordKeepsInsertionOrder(t *testing.T) {
	rec := NewRecord("c", 1, "a", 2, "b", 3)
	assert.Equal(t, []string{"c", "a", "b"}, rec.Keys())

	rec.Set("a", 20)
	assert.Equal(t, []string{"c", "a", "b"}, rec.Keys())
	v, ok := rec.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 20, v)

	rec.Delete("c")
	rec.Delete("missing")
	rec.Set("d", 4)
	assert.Equal(t, []string{"a", "b", "d"}, rec.Keys())
	assert.Equal(t, 3, rec.Len())

	var keys []string
	for k := range rec.All() {
		keys = append(keys, k)
		if k == "b" {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestRecordFromMap(t *testing.T) {
	rec, err := RecordFrom(map[string]any{
		"z":    1,
		"home": map[string]any{"city": "Oslo"},
		"list": []any{map[string]any{"x": 1}, "y"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"home", "list", "z"}, rec.Keys())

	home, _ := rec.Get("home")
	require.IsType(t, &Record{}, home)
	list, _ := rec.Get("list")
	require.IsType(t, []any{}, list)
	assert.IsType(t, &Record{}, list.([]any)[0])

	same, err := RecordFrom(rec)
	require.NoError(t, err)
	assert.Same(t, rec, same)

	empty, err := RecordFrom(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())

	_, err = RecordFrom(42)
	assert.Error(t, err)
}

func TestRecordCloneIsDeep(t *testing.T) {
	p, err := people.New(map[string]any{"name": "Ann", "home": map[string]any{"city": "Oslo"}})
	require.NoError(t, err)
	team := NewRecord("lead", p, "tags", []any{"a", NewRecord("b", 1)})

	c := team.Clone()
	lead, _ := c.Get("lead")
	require.IsType(t, &Record{}, lead)
	lead.(*Record).Set("name", "Bob")
	assert.Equal(t, "Ann", p.Name())

	tags, _ := c.Get("tags")
	tags.([]any)[1].(*Record).Set("b", 2)
	orig, _ := team.Get("tags")
	b, _ := orig.([]any)[1].(*Record).Get("b")
	assert.Equal(t, 1, b)
}

func TestRecordMsgpackKeepsOrderAndNesting(t *testing.T) {
	p, err := people.Make("name", "Ann", "age", 30)
	require.NoError(t, err)
	rec := NewRecord("_id", "x1", "zeta", 1.5, "lead", p, "tags", []any{"a", "b"}, "alpha", uint64(7))

	data, err := msgpack.Marshal(rec)
	require.NoError(t, err)

	var out Record
	require.NoError(t, msgpack.Unmarshal(data, &out))
	assert.Equal(t, []string{"_id", "zeta", "lead", "tags", "alpha"}, out.Keys())

	lead, _ := out.Get("lead")
	require.IsType(t, &Record{}, lead)
	assert.Equal(t, []string{"name", "age", "_ns"}, lead.(*Record).Keys())
	age, _ := lead.(*Record).Get("age")
	assert.Equal(t, int64(30), age)

	tags, _ := out.Get("tags")
	assert.Equal(t, []any{"a", "b"}, tags)
	zeta, _ := out.Get("zeta")
	assert.Equal(t, 1.5, zeta)
}

func TestRecordJSON(t *testing.T) {
	rec := NewRecord("_id", 1, "name", "x", "home", map[string]any{"city": "Oslo"}, "tags", []any{"a"})
	data, err := rec.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"_id":1,"name":"x","home":{"city":"Oslo"},"tags":["a"]}`, string(data))
	assert.Equal(t, string(data), rec.String())

	var nilRec *Record
	data, err = nilRec.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestRecordYAMLKeepsOrder(t *testing.T) {
	src := "b: 1\na:\n  z: true\n  y: [1, two]\nbase: &base {k: v}\nref: *base\n"
	var rec Record
	require.NoError(t, yaml.Unmarshal([]byte(src), &rec))
	assert.Equal(t, []string{"b", "a", "base", "ref"}, rec.Keys())

	b, _ := rec.Get("b")
	assert.Equal(t, int64(1), b)

	a, _ := rec.Get("a")
	require.IsType(t, &Record{}, a)
	assert.Equal(t, []string{"z", "y"}, a.(*Record).Keys())
	y, _ := a.(*Record).Get("y")
	assert.Equal(t, []any{int64(1), "two"}, y)

	v, ok := rec.Lookup("ref.k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	var bad Record
	assert.Error(t, yaml.Unmarshal([]byte("- 1\n- 2\n"), &bad))
}

func TestRecordWalk(t *testing.T) {
	rec := NewRecord("a", NewRecord("x", 1), "s", "str")

	inner, err := rec.Walk("a", "b", "c")
	require.NoError(t, err)
	inner.Set("k", "v")
	v, ok := rec.Lookup("a.b.c.k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	_, err = rec.Walk("s", "t")
	var pe *PathError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 0, pe.Segment)
	assert.Contains(t, err.Error(), "not a mapping")
	s, _ := rec.Get("s")
	assert.Equal(t, "str", s)

	_, ok = rec.Lookup("s.t")
	assert.False(t, ok)
	_, ok = rec.Lookup("nope")
	assert.False(t, ok)
}
