package agentm

import (
	"math"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWritableStoresAcceptedValues(t *testing.T) {
	p, err := people.Make()
	require.NoError(t, err)

	for _, name := range []string{"Ann", "Bob", "x"} {
		require.NoError(t, p.SetName(name))
		assert.Equal(t, name, p.Name())
	}

	require.NoError(t, personAge.Set(p, 42))
	assert.Equal(t, 42, personAge.Get(p))
}

func TestWritableRejectsInvalidValues(t *testing.T) {
	p, err := people.Make("name", "Ann", "age", 30)
	require.NoError(t, err)

	err = p.SetName("")
	require.ErrorIs(t, err, ErrValidationFailed)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "name", ve.Key)
	assert.Equal(t, "Ann", p.Name())

	require.ErrorIs(t, personAge.Set(p, -1), ErrValidationFailed)
	require.ErrorIs(t, personAge.Set(p, 200), ErrValidationFailed)
	assert.Equal(t, 30, personAge.Get(p))

	empty, err := people.Make()
	require.NoError(t, err)
	require.ErrorIs(t, empty.SetName(""), ErrValidationFailed)
	assert.False(t, empty.Record().Has("name"))
}

func TestWritableConvertsDecodedNumbers(t *testing.T) {
	rec := NewRecord("age", int64(30), "ratio", float32(0.5), "name", 7)

	age, ok := personAge.Lookup(rec)
	assert.True(t, ok)
	assert.Equal(t, 30, age)

	assert.InDelta(t, 0.5, Readonly[float64]("ratio").Get(rec), 1e-9)

	_, ok = personName.Lookup(rec)
	assert.False(t, ok)
	assert.Equal(t, "", personName.Get(rec))

	_, ok = personName.Lookup(NewRecord())
	assert.False(t, ok)
}

func TestWritableRejectsOutOfRangeNumbers(t *testing.T) {
	rec := NewRecord("small", int64(300), "neg", int64(-1), "big", uint64(math.MaxUint64), "ok", int64(100))

	_, ok := Readonly[int8]("small").Lookup(rec)
	assert.False(t, ok)
	_, ok = Readonly[uint]("neg").Lookup(rec)
	assert.False(t, ok)
	_, ok = Readonly[int64]("big").Lookup(rec)
	assert.False(t, ok)
	_, ok = Readonly[float32]("ok").Lookup(rec)
	assert.True(t, ok)

	v8, ok := Readonly[int8]("ok").Lookup(rec)
	assert.True(t, ok)
	assert.Equal(t, int8(100), v8)
	u16, ok := Readonly[uint16]("small").Lookup(rec)
	assert.True(t, ok)
	assert.Equal(t, uint16(300), u16)
	n, ok := Readonly[int]("neg").Lookup(rec)
	assert.True(t, ok)
	assert.Equal(t, -1, n)

	rec.Set("huge", float64(math.MaxFloat64))
	_, ok = Readonly[float32]("huge").Lookup(rec)
	assert.False(t, ok)
}

func TestWritableMapsRoundTrip(t *testing.T) {
	meta := Writable[map[string]any]("meta", nil)
	links := Writable[[]map[string]any]("links", nil)
	rec := NewRecord()

	m := map[string]any{"city": "Oslo", "geo": map[string]any{"lat": 59.9}, "tags": []any{"a", map[string]any{"b": 1}}}
	require.NoError(t, meta.Set(rec, m))
	got, ok := meta.Lookup(rec)
	require.True(t, ok)
	assert.Equal(t, m, got)

	got["city"] = "Bergen"
	assert.Equal(t, "Oslo", meta.Get(rec)["city"])

	l := []map[string]any{{"href": "/a"}, {"href": "/b", "rel": "next"}}
	require.NoError(t, links.Set(rec, l))
	gotLinks, ok := links.Lookup(rec)
	require.True(t, ok)
	assert.Equal(t, l, gotLinks)

	rec.Set("links", []any{NewRecord("href", "/a"), "oops"})
	_, ok = links.Lookup(rec)
	assert.False(t, ok)
	_, ok = meta.Lookup(NewRecord("meta", "text"))
	assert.False(t, ok)
}

func TestSetLeavesCallerSliceAlone(t *testing.T) {
	items := []any{map[string]any{"k": "v"}, 1}
	list := Writable[[]any]("items", nil)
	rec := NewRecord()
	require.NoError(t, list.Set(rec, items))
	assert.IsType(t, map[string]any{}, items[0])

	stored, ok := list.Lookup(rec)
	require.True(t, ok)
	assert.IsType(t, &Record{}, stored[0])

	NewRecord("items", items)
	assert.IsType(t, map[string]any{}, items[0])
}

func TestReadonlyHasNoSetter(t *testing.T) {
	_, ok := reflect.TypeOf(idField).MethodByName("Set")
	assert.False(t, ok)
	_, ok = reflect.TypeOf(teamName).MethodByName("Set")
	assert.False(t, ok)

	p, err := people.New(map[string]any{"_id": "p1"})
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID())

	p.Record().Set(IDKey, "p2")
	assert.Equal(t, "p2", p.ID())

	team, err := teams.Make("name", "core")
	require.NoError(t, err)
	assert.Equal(t, "core", teamName.Get(team))
}

func TestReferenceCoercesOnceInPlace(t *testing.T) {
	p, err := people.New(map[string]any{"name": "Ann", "home": map[string]any{"city": "Oslo"}})
	require.NoError(t, err)

	raw, _ := p.Get("home")
	require.IsType(t, &Record{}, raw)

	home, err := personHome.Get(p)
	require.NoError(t, err)
	require.NotNil(t, home)
	assert.Equal(t, "Oslo", addressCity.Get(home))
	assert.Equal(t, "addresses", home.Collection())
	assert.Same(t, raw, home.Record())

	stored, _ := p.Get("home")
	assert.Same(t, home, stored)

	again, err := personHome.Get(p)
	require.NoError(t, err)
	assert.Same(t, home, again)

	require.NoError(t, addressCity.Set(home, "Bergen"))
	again, err = personHome.Get(p)
	require.NoError(t, err)
	assert.Equal(t, "Bergen", addressCity.Get(again))
}

func TestReferenceSet(t *testing.T) {
	p, err := people.Make()
	require.NoError(t, err)

	home, err := personHome.Get(p)
	require.NoError(t, err)
	assert.Nil(t, home)

	require.NoError(t, personHome.SetRaw(p, map[string]any{"city": "Oslo"}))
	stored, _ := p.Get("home")
	require.IsType(t, &Address{}, stored)

	a, err := addresses.Make("city", "Rome")
	require.NoError(t, err)
	personHome.Set(p, a)
	home, err = personHome.Get(p)
	require.NoError(t, err)
	assert.Same(t, a, home)

	require.NoError(t, personHome.SetRaw(p, a))
	stored, _ = p.Get("home")
	assert.Same(t, a, stored)
}

func TestReferenceCoercionErrorsPropagate(t *testing.T) {
	p, err := people.New(map[string]any{"home": "not a mapping"})
	require.NoError(t, err)

	_, err = personHome.Get(p)
	require.Error(t, err)
	raw, _ := p.Get("home")
	assert.Equal(t, "not a mapping", raw)

	assert.Error(t, personHome.SetRaw(p, 12))
}

func TestReferenceListCoercesInOrder(t *testing.T) {
	team, err := teams.New(map[string]any{
		"members": []any{
			map[string]any{"name": "Ann"},
			map[string]any{"name": "Bob"},
			map[string]any{"name": "Cid"},
		},
	})
	require.NoError(t, err)

	members, err := teamMembers.Get(team)
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Equal(t, []string{"Ann", "Bob", "Cid"}, []string{members[0].Name(), members[1].Name(), members[2].Name()})
	for _, m := range members {
		assert.Equal(t, "people", m.Collection())
	}

	require.NoError(t, members[1].SetName("Bea"))

	again, err := teamMembers.Get(team)
	require.NoError(t, err)
	assert.Equal(t, "Bea", again[1].Name())
	for i := range members {
		assert.Same(t, members[i], again[i])
	}

	stored, _ := team.Get("members")
	assert.Same(t, members[0], stored.([]any)[0])
}

func TestReferenceListDottedPathCreatesParents(t *testing.T) {
	rec := NewRecord()
	members, err := teamRoster.Get(rec)
	require.NoError(t, err)
	assert.NotNil(t, members)
	assert.Empty(t, members)
	assert.Equal(t, `{"roster":{"current":{}}}`, rec.String())

	ann, err := people.Make("name", "Ann")
	require.NoError(t, err)
	require.NoError(t, teamRoster.Append(rec, ann))
	bob, err := people.Make("name", "Bob")
	require.NoError(t, err)
	require.NoError(t, teamRoster.Append(rec, bob))

	members, err = teamRoster.Get(rec)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Same(t, ann, members[0])
	assert.Same(t, bob, members[1])
	assert.Equal(t, "roster.current.members", teamRoster.Path())
}

func TestReferenceListPathConflicts(t *testing.T) {
	rec := NewRecord("roster", "retired")
	_, err := teamRoster.Get(rec)
	var pe *PathError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 0, pe.Segment)
	assert.Equal(t, `{"roster":"retired"}`, rec.String())

	rec = NewRecord("members", "Ann")
	_, err = teamMembers.Get(rec)
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, err.Error(), "not a list")
	require.Error(t, teamMembers.Append(rec, &Person{}))
}

func TestReferenceListSetReplaces(t *testing.T) {
	team, err := teams.New(map[string]any{"members": []any{map[string]any{"name": "Old"}}})
	require.NoError(t, err)
	old, _ := team.Get("members")

	ann, err := people.Make("name", "Ann")
	require.NoError(t, err)
	require.NoError(t, teamMembers.Set(team, []*Person{ann}))

	members, err := teamMembers.Get(team)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Same(t, ann, members[0])
	assert.Len(t, old.([]any), 1)
	assert.IsType(t, &Record{}, old.([]any)[0])

	require.NoError(t, teamMembers.Set(team, nil))
	members, err = teamMembers.Get(team)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestReferenceListAcceptsTypedSlices(t *testing.T) {
	ann, err := people.Make("name", "Ann")
	require.NoError(t, err)
	rec := NewRecord("members", []*Person{ann})

	members, err := teamMembers.Get(rec)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Same(t, ann, members[0])
	stored, _ := rec.Get("members")
	assert.IsType(t, []any{}, stored)
}
