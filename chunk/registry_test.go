package chunk

import (
	"testing"

	"github.com/milk9111/onelevel/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMap(t *testing.T, name string, scenes ...string) *Map {
	t.Helper()
	chunks := make([]*Chunk, 0, len(scenes))
	for i, s := range scenes {
		chunks = append(chunks, &Chunk{Scene: s, Offset: common.Vec2{X: float64(i) * 100}})
	}
	m, err := NewMap(name, chunks...)
	require.NoError(t, err)
	return m
}

func TestNewMap(t *testing.T) {
	cases := []struct {
		name    string
		mapName string
		chunks  []*Chunk
		wantErr bool
	}{
		{"ok", "crossroads", []*Chunk{{Scene: "Crossroads_01"}, {Scene: "Crossroads_02"}}, false},
		{"empty_name", "", []*Chunk{{Scene: "Town"}}, true},
		{"nil_chunk", "town", []*Chunk{nil}, true},
		{"blank_scene", "town", []*Chunk{{Scene: " "}}, true},
		{"dup_scene", "town", []*Chunk{{Scene: "Town"}, {Scene: "Town"}}, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m, err := NewMap(c.mapName, c.chunks...)
			if c.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(c.chunks), m.Len())
			for _, ch := range c.chunks {
				got, ok := m.Chunk(ch.Scene)
				assert.True(t, ok)
				assert.Same(t, ch, got)
			}
		})
	}
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	a := mustMap(t, "crossroads", "Crossroads_01", "Crossroads_02")
	b := mustMap(t, "greenpath", "Fungus1_01")
	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))

	m, ok := r.Lookup("Crossroads_02")
	require.True(t, ok)
	assert.Same(t, a, m)

	m, c, ok := r.ChunkOf("Fungus1_01")
	require.True(t, ok)
	assert.Same(t, b, m)
	assert.Equal(t, "Fungus1_01", c.Scene)

	_, ok = r.Lookup("Tutorial_01")
	assert.False(t, ok)

	assert.Equal(t, []*Map{a, b}, r.Maps())
}

func TestRegistryDuplicateLeavesNothingBehind(t *testing.T) {
	r := NewRegistry()
	a := mustMap(t, "crossroads", "Crossroads_01", "Town")
	b := mustMap(t, "dirtmouth", "Tutorial_01", "Town")

	require.NoError(t, r.Register(a))
	err := r.Register(b)
	require.ErrorIs(t, err, ErrDuplicateScene)

	_, ok := r.Lookup("Tutorial_01")
	assert.False(t, ok, "failed map must not be partially registered")
	owner, ok := r.Lookup("Town")
	require.True(t, ok)
	assert.Same(t, a, owner)
	_, ok = r.Map("dirtmouth")
	assert.False(t, ok)
	assert.Len(t, r.Maps(), 1)
}

func TestRegistryDuplicateMapName(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(mustMap(t, "crossroads", "Crossroads_01")))
	err := r.Register(mustMap(t, "crossroads", "Crossroads_02"))
	assert.ErrorIs(t, err, ErrDuplicateMap)
}

func TestRegistryReplaceAndUnregister(t *testing.T) {
	r := NewRegistry()
	a := mustMap(t, "crossroads", "Crossroads_01", "Crossroads_02")
	other := mustMap(t, "greenpath", "Fungus1_01")
	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(other))

	a2 := mustMap(t, "crossroads", "Crossroads_01", "Crossroads_07")
	old, err := r.Replace(a2)
	require.NoError(t, err)
	assert.Same(t, a, old)

	_, ok := r.Lookup("Crossroads_02")
	assert.False(t, ok)
	m, ok := r.Lookup("Crossroads_07")
	require.True(t, ok)
	assert.Same(t, a2, m)
	assert.Equal(t, []*Map{a2, other}, r.Maps())

	_, err = r.Replace(mustMap(t, "crossroads", "Fungus1_01"))
	assert.ErrorIs(t, err, ErrDuplicateScene)

	_, err = r.Replace(mustMap(t, "cliffs", "Cliffs_01"))
	assert.ErrorIs(t, err, ErrUnknownMap)

	removed, ok := r.Unregister("crossroads")
	require.True(t, ok)
	assert.Same(t, a2, removed)
	_, ok = r.Lookup("Crossroads_01")
	assert.False(t, ok)
	assert.Equal(t, []*Map{other}, r.Maps())
}
