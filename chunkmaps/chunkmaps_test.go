package chunkmaps

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/milk9111/onelevel/chunk"
	"github.com/milk9111/onelevel/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func useDir(t *testing.T, dir string) {
	t.Helper()
	prev := Dir
	Dir = dir
	t.Cleanup(func() { Dir = prev })
}

func TestEmbeddedMapsRegister(t *testing.T) {
	useDir(t, t.TempDir())
	reg := chunk.NewRegistry()

	specs, err := LoadAll(reg, nil)
	require.NoError(t, err)
	require.Len(t, specs, 2)

	m, ok := reg.Lookup("crossroads_02")
	require.True(t, ok)
	assert.Equal(t, "crossroads", m.Name)
	require.Equal(t, 3, m.Len())

	c, ok := m.Chunk("crossroads_03")
	require.True(t, ok)
	assert.Equal(t, common.Vec2{X: 1344}, c.Offset)
	assert.Equal(t, []common.Rect{{X: -64, Y: 288, W: 64, H: 32}}, c.Passages)
	assert.NotNil(t, c.OnInit)

	g, ok := reg.Map("greenpath")
	require.True(t, ok)
	assert.Equal(t, []string{"greenpath_01", "greenpath_02"}, []string{g.Chunks[0].Scene, g.Chunks[1].Scene})
}

func TestDiskOverridesEmbedded(t *testing.T) {
	dir := t.TempDir()
	useDir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greenpath.yaml"), []byte(`
chunks:
  - scene: greenpath_01
    offset: {x: 10, y: 20}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "queens.yml"), []byte("chunks: []\n"), 0o644))

	spec, err := LoadMap("greenpath")
	require.NoError(t, err)
	assert.Equal(t, "greenpath", spec.Name)
	require.Len(t, spec.Chunks, 1)
	assert.Equal(t, OffsetSpec{X: 10, Y: 20}, spec.Chunks[0].Offset)

	_, ok := ModTime("greenpath")
	assert.True(t, ok)
	_, ok = ModTime("crossroads")
	assert.False(t, ok)

	names, err := Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"crossroads.yaml", "greenpath.yaml", "queens.yml"}, names)
}

func TestBuildErrors(t *testing.T) {
	useDir(t, t.TempDir())
	tests := []struct {
		name string
		spec MapSpec
	}{
		{"empty_passage", MapSpec{Name: "a", Chunks: []ChunkSpec{{Scene: "a_01", Passages: []RectSpec{{W: 0, H: 32}}}}}},
		{"missing_script", MapSpec{Name: "b", Chunks: []ChunkSpec{{Scene: "b_01", Script: "nope.tengo"}}}},
		{"duplicate_scene", MapSpec{Name: "c", Chunks: []ChunkSpec{{Scene: "c_01"}, {Scene: "c_01"}}}},
		{"no_name", MapSpec{Chunks: []ChunkSpec{{Scene: "d_01"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.spec.Build(nil)
			assert.Error(t, err)
		})
	}
}

func TestLoadAllSkipsConflictingMaps(t *testing.T) {
	dir := t.TempDir()
	useDir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stolen.yaml"), []byte(`
name: stolen
chunks:
  - scene: crossroads_01
`), 0o644))

	reg := chunk.NewRegistry()
	specs, err := LoadAll(reg, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, chunk.ErrDuplicateScene)
	assert.Len(t, specs, 2)
	_, ok := reg.Map("stolen")
	assert.False(t, ok)
}

func TestWithOffsetsDump(t *testing.T) {
	useDir(t, t.TempDir())
	spec, err := LoadMap("crossroads")
	require.NoError(t, err)

	moved, err := chunk.NewMap("crossroads",
		&chunk.Chunk{Scene: "crossroads_01"},
		&chunk.Chunk{Scene: "crossroads_02", Offset: common.Vec2{X: 672, Y: -32}},
	)
	require.NoError(t, err)

	data, err := spec.WithOffsets(moved).Dump()
	require.NoError(t, err)

	var out MapSpec
	require.NoError(t, yaml.Unmarshal(data, &out))
	require.Len(t, out.Chunks, 3)
	assert.Equal(t, OffsetSpec{X: 672, Y: -32}, out.Chunks[1].Offset)
	assert.Equal(t, OffsetSpec{X: 1344}, out.Chunks[2].Offset, "chunks missing from the map keep their offset")
	assert.Equal(t, "boss_arena.tengo", out.Chunks[1].Script)
	assert.Equal(t, OffsetSpec{X: 640}, spec.Chunks[1].Offset, "original spec untouched")
}

func TestUsesScript(t *testing.T) {
	spec := MapSpec{Name: "m", Chunks: []ChunkSpec{{Scene: "a", Script: "camera_locks.tengo"}}}
	assert.True(t, spec.UsesScript("camera_locks.tengo"))
	assert.True(t, spec.UsesScript("/tmp/chunkmaps/scripts/camera_locks.tengo"))
	assert.False(t, spec.UsesScript("boss_arena.tengo"))
}

func TestWatcherReportsChanges(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcherFor(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "camera.tengo"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "crossroads.yaml"), []byte("x"), 0o644))

	seen := map[ChangeKind]string{}
	timeout := time.After(5 * time.Second)
	for len(seen) < 2 {
		select {
		case ev := <-w.Events:
			assert.NotEqual(t, "notes.txt", filepath.Base(ev.Path))
			seen[ev.Kind] = filepath.Base(ev.Path)
		case err := <-w.Errors:
			require.NoError(t, err)
		case <-timeout:
			t.Fatalf("timed out, saw %v", seen)
		}
	}
	assert.Equal(t, "camera.tengo", seen[ChangeScript])
	assert.Equal(t, "crossroads.yaml", seen[ChangeMap])
	assert.NoError(t, w.Close())
}
