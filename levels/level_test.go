package levels

import (
	"testing"
	"testing/fstest"

	"github.com/milk9111/onelevel/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedLevelsLoad(t *testing.T) {
	names, err := Names(LevelsFS)
	require.NoError(t, err)
	require.Contains(t, names, "town")
	require.Contains(t, names, "crossroads_02_boss")

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			lvl, err := LoadLevelFromFS(name)
			require.NoError(t, err)
			assert.False(t, lvl.Bounds().Empty())
			assert.NotEmpty(t, lvl.SolidRects())
		})
	}
}

func TestLoadRejectsBadLevels(t *testing.T) {
	fsys := fstest.MapFS{
		"flat.json":   {Data: []byte(`{"width":0,"height":3}`)},
		"short.json":  {Data: []byte(`{"width":2,"height":2,"layers":[[1,1,1]]}`)},
		"broken.json": {Data: []byte(`{"width":`)},
	}
	for _, name := range []string{"flat", "short", "broken", "missing"} {
		_, err := Load(fsys, name)
		assert.Error(t, err, name)
	}
}

func TestSolidRectsMerge(t *testing.T) {
	lvl := &Level{
		Width:  4,
		Height: 3,
		Layers: [][]int{
			{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
			{
				1, 1, 0, 0,
				1, 1, 0, 1,
				0, 0, 0, 1,
			},
		},
		LayerMeta: []LayerMeta{{HasPhysics: false}, {HasPhysics: true}},
	}

	got := lvl.SolidRects()

	assert.Equal(t, []common.Rect{
		{X: 0, Y: 0, W: 64, H: 64},
		{X: 96, Y: 32, W: 32, H: 64},
	}, got)
}

func TestEntityProps(t *testing.T) {
	e := Entity{Type: EntityTransition, X: 10, Y: 20, Props: map[string]interface{}{
		"target": "town",
		"w":      float64(32),
		"gate":   7,
	}}

	assert.Equal(t, "town", e.Prop("target"))
	assert.Equal(t, "7", e.Prop("gate"))
	assert.Equal(t, "", e.Prop("missing"))
	assert.Equal(t, 32.0, e.Num("w", 1))
	assert.Equal(t, 96.0, e.Num("h", 96))
	assert.Equal(t, common.Vec2{X: 10, Y: 20}, e.Position())
}
