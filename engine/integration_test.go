package engine_test

import (
	"errors"
	"testing"

	"github.com/milk9111/onelevel/chunk"
	"github.com/milk9111/onelevel/common"
	"github.com/milk9111/onelevel/engine"
	"github.com/milk9111/onelevel/levels"
	"github.com/milk9111/onelevel/loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const frame = 1.0 / 60

func crossroads(t *testing.T) *chunk.Map {
	t.Helper()
	m, err := chunk.NewMap("crossroads",
		&chunk.Chunk{Scene: "crossroads_01"},
		&chunk.Chunk{Scene: "crossroads_02", Offset: common.Vec2{X: 640}},
		&chunk.Chunk{
			Scene:    "crossroads_03",
			Offset:   common.Vec2{X: 1344},
			Passages: []common.Rect{{X: -64, Y: 288, W: 64, H: 32}},
		},
	)
	require.NoError(t, err)
	return m
}

func TestChunkedTransitionOnEngine(t *testing.T) {
	log := zaptest.NewLogger(t)
	e := engine.New(engine.Options{Logger: log, SyncFetch: true})
	t.Cleanup(e.Close)

	reg := chunk.NewRegistry()
	require.NoError(t, reg.Register(crossroads(t)))
	p := loader.New(e, reg, loader.Options{Logger: log})
	p.Install()
	t.Cleanup(func() { _ = p.Close() })

	require.NoError(t, e.Boot("town"))
	require.NoError(t, p.Start())
	assert.Nil(t, p.Coordinator().ActiveMap())

	require.NotNil(t, e.BeginTransition("crossroads_01", "left"))
	e.Update(frame)
	e.Update(frame)

	assert.Equal(t, "crossroads_01", e.SceneName())
	assert.ElementsMatch(t, []string{"crossroads_01", "crossroads_02", "crossroads_03", "crossroads_02_boss"}, e.LoadedNames())
	assert.Equal(t, "crossroads_01", e.ActiveScene().Name())
	require.NotNil(t, p.Coordinator().CurrentChunk())
	assert.Equal(t, "crossroads_01", p.Coordinator().CurrentChunk().Scene())

	bias := loader.WorldBias
	assert.Equal(t, bias, e.Scene("crossroads_01").Terrain().Position())
	assert.Equal(t, bias.Add(common.Vec2{X: 640}), e.Scene("crossroads_02").Terrain().Position())
	assert.Equal(t, bias.Add(common.Vec2{X: 640}), e.Scene("crossroads_02_boss").Terrain().Position())
	assert.NotNil(t, e.Scene("crossroads_03").Object("passage/crossroads_03/0"))

	pos, _ := e.PlayerPosition()
	assert.Equal(t, bias.Add(common.Vec2{X: 64, Y: 256}), pos)

	// Walking into the next room promotes it without a transition.
	e.TeleportPlayer(bias.Add(common.Vec2{X: 700, Y: 256}))
	p.Update()

	assert.False(t, e.InTransition())
	assert.Equal(t, "crossroads_02", e.SceneName())
	assert.Equal(t, "crossroads_02", e.ActiveScene().Name())
	assert.NotNil(t, e.Scene("crossroads_01"), "previous room stays resident")
	assert.Equal(t, "crossroads_02", p.Coordinator().CurrentChunk().Scene())
}

func TestLeavingChunkMapOnEngine(t *testing.T) {
	log := zaptest.NewLogger(t)
	e := engine.New(engine.Options{Logger: log, SyncFetch: true})
	t.Cleanup(e.Close)

	reg := chunk.NewRegistry()
	require.NoError(t, reg.Register(crossroads(t)))
	p := loader.New(e, reg, loader.Options{Logger: log})
	p.Install()
	t.Cleanup(func() { _ = p.Close() })

	require.NoError(t, e.Boot("crossroads_01"))
	require.NoError(t, p.Start())
	e.Update(frame)
	e.Update(frame)
	require.Len(t, p.Coordinator().Chunks(), 3)

	require.NotNil(t, e.BeginTransition("town", "right"))
	e.Update(frame)

	assert.Equal(t, []string{"town"}, e.LoadedNames())
	assert.Nil(t, p.Coordinator().ActiveMap())
	assert.Empty(t, p.Coordinator().Chunks())
}

func TestFailedChunkMapLoadKeepsRoom(t *testing.T) {
	log := zaptest.NewLogger(t)
	broken := true
	fetch := func(name string) (*levels.Level, error) {
		if broken && name == "crossroads_01" {
			return nil, errors.New("corrupt level")
		}
		return levels.LoadLevelFromFS(name)
	}
	e := engine.New(engine.Options{Logger: log, SyncFetch: true, Fetch: fetch})
	t.Cleanup(e.Close)

	reg := chunk.NewRegistry()
	require.NoError(t, reg.Register(crossroads(t)))
	p := loader.New(e, reg, loader.Options{Logger: log})
	p.Install()
	t.Cleanup(func() { _ = p.Close() })

	require.NoError(t, e.Boot("town"))
	require.NoError(t, p.Start())

	op := e.BeginTransition("crossroads_01", "left")
	require.NotNil(t, op)
	e.Update(frame)
	e.Update(frame)

	assert.False(t, e.InTransition())
	assert.Equal(t, "town", e.SceneName())
	assert.Equal(t, []string{"town"}, e.LoadedNames())
	require.NotNil(t, e.ActiveScene())
	assert.Equal(t, "town", e.ActiveScene().Name())
	assert.Nil(t, p.Coordinator().ActiveMap())
	assert.Empty(t, p.Coordinator().Chunks())
	assert.Empty(t, p.Interceptor().Pending(op))

	broken = false
	require.NotNil(t, e.BeginTransition("crossroads_01", "left"))
	e.Update(frame)
	e.Update(frame)

	assert.Equal(t, "crossroads_01", e.SceneName())
	require.NotNil(t, p.Coordinator().CurrentChunk())
	assert.Equal(t, "crossroads_01", p.Coordinator().CurrentChunk().Scene())
	assert.Len(t, p.Coordinator().Chunks(), 3)
	assert.Nil(t, e.Scene("town"))
}
