package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/onelevel/common"
	"github.com/milk9111/onelevel/host"
	"github.com/milk9111/onelevel/levels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const frame = 1.0 / 60

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e := New(Options{Logger: zaptest.NewLogger(t), SyncFetch: true})
	t.Cleanup(e.Close)
	return e
}

func TestBootSpawnsPlayer(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Boot("town"))

	assert.Equal(t, "town", e.SceneName())
	assert.Equal(t, "town", e.ActiveScene().Name())
	pos, ok := e.PlayerPosition()
	require.True(t, ok)
	assert.Equal(t, common.Vec2{X: 3*levels.TileSize + 16, Y: 8*levels.TileSize + 16}, pos)

	s := e.Scene("town")
	require.NotNil(t, s)
	require.NotNil(t, s.Terrain())
	assert.NotEmpty(t, s.Terrain().Rects())
}

func TestSingleTransition(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Boot("town"))

	op := e.BeginTransition("crossroads_01", "left")
	require.NotNil(t, op)
	assert.Equal(t, "crossroads_01", e.NextSceneName())
	assert.False(t, op.AllowActivation())
	assert.InDelta(t, host.ActivationThreshold, op.Progress(), 1e-9)
	assert.Nil(t, e.BeginTransition("greenpath_01", ""), "one transition at a time")

	e.Update(frame)

	assert.True(t, op.Done())
	assert.False(t, e.InTransition())
	assert.Equal(t, "crossroads_01", e.SceneName())
	assert.Empty(t, e.NextSceneName())
	assert.Equal(t, []string{"crossroads_01"}, e.LoadedNames())
	assert.Equal(t, "crossroads_01", e.ActiveScene().Name())

	pos, _ := e.PlayerPosition()
	assert.Equal(t, common.Vec2{X: 64, Y: 256}, pos)
}

func TestTransitionWaitsForFetch(t *testing.T) {
	release := make(chan struct{})
	e := New(Options{
		Logger: zaptest.NewLogger(t),
		Fetch: func(name string) (*levels.Level, error) {
			if name != "town" {
				<-release
			}
			return levels.LoadLevelFromFS(name)
		},
	})
	t.Cleanup(e.Close)
	require.NoError(t, e.Boot("town"))

	op := e.BeginTransition("crossroads_01", "left")
	e.Update(frame)
	assert.Zero(t, op.Progress())
	assert.Equal(t, "town", e.SceneName())

	close(release)
	require.Eventually(t, func() bool {
		e.Update(frame)
		return op.Done()
	}, time.Second, time.Millisecond)
	assert.Equal(t, "crossroads_01", e.SceneName())
}

func TestAdditiveLoadKeepsActiveScene(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Boot("town"))

	var changes []string
	e.Intercept(&host.Hooks{ActiveSceneChanged: func(prev, next host.Scene) {
		changes = append(changes, next.Name())
	}})

	op := e.LoadSceneAsync("greenpath_02", host.LoadAdditive)
	assert.False(t, op.Done())
	e.Update(frame)

	assert.True(t, op.Done())
	assert.Equal(t, []string{"town", "greenpath_02"}, e.LoadedNames())
	assert.Equal(t, "town", e.ActiveScene().Name())
	assert.Empty(t, changes)

	// With nothing active the first scene to activate takes over.
	require.NotNil(t, e.UnloadSceneAsync("town"))
	assert.Nil(t, e.ActiveScene())
	e.LoadSceneAsync("greenpath_01", host.LoadAdditive)
	e.Update(frame)
	assert.Equal(t, "greenpath_01", e.ActiveScene().Name())
	assert.Equal(t, []string{"greenpath_01"}, changes)
}

func TestFailedLoadCompletesWithoutScene(t *testing.T) {
	boom := errors.New("disk on fire")
	e := New(Options{
		Logger:    zaptest.NewLogger(t),
		SyncFetch: true,
		Fetch: func(name string) (*levels.Level, error) {
			if name == "town" {
				return levels.LoadLevelFromFS(name)
			}
			return nil, boom
		},
	})
	t.Cleanup(e.Close)
	require.NoError(t, e.Boot("town"))

	op := e.LoadSceneAsync("nowhere", host.LoadAdditive)
	completed := false
	op.OnCompleted(func(host.AsyncOp) { completed = true })
	e.Update(frame)

	assert.True(t, completed)
	assert.ErrorIs(t, op.(*Op).Err(), boom)
	assert.False(t, e.SceneByName("nowhere").IsLoaded())
	assert.Nil(t, e.UnloadSceneAsync("nowhere"))
}

func TestMovingObjectsMovesColliders(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Boot("crossroads_01"))
	s := e.Scene("crossroads_01")

	terrain := s.Terrain()
	terrain.SetPosition(common.Vec2{X: 200, Y: 200})
	assert.Equal(t, common.Vec2{X: 200, Y: 200}, fromVec(terrain.body.Position()))
	assert.Equal(t, 200.0, terrain.Rects()[0].X)

	// Kinematic shapes follow their body once the space steps.
	e.physics.Step(frame)
	var lefts []float64
	terrain.body.EachShape(func(sh *cp.Shape) {
		lefts = append(lefts, sh.BB().L)
	})
	require.Len(t, lefts, len(terrain.Rects()))
	for _, r := range terrain.Rects() {
		assert.Contains(t, lefts, r.X)
	}

	var sensor *Object
	for _, o := range s.Objects() {
		if o.Kind() == KindTransition {
			sensor = o
			break
		}
	}
	require.NotNil(t, sensor)
	before := sensor.Position()
	sensor.SetPosition(before.Add(common.Vec2{X: 10}))
	assert.Equal(t, before.X+10, sensor.body.Position().X)
}

func TestSubScenesFireHook(t *testing.T) {
	e := newEngine(t)
	var loaded []string
	e.Intercept(&host.Hooks{SubSceneLoaded: func(parent string, scene host.Scene) {
		loaded = append(loaded, parent+">"+scene.Name())
	}})

	require.NoError(t, e.Boot("crossroads_02"))
	e.Update(frame)

	assert.Equal(t, []string{"crossroads_02>crossroads_02_boss"}, loaded)
	assert.Equal(t, "crossroads_02", e.ActiveScene().Name())
}

func TestCommitRoomUnloadsPrevious(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Boot("crossroads_01"))
	e.LoadSceneAsync("crossroads_02", host.LoadAdditive)
	e.Update(frame)

	var unloads []string
	e.Intercept(&host.Hooks{UnloadScene: func(next host.UnloadFunc, name string) bool {
		unloads = append(unloads, name)
		return next(name)
	}})

	e.CommitRoom("crossroads_02")

	assert.Equal(t, []string{"crossroads_01"}, unloads)
	assert.Equal(t, "crossroads_02", e.SceneName())
	assert.Equal(t, "crossroads_02", e.ActiveScene().Name())
	assert.Nil(t, e.Scene("crossroads_01"))
}

func TestPlayerTriggersTransition(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Boot("town"))

	var entered []string
	e.Intercept(&host.Hooks{TransitionEnter: func(next host.TransitionFunc, tp host.TransitionPoint, obj host.Object) {
		entered = append(entered, tp.TargetScene()+"/"+tp.EntryGate())
		next(tp, obj)
	}})

	// The town exit sensor spans x 608..640, y 192..288.
	e.TeleportPlayer(common.Vec2{X: 620, Y: 240})
	e.Update(frame)

	assert.Equal(t, []string{"crossroads_01/left"}, entered)
	assert.Equal(t, "crossroads_01", e.NextSceneName())
}

func TestSpawnPassage(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Boot("town"))

	obj, err := e.SpawnPassage("town", host.PassageSpec{
		Name:     "passage/town/0",
		Position: common.Vec2{X: 640, Y: 288},
		Size:     common.Vec2{X: 64, Y: 32},
		Layer:    host.LayerTerrain,
		Mesh:     host.QuadMesh(64, 32),
	})
	require.NoError(t, err)
	assert.Equal(t, KindPassage, obj.Kind())
	assert.Same(t, obj, e.Scene("town").Object("passage/town/0"))

	_, err = e.SpawnPassage("nowhere", host.PassageSpec{Name: "x"})
	assert.ErrorIs(t, err, ErrSceneNotLoaded)
}
