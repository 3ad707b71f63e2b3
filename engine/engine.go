// Package engine is a small in-process host: it loads level rooms as scenes,
// runs their colliders in one Chipmunk space and follows a single-scene
// transition protocol. It implements host.Port so the chunk loader can run on
// top of it.
package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/milk9111/onelevel/common"
	"github.com/milk9111/onelevel/host"
	"github.com/milk9111/onelevel/levels"
	"go.uber.org/zap"
)

var ErrSceneNotLoaded = errors.New("engine: scene not loaded")

// Fetcher reads and parses a level by scene name.
type Fetcher func(name string) (*levels.Level, error)

type Options struct {
	Logger *zap.Logger
	// Fetch defaults to the levels bundled with the binary.
	Fetch Fetcher
	// SyncFetch fetches on the calling goroutine instead of a worker.
	// Activation still waits for Update.
	SyncFetch bool
	Gravity   float64
}

type fetchResult struct {
	op    *Op
	level *levels.Level
	err   error
}

// Engine implements host.Port. Every method except the fetch workers runs on
// the game loop.
type Engine struct {
	log       *zap.Logger
	fetch     Fetcher
	syncFetch bool

	hooks   host.Dispatcher
	physics *Physics

	scenes map[string]*Scene
	order  []string
	active *Scene

	ops     []*Op
	results chan fetchResult
	workers sync.WaitGroup

	sceneName     string
	nextSceneName string
	transition    host.AsyncOp
	entryGate     string

	player *Object
}

func New(opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	fetch := opts.Fetch
	if fetch == nil {
		fetch = levels.LoadLevelFromFS
	}
	return &Engine{
		log:       log,
		fetch:     fetch,
		syncFetch: opts.SyncFetch,
		physics:   NewPhysics(opts.Gravity),
		scenes:    make(map[string]*Scene),
		results:   make(chan fetchResult, 64),
	}
}

func (e *Engine) Physics() *Physics { return e.physics }

func (e *Engine) Intercept(h *host.Hooks) func() { return e.hooks.Install(h) }

// Boot loads name synchronously as the only scene and spawns the player in
// it.
func (e *Engine) Boot(name string) error {
	lvl, err := e.fetch(name)
	if err != nil {
		return fmt.Errorf("engine: boot %s: %w", name, err)
	}
	s := e.instantiate(name, lvl)
	e.sceneName = name
	e.SetActiveScene(name)
	e.spawnPlayer(lvl.Spawn())
	e.loadSubScenes(s)
	e.log.Info("booted", zap.String("scene", name))
	return nil
}

// Update drains finished fetches, activates loads that may activate, steps
// physics and advances the transition protocol.
func (e *Engine) Update(dt float64) {
	e.drain()
	e.updateTransition()
	e.activateReady()
	e.updateTransition()

	for _, obj := range e.physics.Step(dt) {
		if e.player != nil {
			e.Trigger(transitionPoint{obj: obj}, e.player)
		}
	}
}

// Close waits for in-flight fetches and releases every scene.
func (e *Engine) Close() {
	done := make(chan struct{})
	go func() {
		e.workers.Wait()
		close(done)
	}()
	for {
		select {
		case <-e.results:
		case <-done:
			for _, name := range e.LoadedNames() {
				e.remove(name)
			}
			return
		}
	}
}

func (e *Engine) LoadSceneAsync(name string, mode host.LoadMode) host.AsyncOp {
	return e.hooks.LoadSceneAsync(e.loadSceneAsync, name, mode)
}

func (e *Engine) loadSceneAsync(name string, mode host.LoadMode) host.AsyncOp {
	op := &Op{engine: e, scene: name, mode: mode, allow: true}
	e.ops = append(e.ops, op)
	e.log.Debug("load scene", zap.String("scene", name), zap.Stringer("mode", mode))

	if e.syncFetch {
		lvl, err := e.fetch(name)
		e.deliver(fetchResult{op: op, level: lvl, err: err})
		return op
	}
	e.workers.Add(1)
	go func() {
		defer e.workers.Done()
		lvl, err := e.fetch(name)
		e.results <- fetchResult{op: op, level: lvl, err: err}
	}()
	return op
}

func (e *Engine) drain() {
	for {
		select {
		case r := <-e.results:
			e.deliver(r)
		default:
			return
		}
	}
}

func (e *Engine) deliver(r fetchResult) {
	r.op.level = r.level
	r.op.err = r.err
	r.op.fetched = true
	r.op.progress = host.ActivationThreshold
}

func (e *Engine) activateReady() {
	ops := append([]*Op(nil), e.ops...)
	for _, op := range ops {
		if op.ready() {
			e.activate(op)
		}
	}
	pending := e.ops[:0]
	for _, op := range e.ops {
		if !op.done {
			pending = append(pending, op)
		}
	}
	e.ops = pending
}

func (e *Engine) activate(op *Op) {
	if op.err != nil {
		e.log.Error("scene load failed", zap.String("scene", op.scene), zap.Error(op.err))
		op.finish()
		return
	}
	if op.mode == host.LoadSingle {
		for _, name := range e.LoadedNames() {
			if name != op.scene {
				e.remove(name)
			}
		}
	}
	s := e.instantiate(op.scene, op.level)
	if e.active == nil || op.mode == host.LoadSingle {
		e.SetActiveScene(s.name)
	}
	op.finish()
	if e.scenes[s.name] == s {
		e.loadSubScenes(s)
	}
}

func (e *Engine) loadSubScenes(parent *Scene) {
	for _, name := range subScenes(parent.level) {
		if _, ok := e.scenes[name]; ok {
			continue
		}
		parentName := parent.name
		op := e.LoadSceneAsync(name, host.LoadAdditive)
		op.OnCompleted(func(host.AsyncOp) {
			if s, ok := e.scenes[name]; ok {
				e.hooks.SubSceneLoaded(parentName, s)
			}
		})
	}
}

func (e *Engine) instantiate(name string, lvl *levels.Level) *Scene {
	if old, ok := e.scenes[name]; ok {
		old.destroy()
	} else {
		e.order = append(e.order, name)
	}
	s := buildScene(e.physics, name, lvl)
	e.scenes[name] = s
	return s
}

func (e *Engine) UnloadScene(name string) bool {
	return e.hooks.UnloadScene(e.remove, name)
}

// UnloadSceneAsync unloads name at once and returns a finished operation,
// or nil when name is not loaded.
func (e *Engine) UnloadSceneAsync(name string) host.AsyncOp {
	if !e.remove(name) {
		return nil
	}
	return doneOp(name)
}

func (e *Engine) remove(name string) bool {
	s, ok := e.scenes[name]
	if !ok {
		return false
	}
	s.destroy()
	delete(e.scenes, name)
	for i, n := range e.order {
		if n == name {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	if e.active == s {
		e.active = nil
	}
	e.log.Debug("scene unloaded", zap.String("scene", name))
	return true
}

func (e *Engine) SceneByName(name string) host.Scene {
	if s, ok := e.scenes[name]; ok {
		return s
	}
	return &Scene{name: name}
}

// Scene returns the loaded scene or nil.
func (e *Engine) Scene(name string) *Scene { return e.scenes[name] }

func (e *Engine) LoadedScenes() []host.Scene {
	out := make([]host.Scene, 0, len(e.order))
	for _, n := range e.order {
		out = append(out, e.scenes[n])
	}
	return out
}

// LoadedNames lists loaded scenes in load order.
func (e *Engine) LoadedNames() []string {
	return append([]string(nil), e.order...)
}

func (e *Engine) ActiveScene() host.Scene {
	if e.active == nil {
		return nil
	}
	return e.active
}

func (e *Engine) SetActiveScene(name string) bool {
	s, ok := e.scenes[name]
	if !ok {
		return false
	}
	prev := e.active
	e.active = s
	if prev != s {
		var prevScene host.Scene
		if prev != nil {
			prevScene = prev
		}
		e.hooks.ActiveSceneChanged(prevScene, s)
	}
	return true
}

func (e *Engine) SceneName() string     { return e.sceneName }
func (e *Engine) NextSceneName() string { return e.nextSceneName }

func (e *Engine) SpawnPassage(scene string, spec host.PassageSpec) (host.Object, error) {
	s, ok := e.scenes[scene]
	if !ok {
		return nil, fmt.Errorf("engine: spawn passage %s: %w: %s", spec.Name, ErrSceneNotLoaded, scene)
	}
	obj := &Object{
		name:    spec.Name,
		kind:    KindPassage,
		layer:   spec.Layer,
		pos:     spec.Position,
		active:  true,
		physics: e.physics,
		mesh:    spec.Mesh,
		rects:   []common.Rect{{W: spec.Size.X, H: spec.Size.Y}},
	}
	obj.body = e.physics.newKinematic(spec.Position)
	e.physics.addBox(obj.body, obj.rects[0], collisionTypeSolid)
	s.roots = append(s.roots, obj)
	return obj, nil
}
