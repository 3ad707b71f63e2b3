package loader

import (
	"errors"
	"fmt"

	"github.com/milk9111/onelevel/chunk"
	"github.com/milk9111/onelevel/common"
	"github.com/milk9111/onelevel/host"
	"go.uber.org/zap"
)

var (
	ErrSceneNotLoaded  = errors.New("loader: scene not loaded")
	ErrUnknownChunk    = errors.New("loader: chunk not resident")
	ErrStaleCompletion = errors.New("loader: chunk map no longer active")
	ErrNoActiveMap     = errors.New("loader: no active chunk map")
)

// Coordinator owns the loaded-chunk set and the current chunk. Every method
// runs on the game loop.
type Coordinator struct {
	port     host.Port
	registry *chunk.Registry
	log      *zap.Logger
	metrics  *Metrics

	activeMap *chunk.Map
	loaded    map[string]*ChunkState
	order     []string
	current   *ChunkState

	// blockUnload holds the one scene name whose next host unload is
	// suppressed.
	blockUnload string

	// previous is the map left by the last BeginMap, kept until the host
	// confirms the switch.
	previous *mapSnapshot

	chunkInit []func(*ChunkState)
	sceneInit []func(*ChunkState, host.Scene)
}

type mapSnapshot struct {
	m           *chunk.Map
	loaded      map[string]*ChunkState
	order       []string
	current     *ChunkState
	blockUnload string
}

// NewCoordinator returns a coordinator with no active map.
func NewCoordinator(port host.Port, registry *chunk.Registry, log *zap.Logger, metrics *Metrics) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		port:     port,
		registry: registry,
		log:      log,
		metrics:  metrics,
		loaded:   make(map[string]*ChunkState),
	}
}

// OnChunkInitialized registers fn to run after a chunk is placed in world
// space.
func (c *Coordinator) OnChunkInitialized(fn func(*ChunkState)) {
	if fn != nil {
		c.chunkInit = append(c.chunkInit, fn)
	}
}

// OnSceneInitialized registers fn to run after each scene of a chunk,
// including attached sub-scenes, is placed.
func (c *Coordinator) OnSceneInitialized(fn func(*ChunkState, host.Scene)) {
	if fn != nil {
		c.sceneInit = append(c.sceneInit, fn)
	}
}

func (c *Coordinator) ActiveMap() *chunk.Map { return c.activeMap }

func (c *Coordinator) CurrentChunk() *ChunkState { return c.current }

// BlockedScene is the scene whose next unload will be suppressed, if any.
func (c *Coordinator) BlockedScene() string { return c.blockUnload }

// Chunk returns the state of a resident chunk.
func (c *Coordinator) Chunk(scene string) (*ChunkState, bool) {
	cs, ok := c.loaded[scene]
	return cs, ok
}

// Chunks returns resident chunks in the order they started loading.
func (c *Coordinator) Chunks() []*ChunkState {
	out := make([]*ChunkState, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.loaded[name])
	}
	return out
}

// IsResident reports whether scene is loaded or loading as a chunk.
func (c *Coordinator) IsResident(scene string) bool {
	_, ok := c.loaded[scene]
	return ok
}

// IsChunkLoaded reports whether scene's chunk finished loading.
func (c *Coordinator) IsChunkLoaded(scene string) bool {
	cs, ok := c.loaded[scene]
	return ok && cs.phase == PhaseLoaded
}

// OwnsScene reports whether scene is a main or attached scene of a resident
// chunk.
func (c *Coordinator) OwnsScene(scene string) bool {
	if c.IsResident(scene) {
		return true
	}
	for _, cs := range c.loaded {
		if cs.hasScene(scene) {
			return true
		}
	}
	return false
}

// BeginMap makes m the active map. Switching maps forgets the previous
// map's chunks; their scenes are left for the caller to unload. The previous
// state is kept for AbortMap until the transition completes.
func (c *Coordinator) BeginMap(m *chunk.Map) {
	if m == nil || c.activeMap == m {
		return
	}
	c.previous = nil
	if c.activeMap != nil {
		c.log.Debug("leaving chunk map", zap.String("map", c.activeMap.Name), zap.String("next", m.Name))
		c.previous = &mapSnapshot{
			m:           c.activeMap,
			loaded:      c.loaded,
			order:       c.order,
			current:     c.current,
			blockUnload: c.blockUnload,
		}
	}
	c.forget()
	c.activeMap = m
	c.log.Info("chunk map active", zap.String("map", m.Name), zap.Int("chunks", m.Len()))
}

// LoadMap activates m while the host already has one of its scenes loaded,
// e.g. at startup. That scene becomes the current chunk and every other
// chunk is loaded additively.
func (c *Coordinator) LoadMap(m *chunk.Map) error {
	if m == nil {
		return fmt.Errorf("loader: load map: %w", ErrNoActiveMap)
	}
	name := c.port.NextSceneName()
	if name == "" {
		name = c.port.SceneName()
	}
	scene := c.port.SceneByName(name)
	if scene == nil || !scene.IsLoaded() {
		return fmt.Errorf("loader: load map %s: %w: %s", m.Name, ErrSceneNotLoaded, name)
	}

	c.BeginMap(m)
	c.previous = nil
	c.log.Debug("loading all chunks", zap.String("map", m.Name), zap.String("current", name))

	if ch, ok := m.Chunk(name); ok {
		cs, exists := c.loaded[name]
		if !exists {
			cs = newChunkState(m, ch)
			c.insert(cs)
		}
		cs.phase = PhaseLoaded
		cs.mainScene = scene
		if !cs.hasScene(name) {
			cs.scenes = append([]host.Scene{scene}, cs.scenes...)
		}
		c.makeCurrent(cs)
		c.initialize(cs)
	}

	var errs []error
	for _, ch := range m.Chunks {
		if ch.Scene == name || c.IsResident(ch.Scene) {
			continue
		}
		if err := c.LoadChunk(ch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LoadChunk starts an additive load of a chunk of the active map.
func (c *Coordinator) LoadChunk(ch *chunk.Chunk) error {
	if ch == nil {
		return fmt.Errorf("loader: load chunk: %w", ErrUnknownChunk)
	}
	if c.activeMap == nil || !c.activeMap.Contains(ch.Scene) {
		return fmt.Errorf("loader: load chunk %s: %w", ch.Scene, ErrNoActiveMap)
	}
	if c.IsResident(ch.Scene) {
		return nil
	}
	c.log.Debug("load chunk", zap.String("scene", ch.Scene))
	cs := newChunkState(c.activeMap, ch)
	c.insert(cs)
	op := c.port.LoadSceneAsync(ch.Scene, host.LoadAdditive)
	c.track(cs, op)
	return nil
}

// Expect records that op loads ch, replacing any previous instance of the
// chunk, and registers the completion callback before returning.
func (c *Coordinator) Expect(ch *chunk.Chunk, op host.AsyncOp) {
	if ch == nil || op == nil || c.activeMap == nil {
		return
	}
	cs := newChunkState(c.activeMap, ch)
	if prev, ok := c.loaded[ch.Scene]; ok {
		cs.current = prev.current
		if prev.current {
			c.current = cs
		}
		c.loaded[ch.Scene] = cs
	} else {
		c.insert(cs)
	}
	c.track(cs, op)
}

func (c *Coordinator) track(cs *ChunkState, op host.AsyncOp) {
	cs.loadOp = op
	ch := cs.chunk
	op.OnCompleted(func(host.AsyncOp) {
		guard(c.log, c.metrics, "chunk scene loaded", func() {
			_ = c.OnChunkSceneLoaded(ch)
		})
	})
}

// OnChunkSceneLoaded handles the completion of ch's main scene load. Stale
// completions are logged and the orphan scene is unloaded; missing scenes
// are logged as errors. Neither mutates the loaded set.
func (c *Coordinator) OnChunkSceneLoaded(ch *chunk.Chunk) error {
	owner, owned := c.registry.Lookup(ch.Scene)
	cs, resident := c.loaded[ch.Scene]
	if !owned || owner != c.activeMap || !resident {
		c.metrics.staleCompletion()
		c.log.Warn("scene finished loading but its chunk map is not active anymore", zap.String("scene", ch.Scene))
		c.dropOrphan(ch.Scene)
		return fmt.Errorf("loader: %s: %w", ch.Scene, ErrStaleCompletion)
	}

	scene := c.port.SceneByName(ch.Scene)
	if scene == nil || !scene.IsLoaded() {
		err := fmt.Errorf("loader: chunk scene loaded: %w: %s", ErrSceneNotLoaded, ch.Scene)
		c.log.Error("chunk scene was not loaded", zap.String("scene", ch.Scene), zap.Error(err))
		return err
	}

	cs.phase = PhaseLoaded
	cs.loadOp = nil
	cs.mainScene = scene
	if !cs.hasScene(scene.Name()) {
		cs.scenes = append([]host.Scene{scene}, cs.scenes...)
	}
	c.metrics.chunkLoaded()
	c.log.Debug("chunk loaded", zap.String("scene", ch.Scene), zap.String("map", owner.Name))
	c.initialize(cs)
	return nil
}

func (c *Coordinator) dropOrphan(scene string) {
	if scene == c.port.SceneName() || scene == c.port.NextSceneName() || c.OwnsScene(scene) {
		return
	}
	if s := c.port.SceneByName(scene); s != nil && s.IsLoaded() {
		c.port.UnloadSceneAsync(scene)
	}
}

// InitializeChunk re-runs placement for a loaded chunk. Already applied
// translation, passages and callbacks are not repeated.
func (c *Coordinator) InitializeChunk(scene string) error {
	cs, ok := c.loaded[scene]
	if !ok || cs.phase != PhaseLoaded {
		return fmt.Errorf("loader: initialize %s: %w", scene, ErrUnknownChunk)
	}
	c.initialize(cs)
	return nil
}

func (c *Coordinator) initialize(cs *ChunkState) {
	for _, s := range cs.scenes {
		c.placeScene(cs, s)
	}

	if !cs.passagesBuilt {
		c.createPassages(cs)
		cs.passagesBuilt = true
	}

	if cs.initFired {
		return
	}
	cs.initFired = true
	if cs.chunk.OnInit != nil {
		if err := cs.chunk.OnInit(cs.mainScene); err != nil {
			c.log.Warn("chunk init callback failed", zap.String("scene", cs.chunk.Scene), zap.Error(err))
		}
	}
	for _, fn := range c.chunkInit {
		guard(c.log, c.metrics, "chunk initialized", func() { fn(cs) })
	}
	for _, s := range cs.scenes {
		c.notifyScene(cs, s)
	}
}

func (c *Coordinator) notifyScene(cs *ChunkState, s host.Scene) {
	for _, fn := range c.sceneInit {
		guard(c.log, c.metrics, "scene initialized", func() { fn(cs, s) })
	}
}

// placeScene moves scene so the translation applied to it equals the chunk
// origin.
func (c *Coordinator) placeScene(cs *ChunkState, s host.Scene) {
	if s == nil || !s.IsValid() {
		return
	}
	target := cs.Origin()
	delta := target.Sub(cs.applied[s.Name()])
	if delta.IsZero() {
		return
	}
	moveScene(s, delta)
	cs.applied[s.Name()] = target
}

func moveScene(s host.Scene, delta common.Vec2) {
	for _, obj := range s.RootObjects() {
		obj.SetPosition(obj.Position().Add(delta))
	}
}

// createPassages fills gaps between non-touching rooms with quad colliders
// placed relative to the chunk's translated origin.
func (c *Coordinator) createPassages(cs *ChunkState) {
	if len(cs.chunk.Passages) == 0 {
		return
	}
	origin := cs.Origin()
	for i, r := range cs.chunk.Passages {
		if r.Empty() {
			continue
		}
		spec := host.PassageSpec{
			Name:     fmt.Sprintf("passage/%s/%d", cs.chunk.Scene, i),
			Position: origin.Add(r.Min()),
			Size:     r.Size(),
			Layer:    host.LayerTerrain,
			Mesh:     host.QuadMesh(r.W, r.H),
		}
		if _, err := c.port.SpawnPassage(cs.chunk.Scene, spec); err != nil {
			c.log.Warn("create passage failed", zap.String("scene", cs.chunk.Scene), zap.Int("index", i), zap.Error(err))
		}
	}
	c.log.Debug("created passages", zap.String("scene", cs.chunk.Scene), zap.Int("count", len(cs.chunk.Passages)))
}

// AttachScene adds a sub-scene loaded from inside a resident chunk and
// places it with the chunk.
func (c *Coordinator) AttachScene(parent string, scene host.Scene) error {
	cs, ok := c.loaded[parent]
	if !ok || cs.phase != PhaseLoaded {
		return fmt.Errorf("loader: attach %s: %w: %s", sceneName(scene), ErrUnknownChunk, parent)
	}
	if scene == nil || !scene.IsLoaded() {
		return fmt.Errorf("loader: attach to %s: %w: %s", parent, ErrSceneNotLoaded, sceneName(scene))
	}
	if !cs.hasScene(scene.Name()) {
		cs.scenes = append(cs.scenes, scene)
	}
	c.placeScene(cs, scene)
	c.notifyScene(cs, scene)
	c.log.Debug("attached scene", zap.String("chunk", parent), zap.String("scene", scene.Name()))
	return nil
}

// PromoteToCurrent makes a resident chunk the current one. The previous
// current scene is protected from the host's next unload of it, then the
// host is told the player moved and the active scene follows.
func (c *Coordinator) PromoteToCurrent(scene string) error {
	cs, ok := c.loaded[scene]
	if !ok || cs.phase != PhaseLoaded {
		return fmt.Errorf("loader: promote %s: %w", scene, ErrUnknownChunk)
	}
	if cs == c.current {
		return nil
	}
	c.swapCurrent(cs)
	c.port.CommitRoom(scene)
	if active := c.port.ActiveScene(); active == nil || active.Name() != scene {
		c.port.SetActiveScene(scene)
	}
	return nil
}

// swapCurrent changes the current chunk and arms the unload block for the
// previous one. It must run before the host unloads the room it leaves.
func (c *Coordinator) swapCurrent(cs *ChunkState) {
	prev := c.current
	if prev != nil {
		prev.current = false
		c.blockUnload = prev.chunk.Scene
	}
	c.makeCurrent(cs)
	c.metrics.promoted()
	fields := []zap.Field{zap.String("scene", cs.chunk.Scene)}
	if prev != nil {
		fields = append(fields, zap.String("previous", prev.chunk.Scene))
	}
	c.log.Debug("current chunk changed", fields...)
}

func (c *Coordinator) makeCurrent(cs *ChunkState) {
	if c.current != nil && c.current != cs {
		c.current.current = false
	}
	cs.current = true
	c.current = cs
}

// OnTransitionComplete runs when the host finished activating target, before
// it unloads the room it left.
func (c *Coordinator) OnTransitionComplete(target string) {
	c.previous = nil
	owner, ok := c.registry.Lookup(target)
	if !ok {
		if c.activeMap != nil {
			c.log.Debug("left chunked area", zap.String("target", target))
			c.UnloadAll()
		}
		return
	}

	if owner != c.activeMap {
		// Nothing fanned out for this map; fall back to loading it from here.
		if err := c.LoadMap(owner); err != nil {
			c.log.Error("load chunk map after transition", zap.String("target", target), zap.Error(err))
		}
		return
	}

	cs, ok := c.loaded[target]
	if !ok {
		ch, _ := owner.Chunk(target)
		cs = newChunkState(owner, ch)
		c.insert(cs)
	}
	if cs.phase != PhaseLoaded {
		if err := c.OnChunkSceneLoaded(cs.chunk); err != nil {
			return
		}
	}
	if c.current == nil {
		c.makeCurrent(cs)
		return
	}
	if c.current != cs {
		c.swapCurrent(cs)
	}
}

// MoveChunk shifts every scene of a loaded chunk by delta and updates its
// runtime offset.
func (c *Coordinator) MoveChunk(cs *ChunkState, delta common.Vec2) {
	if cs == nil || delta.IsZero() {
		return
	}
	cs.offset = cs.offset.Add(delta)
	for _, s := range cs.scenes {
		if !s.IsValid() {
			continue
		}
		moveScene(s, delta)
		cs.applied[s.Name()] = cs.applied[s.Name()].Add(delta)
	}
}

// MoveChunkTo places a resident chunk at offset.
func (c *Coordinator) MoveChunkTo(scene string, offset common.Vec2) error {
	cs, ok := c.loaded[scene]
	if !ok {
		return fmt.Errorf("loader: move %s: %w", scene, ErrUnknownChunk)
	}
	c.MoveChunk(cs, offset.Sub(cs.offset))
	return nil
}

// RebindMap points the coordinator at a reloaded definition of the active
// map. Resident chunks move to their new offsets, dropped chunks unload and
// new chunks load. A dropped current chunk hands the room over to the chunk
// under the player.
func (c *Coordinator) RebindMap(m *chunk.Map) {
	if m == nil || c.activeMap == nil || c.activeMap.Name != m.Name {
		return
	}
	c.activeMap = m
	var dropped []string
	for _, cs := range c.Chunks() {
		ch, ok := m.Chunk(cs.chunk.Scene)
		if !ok {
			dropped = append(dropped, cs.chunk.Scene)
			continue
		}
		cs.chunk = ch
		cs.owner = m
		if cs.phase == PhaseLoaded {
			c.MoveChunk(cs, ch.Offset.Sub(cs.offset))
		} else {
			cs.offset = ch.Offset
		}
	}

	if cur := c.current; cur != nil && cur.owner != m {
		if !c.handOff(cur) {
			return
		}
	}
	for _, scene := range dropped {
		if err := c.UnloadChunk(scene); err != nil {
			c.log.Warn("unload dropped chunk", zap.String("scene", scene), zap.Error(err))
		}
		if c.blockUnload == scene {
			c.blockUnload = ""
		}
	}
	for _, ch := range m.Chunks {
		if !c.IsResident(ch.Scene) {
			if err := c.LoadChunk(ch); err != nil {
				c.log.Warn("load added chunk", zap.String("scene", ch.Scene), zap.Error(err))
			}
		}
	}
}

// handOff moves the current chunk off cur, which the active map no longer
// has, to the chunk under the player. With no such chunk the whole map is
// unloaded and false is returned.
func (c *Coordinator) handOff(cur *ChunkState) bool {
	if pos, ok := c.port.PlayerPosition(); ok {
		if cs := c.ChunkAt(pos); cs != nil {
			c.log.Info("current chunk dropped from map",
				zap.String("scene", cur.chunk.Scene),
				zap.String("promoted", cs.chunk.Scene),
			)
			if err := c.PromoteToCurrent(cs.chunk.Scene); err == nil {
				return true
			}
		}
	}
	c.log.Warn("current chunk dropped from map with no chunk under the player", zap.String("scene", cur.chunk.Scene))
	c.UnloadAll()
	return false
}

// ChunkAt returns the loaded chunk of the active map whose world bounds hold
// pos, preferring the current chunk, or nil.
func (c *Coordinator) ChunkAt(pos common.Vec2) *ChunkState {
	if c.current != nil && c.current.owner == c.activeMap && c.current.WorldBounds().Contains(pos) {
		return c.current
	}
	for _, cs := range c.Chunks() {
		if cs.owner == c.activeMap && cs.phase == PhaseLoaded && cs.WorldBounds().Contains(pos) {
			return cs
		}
	}
	return nil
}

// UnloadChunk removes one chunk. The current chunk is restored to authoring
// coordinates instead of being unloaded.
func (c *Coordinator) UnloadChunk(scene string) error {
	cs, ok := c.loaded[scene]
	if !ok {
		return fmt.Errorf("loader: unload %s: %w", scene, ErrUnknownChunk)
	}
	err := c.release(cs)
	c.remove(scene)
	return err
}

// UnloadAll tears the active map down. Failures are logged per chunk and do
// not stop the rest.
func (c *Coordinator) UnloadAll() {
	c.log.Debug("unloading all chunks", zap.Int("count", len(c.order)))
	for _, cs := range c.Chunks() {
		cs := cs
		guard(c.log, c.metrics, "unload chunk", func() {
			if err := c.release(cs); err != nil {
				c.log.Warn("error unloading chunk", zap.String("scene", cs.chunk.Scene), zap.Error(err))
			}
		})
	}
	c.forget()
	c.activeMap = nil
	c.previous = nil
}

// AbortMap backs out of a switch to m whose host load failed. Chunks loaded
// for m are unloaded and the map active before it, if any, is restored with
// its chunks untouched.
func (c *Coordinator) AbortMap(m *chunk.Map) {
	if m == nil || c.activeMap != m {
		return
	}
	prev := c.previous
	c.previous = nil
	for _, cs := range c.Chunks() {
		cs := cs
		guard(c.log, c.metrics, "abort chunk", func() {
			if err := c.release(cs); err != nil {
				c.log.Warn("error unloading chunk", zap.String("scene", cs.chunk.Scene), zap.Error(err))
			}
		})
	}
	c.forget()
	c.activeMap = nil
	if prev != nil {
		c.activeMap = prev.m
		c.loaded = prev.loaded
		c.order = prev.order
		c.current = prev.current
		c.blockUnload = prev.blockUnload
		c.metrics.resident(len(c.loaded))
	}
	c.log.Warn("chunk map switch aborted", zap.String("map", m.Name), zap.String("restored", mapName(c.activeMap)))
}

func (c *Coordinator) release(cs *ChunkState) error {
	if cs == c.current {
		c.restore(cs)
		cs.current = false
		c.current = nil
		cs.phase = PhaseUnloaded
		return nil
	}
	cs.phase = PhaseUnloaded
	var errs []error
	for _, s := range cs.scenes {
		if s == nil || !s.IsValid() {
			continue
		}
		name := s.Name()
		c.log.Debug("unloading scene", zap.String("scene", name))
		if op := c.port.UnloadSceneAsync(name); op != nil {
			op.OnCompleted(func(host.AsyncOp) {
				c.log.Debug("unload finished", zap.String("scene", name))
			})
		} else {
			errs = append(errs, fmt.Errorf("loader: unload %s: %w", name, ErrSceneNotLoaded))
		}
	}
	return errors.Join(errs...)
}

// restore reverses the translation applied to every scene of cs.
func (c *Coordinator) restore(cs *ChunkState) {
	for _, s := range cs.scenes {
		if s == nil || !s.IsValid() {
			continue
		}
		if applied := cs.applied[s.Name()]; !applied.IsZero() {
			moveScene(s, applied.Neg())
		}
		delete(cs.applied, s.Name())
	}
	c.log.Debug("restored chunk", zap.String("scene", cs.chunk.Scene))
}

// UnloadScene wraps the host's unload-by-name primitive. A name matching the
// block slot clears the slot and is reported handled without unloading.
func (c *Coordinator) UnloadScene(next host.UnloadFunc, name string) bool {
	blocked := false
	guard(c.log, c.metrics, "unload scene", func() {
		if c.blockUnload != "" && name == c.blockUnload {
			c.blockUnload = ""
			blocked = true
		}
	})
	if blocked {
		c.metrics.unloadBlocked()
		c.log.Debug("unload blocked", zap.String("scene", name))
		return true
	}
	return next(name)
}

func (c *Coordinator) insert(cs *ChunkState) {
	name := cs.chunk.Scene
	if _, ok := c.loaded[name]; !ok {
		c.order = append(c.order, name)
	}
	c.loaded[name] = cs
	c.metrics.resident(len(c.loaded))
}

func (c *Coordinator) remove(name string) {
	cs, ok := c.loaded[name]
	if !ok {
		return
	}
	delete(c.loaded, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	if c.current == cs {
		c.current = nil
	}
	c.metrics.resident(len(c.loaded))
}

func (c *Coordinator) forget() {
	c.loaded = make(map[string]*ChunkState)
	c.order = nil
	c.current = nil
	c.blockUnload = ""
	c.metrics.resident(0)
}

func sceneName(s host.Scene) string {
	if s == nil {
		return ""
	}
	return s.Name()
}
