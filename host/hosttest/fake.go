// Package hosttest provides an in-memory host.Port whose asynchronous loads
// are advanced by hand, for tests of code that sits on top of the port.
package hosttest

import (
	"fmt"

	"github.com/milk9111/onelevel/common"
	"github.com/milk9111/onelevel/host"
)

// ObjectDef describes a root object of a scene at authoring coordinates.
type ObjectDef struct {
	Name     string
	Kind     string
	Layer    host.Layer
	Position common.Vec2
}

// SceneDef is a loadable scene.
type SceneDef struct {
	Name    string
	Bounds  common.Rect
	Objects []ObjectDef
}

// Room is a convenience SceneDef with two root objects and a 100x50 extent.
func Room(name string) SceneDef {
	return SceneDef{
		Name:   name,
		Bounds: common.Rect{W: 100, H: 50},
		Objects: []ObjectDef{
			{Name: name + "/terrain", Kind: "terrain", Layer: host.LayerTerrain, Position: common.Vec2{X: 0, Y: 0}},
			{Name: name + "/lock", Kind: "camera_lock", Position: common.Vec2{X: 10, Y: 5}},
		},
	}
}

// Host is a fake host.Port.
type Host struct {
	hooks host.Dispatcher

	defs   map[string]SceneDef
	scenes map[string]*Scene
	order  []string
	active *Scene

	sceneName     string
	nextSceneName string
	transition    *Op

	player    common.Vec2
	hasPlayer bool

	// Sync completes every load as soon as it is issued.
	Sync bool
	// Fail names scenes whose loads complete without loading anything.
	Fail map[string]bool

	Ops         []*Op
	UnloadCalls []string
	Passages    []host.PassageSpec
	Begun       []string
}

func New(defs ...SceneDef) *Host {
	h := &Host{
		defs:   make(map[string]SceneDef),
		scenes: make(map[string]*Scene),
	}
	for _, d := range defs {
		h.Define(d)
	}
	return h
}

func (h *Host) Define(def SceneDef) {
	h.defs[def.Name] = def
}

// Boot loads name synchronously as the only scene, the way the game starts
// in a room before any transition.
func (h *Host) Boot(name string) *Scene {
	s := h.instantiate(name)
	h.sceneName = name
	h.SetActiveScene(name)
	return s
}

func (h *Host) Intercept(hooks *host.Hooks) func() { return h.hooks.Install(hooks) }

func (h *Host) Hooks() int { return h.hooks.Len() }

func (h *Host) LoadSceneAsync(name string, mode host.LoadMode) host.AsyncOp {
	return h.hooks.LoadSceneAsync(h.loadSceneAsync, name, mode)
}

func (h *Host) loadSceneAsync(name string, mode host.LoadMode) host.AsyncOp {
	op := &Op{host: h, scene: name, mode: mode}
	h.Ops = append(h.Ops, op)
	if h.Sync {
		op.allow = true
		op.Complete()
	}
	return op
}

func (h *Host) UnloadScene(name string) bool {
	return h.hooks.UnloadScene(h.unloadScene, name)
}

func (h *Host) unloadScene(name string) bool {
	h.UnloadCalls = append(h.UnloadCalls, name)
	return h.remove(name)
}

func (h *Host) UnloadSceneAsync(name string) host.AsyncOp {
	op := &Op{host: h, scene: name, allow: true}
	h.remove(name)
	op.progress = 1
	op.done = true
	return op
}

func (h *Host) remove(name string) bool {
	s, ok := h.scenes[name]
	if !ok {
		return false
	}
	s.valid = false
	delete(h.scenes, name)
	for i, n := range h.order {
		if n == name {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	if h.active == s {
		h.active = nil
	}
	return true
}

func (h *Host) SceneByName(name string) host.Scene {
	if s, ok := h.scenes[name]; ok {
		return s
	}
	return &Scene{name: name}
}

// Scene returns the loaded scene or nil.
func (h *Host) Scene(name string) *Scene { return h.scenes[name] }

func (h *Host) LoadedScenes() []host.Scene {
	out := make([]host.Scene, 0, len(h.order))
	for _, n := range h.order {
		out = append(out, h.scenes[n])
	}
	return out
}

func (h *Host) LoadedNames() []string {
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}

func (h *Host) ActiveScene() host.Scene {
	if h.active == nil {
		return nil
	}
	return h.active
}

func (h *Host) ActiveName() string {
	if h.active == nil {
		return ""
	}
	return h.active.name
}

func (h *Host) SetActiveScene(name string) bool {
	s, ok := h.scenes[name]
	if !ok {
		return false
	}
	prev := h.active
	h.active = s
	if prev != s {
		var prevScene host.Scene
		if prev != nil {
			prevScene = prev
		}
		h.hooks.ActiveSceneChanged(prevScene, s)
	}
	return true
}

func (h *Host) SceneName() string     { return h.sceneName }
func (h *Host) NextSceneName() string { return h.nextSceneName }

func (h *Host) CommitRoom(name string) {
	prev := h.sceneName
	h.sceneName = name
	if prev != "" && prev != name {
		h.UnloadScene(prev)
	}
	h.SetActiveScene(name)
}

func (h *Host) SpawnPassage(scene string, spec host.PassageSpec) (host.Object, error) {
	s, ok := h.scenes[scene]
	if !ok {
		return nil, fmt.Errorf("hosttest: spawn passage: scene %s not loaded", scene)
	}
	obj := &Object{name: spec.Name, kind: "passage", layer: spec.Layer, pos: spec.Position, active: true}
	s.roots = append(s.roots, obj)
	h.Passages = append(h.Passages, spec)
	return obj, nil
}

func (h *Host) PlayerPosition() (common.Vec2, bool) { return h.player, h.hasPlayer }

func (h *Host) SetPlayerPosition(p common.Vec2) {
	h.player = p
	h.hasPlayer = true
}

// BeginTransition runs the head of the host's single-scene transition: the
// load-begin notification and the load of target in single mode.
func (h *Host) BeginTransition(target string) host.AsyncOp {
	h.Begun = append(h.Begun, target)
	h.nextSceneName = target
	h.hooks.LoadBegin(target)
	op := h.LoadSceneAsync(target, host.LoadSingle)
	if o, ok := op.(*Op); ok {
		h.transition = o
	}
	return op
}

// FinishTransition allows activation once the transition op reports it is
// ready, completes every op that may activate, then runs the tail of the
// protocol.
func (h *Host) FinishTransition() error {
	op := h.transition
	if op == nil {
		return fmt.Errorf("hosttest: no transition in progress")
	}
	if op.Progress() < host.ActivationThreshold {
		return fmt.Errorf("hosttest: transition to %s not ready: %.2f", op.scene, op.Progress())
	}
	op.SetAllowActivation(true)
	for _, o := range h.Ops {
		if !o.done && o.allow {
			o.Complete()
		}
	}
	if !op.done {
		return fmt.Errorf("hosttest: transition op for %s did not complete", op.scene)
	}

	target := op.scene
	h.nextSceneName = ""
	h.transition = nil
	if _, ok := h.scenes[target]; !ok {
		return fmt.Errorf("hosttest: transition target %s did not load", target)
	}
	prev := h.sceneName
	h.sceneName = target
	h.hooks.ActivationComplete(target)
	if prev != "" && prev != target {
		h.UnloadScene(prev)
	}
	h.SetActiveScene(target)
	return nil
}

// LoadSubScene loads name additively from inside parent and fires the
// sub-scene hook once it completes.
func (h *Host) LoadSubScene(parent, name string) host.AsyncOp {
	op := h.LoadSceneAsync(name, host.LoadAdditive)
	op.OnCompleted(func(host.AsyncOp) {
		if s, ok := h.scenes[name]; ok {
			h.hooks.SubSceneLoaded(parent, s)
		}
	})
	return op
}

// FetchAll moves every pending op to the activation threshold.
func (h *Host) FetchAll() {
	for _, o := range h.Ops {
		if !o.done && o.progress < host.ActivationThreshold {
			o.progress = host.ActivationThreshold
		}
	}
}

// Trigger runs a transition-point overlap through the hooks. Without hooks
// only the player starts a transition.
func (h *Host) Trigger(tp host.TransitionPoint, obj host.Object) {
	h.hooks.TransitionEnter(func(tp host.TransitionPoint, obj host.Object) {
		if obj.Layer() == host.LayerPlayer {
			h.BeginTransition(tp.TargetScene())
		}
	}, tp, obj)
}

func (h *Host) instantiate(name string) *Scene {
	def, ok := h.defs[name]
	if !ok {
		def = SceneDef{Name: name}
	}
	s := &Scene{name: name, bounds: def.Bounds, valid: true, loaded: true}
	for _, od := range def.Objects {
		s.roots = append(s.roots, &Object{name: od.Name, kind: od.Kind, layer: od.Layer, pos: od.Position, active: true})
	}
	if old, ok := h.scenes[name]; ok {
		old.valid = false
	} else {
		h.order = append(h.order, name)
	}
	h.scenes[name] = s
	return s
}

// Op is a fake async load.
type Op struct {
	host      *Host
	scene     string
	mode      host.LoadMode
	progress  float64
	allow     bool
	done      bool
	callbacks []func(host.AsyncOp)
}

func (o *Op) Scene() string       { return o.scene }
func (o *Op) Mode() host.LoadMode { return o.mode }
func (o *Op) Done() bool          { return o.done }

func (o *Op) Progress() float64 {
	return o.host.hooks.Progress(func(op host.AsyncOp) float64 { return op.(*Op).progress }, o)
}

// RawProgress bypasses the hooks.
func (o *Op) RawProgress() float64 { return o.progress }

func (o *Op) SetProgress(p float64) { o.progress = p }

func (o *Op) AllowActivation() bool { return o.allow }

func (o *Op) SetAllowActivation(allow bool) {
	o.host.hooks.SetAllowActivation(func(op host.AsyncOp, allow bool) { op.(*Op).allow = allow }, o, allow)
}

func (o *Op) OnCompleted(fn func(host.AsyncOp)) {
	if fn == nil {
		return
	}
	if o.done {
		fn(o)
		return
	}
	o.callbacks = append(o.callbacks, fn)
}

// Complete loads the scene and fires completion callbacks. Single mode
// unloads every other scene first. A failing scene finishes the op with
// nothing loaded.
func (o *Op) Complete() {
	if o.done {
		return
	}
	h := o.host
	if h.Fail[o.scene] {
		o.progress = 1
		o.done = true
		o.completed()
		return
	}
	if o.mode == host.LoadSingle {
		for _, n := range h.LoadedNames() {
			if n != o.scene {
				h.remove(n)
			}
		}
	}
	s := h.instantiate(o.scene)
	o.progress = 1
	o.done = true
	if h.active == nil || o.mode == host.LoadSingle {
		h.SetActiveScene(s.name)
	}
	o.completed()
}

func (o *Op) completed() {
	cbs := o.callbacks
	o.callbacks = nil
	for _, fn := range cbs {
		fn(o)
	}
}

// Scene is a fake scene.
type Scene struct {
	name   string
	bounds common.Rect
	valid  bool
	loaded bool
	roots  []*Object
}

func (s *Scene) Name() string        { return s.name }
func (s *Scene) IsValid() bool       { return s.valid }
func (s *Scene) IsLoaded() bool      { return s.valid && s.loaded }
func (s *Scene) Bounds() common.Rect { return s.bounds }

func (s *Scene) RootObjects() []host.Object {
	out := make([]host.Object, 0, len(s.roots))
	for _, o := range s.roots {
		out = append(out, o)
	}
	return out
}

// Object returns the root object named name.
func (s *Scene) Object(name string) *Object {
	for _, o := range s.roots {
		if o.name == name {
			return o
		}
	}
	return nil
}

// Object is a fake root object.
type Object struct {
	name   string
	kind   string
	layer  host.Layer
	pos    common.Vec2
	active bool
}

// NewObject builds a free-standing object, e.g. the player for Trigger.
func NewObject(name string, layer host.Layer) *Object {
	return &Object{name: name, layer: layer, active: true}
}

func (o *Object) Name() string              { return o.name }
func (o *Object) Kind() string              { return o.kind }
func (o *Object) Layer() host.Layer         { return o.layer }
func (o *Object) Position() common.Vec2     { return o.pos }
func (o *Object) SetPosition(p common.Vec2) { o.pos = p }
func (o *Object) Active() bool              { return o.active }
func (o *Object) SetActive(active bool)     { o.active = active }

// TransitionPoint is a fake trigger volume.
type TransitionPoint struct {
	ID     string
	Target string
	Entry  string
}

func (t TransitionPoint) Name() string        { return t.ID }
func (t TransitionPoint) TargetScene() string { return t.Target }
func (t TransitionPoint) EntryGate() string   { return t.Entry }
