package loader

import (
	"fmt"

	"github.com/milk9111/onelevel/chunk"
	"github.com/milk9111/onelevel/host"
	"go.uber.org/zap"
)

type Options struct {
	Logger             *zap.Logger
	Metrics            *Metrics
	DisableTransitions bool
}

// Patch is the chunk loader's lifetime on one host port. It owns every
// component and the hook table it installs.
type Patch struct {
	port     host.Port
	registry *chunk.Registry
	log      *zap.Logger
	metrics  *Metrics

	coord       *Coordinator
	interceptor *Interceptor
	gate        *Gate
	reconciler  *Reconciler
	tracker     *Tracker

	remove func()
}

// New wires the loader components onto port. Nothing is hooked until Install.
func New(port host.Port, registry *chunk.Registry, opts Options) *Patch {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if registry == nil {
		registry = chunk.NewRegistry()
	}
	coord := NewCoordinator(port, registry, log.Named("coordinator"), opts.Metrics)
	p := &Patch{
		port:        port,
		registry:    registry,
		log:         log,
		metrics:     opts.Metrics,
		coord:       coord,
		interceptor: NewInterceptor(port, registry, coord, log.Named("interceptor"), opts.Metrics),
		gate:        NewGate(registry, coord, log.Named("gate"), opts.Metrics),
		reconciler:  NewReconciler(port, coord, log.Named("reconciler"), opts.Metrics),
		tracker:     NewTracker(port, coord, log.Named("tracker"), opts.Metrics),
	}
	p.gate.DisableTransitions = opts.DisableTransitions
	return p
}

func (p *Patch) Registry() *chunk.Registry     { return p.registry }
func (p *Patch) Coordinator() *Coordinator     { return p.coord }
func (p *Patch) Interceptor() *Interceptor     { return p.interceptor }
func (p *Patch) Gate() *Gate                   { return p.gate }
func (p *Patch) Installed() bool               { return p.remove != nil }
func (p *Patch) SetDisableTransitions(on bool) { p.gate.DisableTransitions = on }

// Install registers the hook table on the port. It is a no-op when already
// installed.
func (p *Patch) Install() {
	if p.remove != nil {
		return
	}
	p.remove = p.port.Intercept(p.hooks())
	p.log.Info("chunk loader installed", zap.Int("maps", len(p.registry.Maps())))
}

func (p *Patch) hooks() *host.Hooks {
	return &host.Hooks{
		LoadBegin: p.interceptor.OnLoadBegin,
		ActivationComplete: func(target string) {
			p.interceptor.OnActivationComplete(target)
			guard(p.log, p.metrics, "transition complete", func() {
				p.coord.OnTransitionComplete(target)
			})
		},
		ActiveSceneChanged: p.reconciler.ActiveSceneChanged,
		SubSceneLoaded: func(parent string, scene host.Scene) {
			guard(p.log, p.metrics, "sub scene loaded", func() {
				if !p.coord.IsResident(parent) {
					return
				}
				if err := p.coord.AttachScene(parent, scene); err != nil {
					p.log.Error("attach sub scene", zap.String("parent", parent), zap.Error(err))
				}
			})
		},
		LoadSceneAsync:     p.interceptor.LoadSceneAsync,
		UnloadScene:        p.coord.UnloadScene,
		Progress:           p.interceptor.Progress,
		SetAllowActivation: p.interceptor.SetAllowActivation,
		TransitionEnter:    p.gate.TransitionEnter,
	}
}

// Start activates the chunk map owning the host's current scene. Rooms that
// belong to no map are left alone.
func (p *Patch) Start() error {
	name := p.port.SceneName()
	m, ok := p.registry.Lookup(name)
	if !ok {
		p.log.Debug("current scene is not chunked", zap.String("scene", name))
		return nil
	}
	if err := p.coord.LoadMap(m); err != nil {
		return fmt.Errorf("loader: start: %w", err)
	}
	return nil
}

// Stop tears the active map down, leaving the current room in place at its
// authoring coordinates.
func (p *Patch) Stop() {
	if p.coord.ActiveMap() == nil {
		return
	}
	p.coord.UnloadAll()
}

// Close stops the loader and removes its hooks.
func (p *Patch) Close() error {
	p.Stop()
	if p.remove != nil {
		p.remove()
		p.remove = nil
		p.log.Info("chunk loader removed")
	}
	return nil
}

// Update runs per-frame work on the game loop.
func (p *Patch) Update() {
	guard(p.log, p.metrics, "update", func() {
		p.tracker.Update()
	})
}

// ReloadMap swaps in a new definition of a registered map. When it is the
// active map, resident chunks follow their new offsets.
func (p *Patch) ReloadMap(m *chunk.Map) error {
	old, err := p.registry.Replace(m)
	if err != nil {
		return fmt.Errorf("loader: reload %s: %w", mapName(m), err)
	}
	if old == p.coord.ActiveMap() {
		p.coord.RebindMap(m)
	}
	p.log.Info("chunk map reloaded", zap.String("map", m.Name), zap.Int("chunks", m.Len()))
	return nil
}

// UnregisterMap drops a map, tearing it down first when it is active.
func (p *Patch) UnregisterMap(name string) bool {
	m, ok := p.registry.Unregister(name)
	if !ok {
		return false
	}
	if m == p.coord.ActiveMap() {
		p.coord.UnloadAll()
	}
	return true
}

func mapName(m *chunk.Map) string {
	if m == nil {
		return ""
	}
	return m.Name
}
