package loader

import (
	"math"

	"github.com/google/uuid"
	"github.com/milk9111/onelevel/chunk"
	"github.com/milk9111/onelevel/host"
	"go.uber.org/zap"
)

// pendingLoad is one host scene load expanded into a whole chunk map.
type pendingLoad struct {
	id     string
	target string
	m      *chunk.Map
	ops    []host.AsyncOp
	// switched is set when the load made m the active map.
	switched bool
}

func (p *pendingLoad) has(scene string) bool {
	for _, op := range p.ops {
		if op.Scene() == scene {
			return true
		}
	}
	return false
}

// Interceptor turns the host's single-scene load into loads of every chunk
// of the target's map while the host keeps watching its own operation.
type Interceptor struct {
	port     host.Port
	registry *chunk.Registry
	coord    *Coordinator
	log      *zap.Logger
	metrics  *Metrics

	armed   bool
	pending map[host.AsyncOp]*pendingLoad
}

// NewInterceptor returns an interceptor that fans loads out through coord.
func NewInterceptor(port host.Port, registry *chunk.Registry, coord *Coordinator, log *zap.Logger, metrics *Metrics) *Interceptor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Interceptor{
		port:     port,
		registry: registry,
		coord:    coord,
		log:      log,
		metrics:  metrics,
		pending:  make(map[host.AsyncOp]*pendingLoad),
	}
}

// OnLoadBegin arms a one-shot intercept for the next load primitive call,
// which is the host loading its transition target.
func (i *Interceptor) OnLoadBegin(target string) {
	guard(i.log, i.metrics, "load begin", func() {
		i.armed = true
		i.log.Debug("scene load begin", zap.String("target", target))
	})
}

// Armed reports whether the next load will be intercepted.
func (i *Interceptor) Armed() bool { return i.armed }

// Pending returns the member operations proxied by op.
func (i *Interceptor) Pending(op host.AsyncOp) []host.AsyncOp {
	p, ok := i.pending[op]
	if !ok {
		return nil
	}
	return append([]host.AsyncOp(nil), p.ops...)
}

// LoadSceneAsync wraps the load primitive. The intercept disarms before
// anything else so the loads it issues pass straight through.
func (i *Interceptor) LoadSceneAsync(next host.LoadFunc, name string, mode host.LoadMode) host.AsyncOp {
	if !i.armed {
		return next(name, mode)
	}
	i.armed = false

	var m *chunk.Map
	guard(i.log, i.metrics, "chunk map lookup", func() {
		m, _ = i.registry.Lookup(name)
	})
	if m == nil {
		return next(name, mode)
	}

	// Chunk loads are always additive; strays from the previous room are
	// unloaded once the target has activated.
	op := next(name, host.LoadAdditive)
	if op == nil {
		return op
	}
	p := &pendingLoad{id: uuid.NewString(), target: name, m: m, ops: []host.AsyncOp{op}}
	i.pending[op] = p

	guard(i.log, i.metrics, "fan out", func() {
		i.fanOut(p, op)
	})
	op.OnCompleted(func(done host.AsyncOp) {
		guard(i.log, i.metrics, "host load completed", func() {
			i.hostLoadCompleted(p, done)
		})
	})
	return op
}

// hostLoadCompleted backs out of a fan-out whose target never loaded. The
// host keeps its current room, so nothing of it may be unloaded.
func (i *Interceptor) hostLoadCompleted(p *pendingLoad, op host.AsyncOp) {
	if i.targetLoaded(p) {
		return
	}
	delete(i.pending, op)
	i.log.Error("chunk map target did not load",
		zap.String("transition", p.id),
		zap.String("map", p.m.Name),
		zap.String("target", p.target),
	)
	if p.switched {
		i.coord.AbortMap(p.m)
		return
	}
	if cs, ok := i.coord.Chunk(p.target); ok && !cs.IsLoaded() && !cs.IsCurrent() {
		if err := i.coord.UnloadChunk(p.target); err != nil {
			i.log.Warn("unload failed target chunk", zap.String("scene", p.target), zap.Error(err))
		}
	}
}

func (i *Interceptor) targetLoaded(p *pendingLoad) bool {
	s := i.port.SceneByName(p.target)
	return s != nil && s.IsLoaded()
}

func (i *Interceptor) fanOut(p *pendingLoad, hostOp host.AsyncOp) {
	p.switched = i.coord.ActiveMap() != p.m
	i.coord.BeginMap(p.m)
	if ch, ok := p.m.Chunk(p.target); ok {
		i.coord.Expect(ch, hostOp)
	}
	for _, ch := range p.m.Chunks {
		if ch.Scene == p.target || i.coord.IsResident(ch.Scene) {
			continue
		}
		op := i.port.LoadSceneAsync(ch.Scene, host.LoadAdditive)
		if op == nil {
			i.log.Warn("chunk load returned no operation", zap.String("scene", ch.Scene))
			continue
		}
		p.ops = append(p.ops, op)
		i.coord.Expect(ch, op)
	}
	i.metrics.fannedOut()
	i.log.Info("loading chunk map",
		zap.String("transition", p.id),
		zap.String("map", p.m.Name),
		zap.String("target", p.target),
		zap.Int("loads", len(p.ops)),
	)
}

// Progress reports the minimum progress of every member of a pending load,
// so the host never sees the transition finished before every chunk is.
func (i *Interceptor) Progress(next host.ProgressFunc, op host.AsyncOp) float64 {
	var (
		result float64
		done   bool
	)
	guard(i.log, i.metrics, "progress", func() {
		p, ok := i.pending[op]
		if !ok {
			return
		}
		result = math.Inf(1)
		for _, member := range p.ops {
			result = math.Min(result, next(member))
		}
		done = true
	})
	if !done {
		return next(op)
	}
	return result
}

// SetAllowActivation forwards the value to every member of a pending load.
func (i *Interceptor) SetAllowActivation(next host.AllowActivationFunc, op host.AsyncOp, allow bool) {
	next(op, allow)

	guard(i.log, i.metrics, "allow activation", func() {
		p, ok := i.pending[op]
		if !ok {
			return
		}
		for _, member := range p.ops {
			if member != op {
				next(member, allow)
			}
		}
	})
}

func (i *Interceptor) unloadStrays(p *pendingLoad) {
	for _, s := range i.port.LoadedScenes() {
		if s == nil || !s.IsLoaded() {
			continue
		}
		name := s.Name()
		if p.has(name) || i.coord.OwnsScene(name) {
			continue
		}
		i.log.Debug("unloading stray scene", zap.String("transition", p.id), zap.String("scene", name))
		i.port.UnloadSceneAsync(name)
	}
}

// OnActivationComplete drops the pending loads for target. Once target is
// loaded every loaded scene outside the new map's resident set is unloaded.
func (i *Interceptor) OnActivationComplete(target string) {
	guard(i.log, i.metrics, "activation complete", func() {
		i.armed = false
		for op, p := range i.pending {
			if p.target != target {
				continue
			}
			delete(i.pending, op)
			if i.targetLoaded(p) {
				i.unloadStrays(p)
			}
		}
	})
}
