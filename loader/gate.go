package loader

import (
	"github.com/milk9111/onelevel/chunk"
	"github.com/milk9111/onelevel/host"
	"go.uber.org/zap"
)

// Gate filters transition-trigger overlaps. Walking into a transition whose
// destination is already resident does nothing: the room is already placed
// next to the player.
type Gate struct {
	registry *chunk.Registry
	coord    *Coordinator
	log      *zap.Logger
	metrics  *Metrics

	// DisableTransitions suppresses every transition into a registered map,
	// resident or not.
	DisableTransitions bool
}

// NewGate returns a gate that suppresses transitions into resident chunks.
func NewGate(registry *chunk.Registry, coord *Coordinator, log *zap.Logger, metrics *Metrics) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{registry: registry, coord: coord, log: log, metrics: metrics}
}

// Suppresses reports whether an overlap of obj with tp must not reach the
// host.
func (g *Gate) Suppresses(tp host.TransitionPoint, obj host.Object) bool {
	if tp == nil || obj == nil || obj.Layer() != host.LayerPlayer {
		return false
	}
	target := tp.TargetScene()
	owner, ok := g.registry.Lookup(target)
	if !ok {
		return false
	}
	if g.DisableTransitions {
		return true
	}
	return owner == g.coord.ActiveMap() && g.coord.IsResident(target)
}

// TransitionEnter wraps the host's transition trigger.
func (g *Gate) TransitionEnter(next host.TransitionFunc, tp host.TransitionPoint, obj host.Object) {
	suppress := false
	guard(g.log, g.metrics, "transition enter", func() {
		suppress = g.Suppresses(tp, obj)
	})
	if suppress {
		g.metrics.transitionSuppressed()
		g.log.Debug("transition suppressed", zap.String("gate", tp.Name()), zap.String("target", tp.TargetScene()))
		return
	}
	next(tp, obj)
}
