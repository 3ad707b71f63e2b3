package loader

import (
	"github.com/milk9111/onelevel/host"
	"go.uber.org/zap"
)

// Reconciler pins the host's active scene to the room the host considers
// current while other chunk scenes finish loading around it.
//
// It reacts to a notification that has already been delivered, so listeners
// registered before it may briefly see the wrong active scene. It is a best
// effort correction, not a guarantee.
type Reconciler struct {
	port    host.Port
	coord   *Coordinator
	log     *zap.Logger
	metrics *Metrics

	busy bool
}

// NewReconciler returns a reconciler that keeps the current chunk active.
func NewReconciler(port host.Port, coord *Coordinator, log *zap.Logger, metrics *Metrics) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{port: port, coord: coord, log: log, metrics: metrics}
}

// ActiveSceneChanged restores the host's target scene as active when a
// resident chunk scene took its place.
func (r *Reconciler) ActiveSceneChanged(prev, next host.Scene) {
	if r.busy || next == nil {
		return
	}
	guard(r.log, r.metrics, "active scene changed", func() {
		target := r.port.NextSceneName()
		if target == "" {
			target = r.port.SceneName()
		}
		name := next.Name()
		if target == "" || name == target || !r.coord.IsResident(name) {
			return
		}
		if s := r.port.SceneByName(target); s == nil || !s.IsLoaded() {
			return
		}

		r.busy = true
		defer func() { r.busy = false }()
		r.log.Debug("restoring active scene", zap.String("active", name), zap.String("target", target))
		r.port.SetActiveScene(target)
	})
}
