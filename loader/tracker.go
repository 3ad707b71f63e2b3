package loader

import (
	"github.com/milk9111/onelevel/host"
	"go.uber.org/zap"
)

// Tracker promotes the resident chunk the player walks into. Transitions
// into resident chunks are suppressed by the Gate, so this is the only way
// the current chunk changes inside one map.
type Tracker struct {
	port    host.Port
	coord   *Coordinator
	log     *zap.Logger
	metrics *Metrics
}

// NewTracker returns a tracker that promotes chunks through coord.
func NewTracker(port host.Port, coord *Coordinator, log *zap.Logger, metrics *Metrics) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{port: port, coord: coord, log: log, metrics: metrics}
}

// Update runs once per frame. It returns the scene promoted, if any.
func (t *Tracker) Update() string {
	if t.coord.ActiveMap() == nil || t.port.NextSceneName() != "" {
		return ""
	}
	pos, ok := t.port.PlayerPosition()
	if !ok {
		return ""
	}
	cs := t.coord.ChunkAt(pos)
	if cs == nil || cs == t.coord.CurrentChunk() {
		return ""
	}
	scene := cs.Scene()
	if err := t.coord.PromoteToCurrent(scene); err != nil {
		t.log.Warn("promote chunk", zap.String("scene", scene), zap.Error(err))
		return ""
	}
	return scene
}
