package loader

import (
	"github.com/milk9111/onelevel/chunk"
	"github.com/milk9111/onelevel/common"
	"github.com/milk9111/onelevel/host"
)

// WorldBias is added to every chunk placement so chunk coordinates never
// overlap the host's default single-room origin.
var WorldBias = common.Vec2{X: 200, Y: 200}

// Phase is the lifecycle phase of a chunk.
type Phase int

const (
	PhaseUnloaded Phase = iota
	PhaseLoading
	PhaseLoaded
)

func (p Phase) String() string {
	switch p {
	case PhaseUnloaded:
		return "unloaded"
	case PhaseLoading:
		return "loading"
	case PhaseLoaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// ChunkState is the runtime record of one resident chunk. It is owned by the
// Coordinator; other packages only read it.
type ChunkState struct {
	chunk   *chunk.Chunk
	owner   *chunk.Map
	phase   Phase
	current bool

	mainScene host.Scene
	scenes    []host.Scene
	loadOp    host.AsyncOp

	offset  common.Vec2
	applied map[string]common.Vec2

	passagesBuilt bool
	initFired     bool
}

func newChunkState(m *chunk.Map, c *chunk.Chunk) *ChunkState {
	return &ChunkState{
		chunk:   c,
		owner:   m,
		phase:   PhaseLoading,
		offset:  c.Offset,
		applied: make(map[string]common.Vec2),
	}
}

func (cs *ChunkState) Chunk() *chunk.Chunk   { return cs.chunk }
func (cs *ChunkState) Map() *chunk.Map       { return cs.owner }
func (cs *ChunkState) Scene() string         { return cs.chunk.Scene }
func (cs *ChunkState) Phase() Phase          { return cs.phase }
func (cs *ChunkState) IsCurrent() bool       { return cs.current }
func (cs *ChunkState) MainScene() host.Scene { return cs.mainScene }
func (cs *ChunkState) LoadOp() host.AsyncOp  { return cs.loadOp }
func (cs *ChunkState) Offset() common.Vec2   { return cs.offset }
func (cs *ChunkState) PassagesBuilt() bool   { return cs.passagesBuilt }
func (cs *ChunkState) Scenes() []host.Scene  { return append([]host.Scene(nil), cs.scenes...) }
func (cs *ChunkState) IsLoaded() bool        { return cs.phase == PhaseLoaded }
func (cs *ChunkState) Origin() common.Vec2   { return cs.offset.Add(WorldBias) }

// Applied is the translation currently applied to scene.
func (cs *ChunkState) Applied(scene string) common.Vec2 { return cs.applied[scene] }

// WorldBounds is the main scene extent in world space. It is empty until the
// main scene has loaded.
func (cs *ChunkState) WorldBounds() common.Rect {
	if cs.mainScene == nil || !cs.mainScene.IsValid() {
		return common.Rect{}
	}
	return cs.mainScene.Bounds().Translate(cs.applied[cs.mainScene.Name()])
}

func (cs *ChunkState) hasScene(name string) bool {
	for _, s := range cs.scenes {
		if s.Name() == name {
			return true
		}
	}
	return false
}
