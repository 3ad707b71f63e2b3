package chunk

import (
	"fmt"
	"strings"

	"github.com/milk9111/onelevel/common"
	"github.com/milk9111/onelevel/host"
)

// InitFunc runs once after a chunk's main scene has been placed in world space.
type InitFunc func(scene host.Scene) error

// Chunk places one room scene in the shared world. Chunks are not mutated
// after their map is registered.
type Chunk struct {
	Scene  string
	Offset common.Vec2
	// Passages are extra colliders in chunk-local space that close gaps
	// between rooms which do not touch.
	Passages []common.Rect
	OnInit   InitFunc
}

// Map is a named, ordered set of chunks loaded together as one area.
type Map struct {
	Name    string
	Chunks  []*Chunk
	byScene map[string]*Chunk
}

// NewMap builds a map and its scene index. Scene names must be non-empty and
// unique within the map.
func NewMap(name string, chunks ...*Chunk) (*Map, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("chunk: map name is empty")
	}
	m := &Map{
		Name:    name,
		Chunks:  make([]*Chunk, 0, len(chunks)),
		byScene: make(map[string]*Chunk, len(chunks)),
	}
	for i, c := range chunks {
		if c == nil || strings.TrimSpace(c.Scene) == "" {
			return nil, fmt.Errorf("chunk: map %s: chunk %d has no scene", name, i)
		}
		if _, ok := m.byScene[c.Scene]; ok {
			return nil, fmt.Errorf("chunk: map %s: %w: %s", name, ErrDuplicateScene, c.Scene)
		}
		m.byScene[c.Scene] = c
		m.Chunks = append(m.Chunks, c)
	}
	return m, nil
}

// Chunk returns the chunk for scene.
func (m *Map) Chunk(scene string) (*Chunk, bool) {
	if m == nil {
		return nil, false
	}
	c, ok := m.byScene[scene]
	return c, ok
}

func (m *Map) Contains(scene string) bool {
	_, ok := m.Chunk(scene)
	return ok
}

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Chunks)
}
