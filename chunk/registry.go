package chunk

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateScene = errors.New("chunk: scene already registered")
	ErrDuplicateMap   = errors.New("chunk: map already registered")
	ErrUnknownMap     = errors.New("chunk: unknown map")
)

// Registry indexes every registered map by name and every chunk scene back
// to the map that owns it. A scene belongs to at most one map.
type Registry struct {
	maps    []*Map
	byName  map[string]*Map
	byScene map[string]*Map
}

func NewRegistry() *Registry {
	return &Registry{
		byName:  make(map[string]*Map),
		byScene: make(map[string]*Map),
	}
}

// Register claims every scene of m. Nothing is inserted unless every scene is
// free.
func (r *Registry) Register(m *Map) error {
	if r == nil || m == nil {
		return fmt.Errorf("chunk: register nil map")
	}
	if _, ok := r.byName[m.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateMap, m.Name)
	}
	if err := r.checkScenes(m, nil); err != nil {
		return err
	}
	r.insert(m)
	return nil
}

// Replace swaps the registered map with the same name for m. Scenes of the
// old map are released before the duplicate check, so m may reuse them.
func (r *Registry) Replace(m *Map) (*Map, error) {
	if r == nil || m == nil {
		return nil, fmt.Errorf("chunk: replace nil map")
	}
	old, ok := r.byName[m.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMap, m.Name)
	}
	if err := r.checkScenes(m, old); err != nil {
		return nil, err
	}
	for i, existing := range r.maps {
		if existing == old {
			r.maps[i] = m
			break
		}
	}
	for _, c := range old.Chunks {
		delete(r.byScene, c.Scene)
	}
	r.byName[m.Name] = m
	for _, c := range m.Chunks {
		r.byScene[c.Scene] = m
	}
	return old, nil
}

// Unregister drops the named map. Holders of chunk references from it must
// evict them.
func (r *Registry) Unregister(name string) (*Map, bool) {
	if r == nil {
		return nil, false
	}
	m, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	delete(r.byName, name)
	for _, c := range m.Chunks {
		delete(r.byScene, c.Scene)
	}
	for i, existing := range r.maps {
		if existing == m {
			r.maps = append(r.maps[:i], r.maps[i+1:]...)
			break
		}
	}
	return m, true
}

// Lookup returns the map owning scene.
func (r *Registry) Lookup(scene string) (*Map, bool) {
	if r == nil {
		return nil, false
	}
	m, ok := r.byScene[scene]
	return m, ok
}

// ChunkOf returns the owning map and chunk for scene.
func (r *Registry) ChunkOf(scene string) (*Map, *Chunk, bool) {
	m, ok := r.Lookup(scene)
	if !ok {
		return nil, nil, false
	}
	c, ok := m.Chunk(scene)
	return m, c, ok
}

func (r *Registry) Map(name string) (*Map, bool) {
	if r == nil {
		return nil, false
	}
	m, ok := r.byName[name]
	return m, ok
}

// Maps returns the registered maps in registration order.
func (r *Registry) Maps() []*Map {
	if r == nil {
		return nil
	}
	out := make([]*Map, len(r.maps))
	copy(out, r.maps)
	return out
}

func (r *Registry) checkScenes(m, ignore *Map) error {
	seen := make(map[string]struct{}, len(m.Chunks))
	for _, c := range m.Chunks {
		if _, dup := seen[c.Scene]; dup {
			return fmt.Errorf("%w: %s listed twice in map %s", ErrDuplicateScene, c.Scene, m.Name)
		}
		seen[c.Scene] = struct{}{}
		if owner, ok := r.byScene[c.Scene]; ok && owner != ignore {
			return fmt.Errorf("%w: %s is owned by map %s", ErrDuplicateScene, c.Scene, owner.Name)
		}
	}
	return nil
}

func (r *Registry) insert(m *Map) {
	r.maps = append(r.maps, m)
	r.byName[m.Name] = m
	for _, c := range m.Chunks {
		r.byScene[c.Scene] = m
	}
}
