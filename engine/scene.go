package engine

import (
	"fmt"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/onelevel/common"
	"github.com/milk9111/onelevel/host"
	"github.com/milk9111/onelevel/levels"
)

// Object kinds.
const (
	KindTerrain    = "terrain"
	KindPassage    = "passage"
	KindPlayer     = "player"
	KindTransition = levels.EntityTransition
	KindGate       = levels.EntityGate
	KindCameraLock = levels.EntityCameraLock
)

// Object is a root object of a scene. Objects with colliders own a body;
// moving the object moves the body.
type Object struct {
	name   string
	kind   string
	layer  host.Layer
	pos    common.Vec2
	active bool

	physics *Physics
	body    *cp.Body

	entity levels.Entity
	// rects are collider or extent boxes relative to pos.
	rects []common.Rect
	mesh  host.Mesh
}

func (o *Object) Name() string      { return o.name }
func (o *Object) Kind() string      { return o.kind }
func (o *Object) Layer() host.Layer { return o.layer }
func (o *Object) Active() bool      { return o.active }

func (o *Object) Position() common.Vec2 {
	if o.body != nil && o.body.GetType() == cp.BODY_DYNAMIC {
		return fromVec(o.body.Position())
	}
	return o.pos
}

func (o *Object) SetPosition(p common.Vec2) {
	o.pos = p
	if o.body != nil {
		o.physics.move(o.body, p)
	}
}

func (o *Object) SetActive(active bool) { o.active = active }

// Entity is the level entity the object was built from.
func (o *Object) Entity() levels.Entity { return o.entity }

// Rects are the object's boxes in world space.
func (o *Object) Rects() []common.Rect {
	pos := o.Position()
	out := make([]common.Rect, len(o.rects))
	for i, r := range o.rects {
		out[i] = r.Translate(pos)
	}
	return out
}

// Mesh is the passage quad, if any.
func (o *Object) Mesh() host.Mesh { return o.mesh }

func (o *Object) destroy() {
	if o.body != nil {
		o.physics.remove(o.body)
		o.body = nil
	}
}

// transitionPoint adapts a transition object to host.TransitionPoint.
type transitionPoint struct{ obj *Object }

func (t transitionPoint) Name() string        { return t.obj.name }
func (t transitionPoint) TargetScene() string { return t.obj.entity.Prop("target") }
func (t transitionPoint) EntryGate() string   { return t.obj.entity.Prop("gate") }

// Scene is a loaded level.
type Scene struct {
	name   string
	level  *levels.Level
	bounds common.Rect
	valid  bool
	roots  []*Object
}

func (s *Scene) Name() string         { return s.name }
func (s *Scene) IsValid() bool        { return s.valid }
func (s *Scene) IsLoaded() bool       { return s.valid && s.level != nil }
func (s *Scene) Bounds() common.Rect  { return s.bounds }
func (s *Scene) Level() *levels.Level { return s.level }

func (s *Scene) RootObjects() []host.Object {
	out := make([]host.Object, 0, len(s.roots))
	for _, o := range s.roots {
		out = append(out, o)
	}
	return out
}

// Objects returns the concrete root objects.
func (s *Scene) Objects() []*Object {
	return append([]*Object(nil), s.roots...)
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

// Terrain is the object holding the level's solid tiles.
func (s *Scene) Terrain() *Object { return s.Object(s.name + "/terrain") }

// Gate returns the gate entity named name.
func (s *Scene) Gate(name string) *Object {
	for _, o := range s.roots {
		if o.kind == KindGate && o.entity.Prop("name") == name {
			return o
		}
	}
	return nil
}

func (s *Scene) destroy() {
	for _, o := range s.roots {
		o.destroy()
	}
	s.valid = false
}

// buildScene creates the root objects of lvl at authoring coordinates.
func buildScene(p *Physics, name string, lvl *levels.Level) *Scene {
	s := &Scene{name: name, level: lvl, bounds: lvl.Bounds(), valid: true}

	terrain := &Object{name: name + "/terrain", kind: KindTerrain, layer: host.LayerTerrain, active: true, physics: p}
	terrain.body = p.newKinematic(common.Vec2{})
	for _, r := range lvl.SolidRects() {
		p.addBox(terrain.body, r, collisionTypeSolid)
		terrain.rects = append(terrain.rects, r)
	}
	s.roots = append(s.roots, terrain)

	for i, e := range lvl.Entities {
		if e.Type == levels.EntityAdditiveScene {
			continue
		}
		obj := &Object{
			name:    fmt.Sprintf("%s/%s_%d", name, e.Type, i),
			kind:    e.Type,
			layer:   host.LayerDefault,
			pos:     e.Position(),
			active:  true,
			physics: p,
			entity:  e,
		}
		switch e.Type {
		case levels.EntityTransition:
			r := common.Rect{W: e.Num("w", levels.TileSize), H: e.Num("h", 3*levels.TileSize)}
			obj.body = p.newKinematic(obj.pos)
			p.addSensor(obj.body, r, obj)
			obj.rects = []common.Rect{r}
		case levels.EntityCameraLock:
			obj.rects = []common.Rect{{W: e.Num("w", 0), H: e.Num("h", 0)}}
		}
		s.roots = append(s.roots, obj)
	}
	return s
}

// subScenes lists the scenes lvl loads additively once it activates.
func subScenes(lvl *levels.Level) []string {
	var out []string
	for _, e := range lvl.Entities {
		if e.Type != levels.EntityAdditiveScene {
			continue
		}
		if name := e.Prop("scene"); name != "" {
			out = append(out, name)
		}
	}
	return out
}
