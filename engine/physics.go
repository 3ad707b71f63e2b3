package engine

import (
	"math"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/onelevel/common"
)

const (
	collisionTypeSolid cp.CollisionType = iota + 1
	collisionTypePlayer
	collisionTypeTransition
)

// Physics owns the Chipmunk space shared by every loaded scene.
type Physics struct {
	space *cp.Space

	sensors map[*cp.Shape]*Object
	entered []*Object
}

func NewPhysics(gravity float64) *Physics {
	space := cp.NewSpace()
	space.Iterations = 20
	space.SetGravity(cp.Vector{X: 0, Y: gravity})

	p := &Physics{
		space:   space,
		sensors: make(map[*cp.Shape]*Object),
	}
	p.setupHandlers()
	return p
}

// Space returns the underlying Chipmunk space.
func (p *Physics) Space() *cp.Space {
	if p == nil {
		return nil
	}
	return p.space
}

// Step advances the simulation and returns the transition sensors the player
// started touching.
func (p *Physics) Step(dt float64) []*Object {
	if p == nil || p.space == nil {
		return nil
	}
	p.space.Step(dt)
	entered := p.entered
	p.entered = nil
	return entered
}

func (p *Physics) newKinematic(pos common.Vec2) *cp.Body {
	body := cp.NewKinematicBody()
	body.SetPosition(vec(pos))
	p.space.AddBody(body)
	return body
}

func (p *Physics) newPlayer(pos, size common.Vec2) (*cp.Body, *cp.Shape) {
	body := cp.NewBody(1, math.Inf(1))
	body.SetPosition(vec(pos))
	shape := cp.NewBox(body, size.X, size.Y, 0)
	shape.SetFriction(0.8)
	shape.SetCollisionType(collisionTypePlayer)
	p.space.AddBody(body)
	p.space.AddShape(shape)
	return body, shape
}

// addBox attaches a box in body-local coordinates.
func (p *Physics) addBox(body *cp.Body, r common.Rect, ct cp.CollisionType) *cp.Shape {
	bb := cp.BB{L: r.X, B: r.Y, R: r.X + r.W, T: r.Y + r.H}
	shape := cp.NewBox2(body, bb, 0)
	shape.SetFriction(0.8)
	shape.SetCollisionType(ct)
	p.space.AddShape(shape)
	return shape
}

func (p *Physics) addSensor(body *cp.Body, r common.Rect, owner *Object) *cp.Shape {
	shape := p.addBox(body, r, collisionTypeTransition)
	shape.SetSensor(true)
	p.sensors[shape] = owner
	return shape
}

func (p *Physics) move(body *cp.Body, pos common.Vec2) {
	body.SetPosition(vec(pos))
}

func (p *Physics) remove(body *cp.Body) {
	if p == nil || body == nil {
		return
	}
	var shapes []*cp.Shape
	body.EachShape(func(s *cp.Shape) { shapes = append(shapes, s) })
	for _, s := range shapes {
		delete(p.sensors, s)
		p.space.RemoveShape(s)
	}
	p.space.RemoveBody(body)
}

func (p *Physics) setupHandlers() {
	handler := p.space.NewCollisionHandler(collisionTypePlayer, collisionTypeTransition)
	handler.UserData = p
	handler.BeginFunc = func(arb *cp.Arbiter, space *cp.Space, userData interface{}) bool {
		world, ok := userData.(*Physics)
		if !ok || world == nil {
			return true
		}
		_, sensor := arb.Shapes()
		if obj, ok := world.sensors[sensor]; ok && obj.Active() {
			// Queued so scene changes never run while the space is locked.
			world.entered = append(world.entered, obj)
		}
		return true
	}
}

func vec(v common.Vec2) cp.Vector { return cp.Vector{X: v.X, Y: v.Y} }

func fromVec(v cp.Vector) common.Vec2 { return common.Vec2{X: v.X, Y: v.Y} }
