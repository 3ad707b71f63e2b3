package engine

import (
	"github.com/milk9111/onelevel/common"
	"github.com/milk9111/onelevel/host"
	"go.uber.org/zap"
)

var playerSize = common.Vec2{X: 24, Y: 32}

// Trigger runs a transition overlap through the hooks. Only the player
// starts a transition.
func (e *Engine) Trigger(tp host.TransitionPoint, obj host.Object) {
	e.hooks.TransitionEnter(e.enterTransition, tp, obj)
}

func (e *Engine) enterTransition(tp host.TransitionPoint, obj host.Object) {
	if obj == nil || obj.Layer() != host.LayerPlayer {
		return
	}
	e.BeginTransition(tp.TargetScene(), tp.EntryGate())
}

// BeginTransition starts the single-scene transition protocol into target.
// It returns nil when a transition is already running.
func (e *Engine) BeginTransition(target, gate string) host.AsyncOp {
	if e.transition != nil || target == "" {
		return nil
	}
	e.nextSceneName = target
	e.entryGate = gate
	e.log.Info("transition begin", zap.String("from", e.sceneName), zap.String("to", target), zap.String("gate", gate))

	e.hooks.LoadBegin(target)
	op := e.LoadSceneAsync(target, host.LoadSingle)
	op.SetAllowActivation(false)
	e.transition = op
	return op
}

// InTransition reports whether a transition is running.
func (e *Engine) InTransition() bool { return e.transition != nil }

func (e *Engine) updateTransition() {
	op := e.transition
	if op == nil {
		return
	}
	if !op.Done() {
		if !op.AllowActivation() && op.Progress() >= host.ActivationThreshold {
			op.SetAllowActivation(true)
		}
		return
	}
	e.finishTransition(op)
}

func (e *Engine) finishTransition(op host.AsyncOp) {
	target := op.Scene()
	e.transition = nil
	e.nextSceneName = ""

	s, ok := e.scenes[target]
	if !ok {
		e.log.Error("transition target did not load", zap.String("scene", target))
		return
	}

	prev := e.sceneName
	e.sceneName = target
	e.hooks.ActivationComplete(target)
	if prev != "" && prev != target {
		e.UnloadScene(prev)
	}
	e.SetActiveScene(target)

	if g := s.Gate(e.entryGate); g != nil {
		e.placePlayer(g.Position())
	} else {
		e.placePlayer(s.Terrain().Position().Add(s.level.Spawn()))
	}
	e.entryGate = ""
	e.log.Info("transition complete", zap.String("scene", target))
}

// CommitRoom makes name the host's room without loading anything and
// unloads the room the player left.
func (e *Engine) CommitRoom(name string) {
	prev := e.sceneName
	e.sceneName = name
	if prev != "" && prev != name {
		e.UnloadScene(prev)
	}
	e.SetActiveScene(name)
	e.log.Debug("room committed", zap.String("scene", name), zap.String("previous", prev))
}

func (e *Engine) spawnPlayer(pos common.Vec2) {
	if e.player != nil {
		e.placePlayer(pos)
		return
	}
	body, _ := e.physics.newPlayer(pos, playerSize)
	e.player = &Object{
		name:    "player",
		kind:    KindPlayer,
		layer:   host.LayerPlayer,
		pos:     pos,
		active:  true,
		physics: e.physics,
		body:    body,
		rects:   []common.Rect{{X: -playerSize.X / 2, Y: -playerSize.Y / 2, W: playerSize.X, H: playerSize.Y}},
	}
}

func (e *Engine) placePlayer(pos common.Vec2) {
	if e.player == nil {
		e.spawnPlayer(pos)
		return
	}
	e.player.SetPosition(pos)
	e.player.body.SetVelocity(0, 0)
}

// Player returns the player object, or nil before Boot.
func (e *Engine) Player() *Object { return e.player }

func (e *Engine) PlayerPosition() (common.Vec2, bool) {
	if e.player == nil {
		return common.Vec2{}, false
	}
	return e.player.Position(), true
}

// MovePlayer sets the player's velocity.
func (e *Engine) MovePlayer(v common.Vec2) {
	if e.player == nil {
		return
	}
	e.player.body.SetVelocity(v.X, v.Y)
}

// TeleportPlayer places the player at pos.
func (e *Engine) TeleportPlayer(pos common.Vec2) { e.placePlayer(pos) }
