package main

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/milk9111/onelevel/common"
)

// Input holds the state polled once per frame.
type Input struct {
	// Move is the unit direction from WASD or the arrows.
	Move common.Vec2
	// Mouse is the cursor in world coordinates.
	Mouse  common.Vec2
	Wheel  float64
	Ctrl   bool
	Grab   bool
	Drag   bool
	Quit   bool
	Copy   bool
	Toggle bool

	camera *Camera
}

func NewInput(camera *Camera) *Input {
	return &Input{camera: camera}
}

func (i *Input) Update() {
	mx, my := ebiten.CursorPosition()
	i.Mouse = i.camera.ScreenToWorld(mx, my)
	_, i.Wheel = ebiten.Wheel()

	var move common.Vec2
	if ebiten.IsKeyPressed(ebiten.KeyA) || ebiten.IsKeyPressed(ebiten.KeyLeft) {
		move.X--
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) || ebiten.IsKeyPressed(ebiten.KeyRight) {
		move.X++
	}
	if ebiten.IsKeyPressed(ebiten.KeyW) || ebiten.IsKeyPressed(ebiten.KeyUp) {
		move.Y--
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) || ebiten.IsKeyPressed(ebiten.KeyDown) {
		move.Y++
	}
	i.Move = move

	i.Ctrl = ebiten.IsKeyPressed(ebiten.KeyControl)
	i.Grab = inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft)
	i.Drag = ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	i.Copy = inpututil.IsKeyJustPressed(ebiten.KeyF6)
	i.Toggle = inpututil.IsKeyJustPressed(ebiten.KeyF1)
	i.Quit = inpututil.IsKeyJustPressed(ebiten.KeyF12)
}
