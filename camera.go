package main

import (
	"math"

	"github.com/milk9111/onelevel/common"
)

const (
	minZoom = 0.1
	maxZoom = 4
)

// Camera maps world coordinates to the screen, centered on Pos.
type Camera struct {
	Pos common.Vec2

	screenW int
	screenH int
	zoom    float64
	// wheel zoom eases toward target.
	target float64
	// smoothing factor (0..1). higher -> faster follow.
	smooth float64
}

func NewCamera(screenW, screenH int, zoom float64) *Camera {
	return &Camera{
		Pos:     common.Vec2{X: float64(screenW) / 2, Y: float64(screenH) / 2},
		screenW: screenW,
		screenH: screenH,
		zoom:    zoom,
		target:  zoom,
		smooth:  0.15,
	}
}

func (c *Camera) Zoom() float64 { return c.zoom }

func clampZoom(z float64) float64 { return math.Max(minZoom, math.Min(maxZoom, z)) }

// SetZoom clamps z to the supported range and applies it at once.
func (c *Camera) SetZoom(z float64) {
	c.zoom = clampZoom(z)
	c.target = c.zoom
}

// ZoomBy scales the target zoom by (1+step) per wheel notch. Update eases
// the zoom toward it.
func (c *Camera) ZoomBy(notches, step float64) {
	if notches == 0 {
		return
	}
	c.target = clampZoom(c.target * math.Pow(1+step, notches))
}

// Update eases the zoom toward its target.
func (c *Camera) Update() {
	if c.smooth <= 0 || math.Abs(c.target-c.zoom) < 1e-3 {
		c.zoom = c.target
		return
	}
	c.zoom = common.Lerp(c.zoom, c.target, c.smooth)
}

func (c *Camera) SetScreenSize(w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	c.screenW = w
	c.screenH = h
}

// ViewTopLeft returns the world-space top-left of the current view.
func (c *Camera) ViewTopLeft() common.Vec2 {
	return common.Vec2{
		X: c.Pos.X - float64(c.screenW)/c.zoom/2,
		Y: c.Pos.Y - float64(c.screenH)/c.zoom/2,
	}
}

func (c *Camera) WorldToScreen(p common.Vec2) (float32, float32) {
	tl := c.ViewTopLeft()
	return float32((p.X - tl.X) * c.zoom), float32((p.Y - tl.Y) * c.zoom)
}

func (c *Camera) ScreenToWorld(x, y int) common.Vec2 {
	tl := c.ViewTopLeft()
	return common.Vec2{X: tl.X + float64(x)/c.zoom, Y: tl.Y + float64(y)/c.zoom}
}

// Follow moves the camera toward target.
func (c *Camera) Follow(target common.Vec2) {
	if c.smooth <= 0 {
		c.Pos = target
	} else {
		c.Pos = c.Pos.Add(target.Sub(c.Pos).Scale(c.smooth))
	}
	// snap position to 1/zoom grid to align texels to integer screen pixels
	c.Pos.X = math.Round(c.Pos.X*c.zoom) / c.zoom
	c.Pos.Y = math.Round(c.Pos.Y*c.zoom) / c.zoom
}
