package main

import (
	"fmt"
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/milk9111/onelevel/chunkmaps"
	"github.com/milk9111/onelevel/common"
	"github.com/milk9111/onelevel/config"
	"github.com/milk9111/onelevel/engine"
	"github.com/milk9111/onelevel/loader"
	"go.uber.org/zap"
	"golang.org/x/image/colornames"
)

const (
	playerSpeed = 240.0
	tickSeconds = 1.0 / 60.0
)

type Game struct {
	frames int

	cfg   *config.Config
	eng   *engine.Engine
	patch *loader.Patch
	log   *zap.Logger

	camera *Camera
	input  *Input
	hud    *HUD
	debug  *Debugger
	specs  []chunkmaps.MapSpec

	// white is the source texture for passage meshes.
	white *ebiten.Image
}

func NewGame(cfg *config.Config, eng *engine.Engine, patch *loader.Patch, specs []chunkmaps.MapSpec, log *zap.Logger) *Game {
	camera := NewCamera(common.BaseWidth, common.BaseHeight, 1)
	if pos, ok := eng.PlayerPosition(); ok {
		camera.Pos = pos
	}
	white := ebiten.NewImage(3, 3)
	white.Fill(color.White)

	g := &Game{
		cfg:    cfg,
		eng:    eng,
		patch:  patch,
		log:    log,
		camera: camera,
		input:  NewInput(camera),
		specs:  specs,
		white:  white.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image),
	}
	g.hud = NewHUD(g.toggleTransitions)
	return g
}

// EnableDebug turns on chunk dragging, offset copying and, optionally, map
// hot reload.
func (g *Game) EnableDebug(hotReload bool) {
	g.debug = NewDebugger(g.patch, g.specs, g.log.Named("debug"))
	if hotReload {
		g.debug.Watch()
	}
}

func (g *Game) Close() {
	if g.debug != nil {
		g.debug.Close()
	}
}

func (g *Game) toggleTransitions() {
	g.cfg.Chunks.DisableTransitions = !g.cfg.Chunks.DisableTransitions
	g.patch.SetDisableTransitions(g.cfg.Chunks.DisableTransitions)
	g.log.Info("transition suppression toggled", zap.Bool("disabled", g.cfg.Chunks.DisableTransitions))
}

func (g *Game) Update() error {
	g.frames++

	g.input.Update()
	if g.input.Quit {
		return ebiten.Termination
	}
	if g.input.Toggle {
		g.cfg.Viewer.ShowHUD = !g.cfg.Viewer.ShowHUD
	}
	g.camera.ZoomBy(g.input.Wheel, g.cfg.Viewer.ZoomSpeed)
	g.camera.Update()

	dragging := false
	if g.debug != nil {
		dragging = g.debug.Update(g.input)
	}

	if dragging {
		g.eng.MovePlayer(common.Vec2{})
	} else {
		g.eng.MovePlayer(g.input.Move.Scale(playerSpeed))
	}
	g.eng.Update(tickSeconds)
	g.patch.Update()

	if pos, ok := g.eng.PlayerPosition(); ok && !dragging {
		g.camera.Follow(pos)
	}

	if g.cfg.Viewer.ShowHUD {
		g.hud.SetLines(g.statusLines())
		g.hud.Update()
	}
	return nil
}

func (g *Game) statusLines() []string {
	lines := []string{fmt.Sprintf("scene: %s", g.eng.SceneName())}
	if pos, ok := g.eng.PlayerPosition(); ok {
		lines = append(lines, fmt.Sprintf("player: (%.0f, %.0f)", pos.X, pos.Y))
	}
	lines = append(lines, fmt.Sprintf("zoom: %.2f", g.camera.Zoom()))
	return append(lines, g.patch.Status().Lines()...)
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(colornames.Midnightblue)

	for _, hs := range g.eng.LoadedScenes() {
		s, ok := hs.(*engine.Scene)
		if !ok || !s.IsLoaded() {
			continue
		}
		for _, obj := range s.Objects() {
			if obj.Active() {
				g.drawObject(screen, obj)
			}
		}
	}

	for _, c := range g.patch.Status().Chunks {
		if c.Bounds.Empty() {
			continue
		}
		clr := color.Color(colornames.Dimgray)
		if c.Current {
			clr = colornames.Gold
		}
		g.strokeRect(screen, c.Bounds, clr)
	}

	if p := g.eng.Player(); p != nil {
		for _, r := range p.Rects() {
			g.fillRect(screen, r, colornames.Crimson)
		}
	}

	if g.cfg.Viewer.ShowHUD {
		g.hud.Draw(screen)
	}
	ebitenutil.DebugPrint(screen, fmt.Sprintf("Frames: %d    FPS: %.2f", g.frames, ebiten.ActualFPS()))
}

func (g *Game) drawObject(screen *ebiten.Image, obj *engine.Object) {
	switch obj.Kind() {
	case engine.KindTerrain:
		for _, r := range obj.Rects() {
			g.fillRect(screen, r, colornames.Slategray)
		}
	case engine.KindPassage:
		g.drawMesh(screen, obj, colornames.Teal)
	case engine.KindTransition:
		for _, r := range obj.Rects() {
			g.strokeRect(screen, r, colornames.Orange)
		}
	case engine.KindCameraLock:
		for _, r := range obj.Rects() {
			g.strokeRect(screen, r, colornames.Mediumpurple)
		}
	case engine.KindGate:
		x, y := g.camera.WorldToScreen(obj.Position())
		vector.DrawFilledCircle(screen, x, y, 3, colornames.Lime, true)
	}
}

func (g *Game) drawMesh(screen *ebiten.Image, obj *engine.Object, clr color.RGBA) {
	mesh := obj.Mesh()
	if len(mesh.Vertices) == 0 {
		return
	}
	pos := obj.Position()
	vs := make([]ebiten.Vertex, len(mesh.Vertices))
	for i, v := range mesh.Vertices {
		x, y := g.camera.WorldToScreen(pos.Add(v))
		vs[i] = ebiten.Vertex{
			DstX:   x,
			DstY:   y,
			SrcX:   1,
			SrcY:   1,
			ColorR: float32(clr.R) / 0xff,
			ColorG: float32(clr.G) / 0xff,
			ColorB: float32(clr.B) / 0xff,
			ColorA: 1,
		}
	}
	screen.DrawTriangles(vs, mesh.Triangles, g.white, &ebiten.DrawTrianglesOptions{})
}

func (g *Game) fillRect(screen *ebiten.Image, r common.Rect, clr color.Color) {
	x, y := g.camera.WorldToScreen(r.Min())
	z := float32(g.camera.Zoom())
	vector.DrawFilledRect(screen, x, y, float32(r.W)*z, float32(r.H)*z, clr, false)
}

func (g *Game) strokeRect(screen *ebiten.Image, r common.Rect, clr color.Color) {
	x, y := g.camera.WorldToScreen(r.Min())
	z := float32(g.camera.Zoom())
	vector.StrokeRect(screen, x, y, float32(r.W)*z, float32(r.H)*z, 1, clr, false)
}

func (g *Game) LayoutF(outsideWidth, outsideHeight float64) (float64, float64) {
	g.camera.SetScreenSize(int(outsideWidth), int(outsideHeight))
	return outsideWidth, outsideHeight
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	panic("shouldn't use Layout")
}
