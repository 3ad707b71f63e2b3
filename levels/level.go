package levels

import (
	"fmt"

	"github.com/milk9111/onelevel/common"
)

const TileSize = 32

// Level is a tile room stored as JSON.
type Level struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	// Layers are flat row-major arrays of Width*Height tiles. Zero is empty.
	Layers    [][]int     `json:"layers,omitempty"`
	LayerMeta []LayerMeta `json:"layer_meta,omitempty"`

	// player spawn in tile coordinates
	SpawnX int `json:"spawn_x,omitempty"`
	SpawnY int `json:"spawn_y,omitempty"`

	Entities []Entity `json:"entities,omitempty"`
}

type LayerMeta struct {
	HasPhysics bool   `json:"has_physics"`
	Color      string `json:"color"`
}

// Entity is a placed object in pixel coordinates.
type Entity struct {
	Type  string                 `json:"type"`
	X     int                    `json:"x"`
	Y     int                    `json:"y"`
	Props map[string]interface{} `json:"props,omitempty"`
}

// Entity types understood by the engine.
const (
	EntityTransition    = "transition"
	EntityGate          = "gate"
	EntityCameraLock    = "camera_lock"
	EntityAdditiveScene = "additive_scene"
)

// Prop returns a string property or "".
func (e Entity) Prop(key string) string {
	if e.Props == nil {
		return ""
	}
	switch v := e.Props[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Num returns a numeric property or def.
func (e Entity) Num(key string, def float64) float64 {
	if e.Props == nil {
		return def
	}
	switch v := e.Props[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}

// Position is the entity position in pixels.
func (e Entity) Position() common.Vec2 {
	return common.Vec2{X: float64(e.X), Y: float64(e.Y)}
}

// Bounds is the room extent in pixels.
func (l *Level) Bounds() common.Rect {
	return common.Rect{W: float64(l.Width * TileSize), H: float64(l.Height * TileSize)}
}

// Spawn is the player spawn point in pixels.
func (l *Level) Spawn() common.Vec2 {
	return common.Vec2{X: float64(l.SpawnX*TileSize + TileSize/2), Y: float64(l.SpawnY*TileSize + TileSize/2)}
}

// SolidRects merges the tiles of every physics layer into as few rectangles
// as a greedy row-then-column sweep finds.
func (l *Level) SolidRects() []common.Rect {
	var out []common.Rect
	for i, layer := range l.Layers {
		if i >= len(l.LayerMeta) || !l.LayerMeta[i].HasPhysics || len(layer) != l.Width*l.Height {
			continue
		}
		out = append(out, l.mergeTiles(layer)...)
	}
	return out
}

func (l *Level) mergeTiles(layer []int) []common.Rect {
	var out []common.Rect
	processed := make([]bool, l.Width*l.Height)
	for y := 0; y < l.Height; y++ {
		for x := 0; x < l.Width; x++ {
			idx := y*l.Width + x
			if processed[idx] || layer[idx] == 0 {
				processed[idx] = true
				continue
			}

			w := 1
			for x+w < l.Width {
				idx2 := y*l.Width + (x + w)
				if processed[idx2] || layer[idx2] == 0 {
					break
				}
				w++
			}

			h := 1
		heightLoop:
			for y+h < l.Height {
				for xi := x; xi < x+w; xi++ {
					idx2 := (y+h)*l.Width + xi
					if processed[idx2] || layer[idx2] == 0 {
						break heightLoop
					}
				}
				h++
			}

			out = append(out, common.Rect{
				X: float64(x * TileSize),
				Y: float64(y * TileSize),
				W: float64(w * TileSize),
				H: float64(h * TileSize),
			})
			for yy := y; yy < y+h; yy++ {
				for xx := x; xx < x+w; xx++ {
					processed[yy*l.Width+xx] = true
				}
			}
		}
	}
	return out
}
