// Package host describes the narrow scene-loading surface the chunk loader needs
// from the game it runs inside. Adapters implement Port and route their primitive
// calls through every installed Hooks table so the loader can intercept them.
package host

import "github.com/milk9111/onelevel/common"

// LoadMode mirrors the engine's scene load modes.
type LoadMode int

const (
	// LoadSingle replaces every loaded scene once the new scene activates.
	LoadSingle LoadMode = iota
	// LoadAdditive keeps the already loaded scenes resident.
	LoadAdditive
)

func (m LoadMode) String() string {
	switch m {
	case LoadSingle:
		return "single"
	case LoadAdditive:
		return "additive"
	default:
		return "unknown"
	}
}

// Layer is a physics layer.
type Layer int

const (
	LayerDefault Layer = iota
	LayerTerrain
	LayerPlayer
	LayerEnemy
)

// ActivationThreshold is the progress an async load reports once its data is
// fetched but activation has not been allowed yet.
const ActivationThreshold = 0.9

// AsyncOp is an asynchronous scene load or unload.
type AsyncOp interface {
	Scene() string
	// Progress reports 0..1. Adapters route it through Hooks.Progress.
	Progress() float64
	AllowActivation() bool
	// SetAllowActivation is routed through Hooks.SetAllowActivation.
	SetAllowActivation(allow bool)
	Done() bool
	// OnCompleted registers fn to run once the operation is done. If it is
	// already done fn runs immediately.
	OnCompleted(fn func(AsyncOp))
}

// Object is a root object of a scene.
type Object interface {
	Name() string
	Kind() string
	Layer() Layer
	Position() common.Vec2
	SetPosition(p common.Vec2)
	Active() bool
	SetActive(active bool)
}

// Scene is a handle to a loaded (or formerly loaded) scene.
type Scene interface {
	Name() string
	// IsValid is false once the scene has been unloaded.
	IsValid() bool
	IsLoaded() bool
	// Bounds are the scene extents in authoring space.
	Bounds() common.Rect
	RootObjects() []Object
}

// TransitionPoint is a trigger volume leading to another scene.
type TransitionPoint interface {
	Name() string
	TargetScene() string
	EntryGate() string
}

// Mesh is a minimal triangle mesh in local coordinates.
type Mesh struct {
	Vertices  []common.Vec2
	Triangles []uint16
}

// QuadMesh returns the two-triangle mesh covering a w by h rectangle.
func QuadMesh(w, h float64) Mesh {
	return Mesh{
		Vertices: []common.Vec2{
			{X: 0, Y: 0},
			{X: w, Y: 0},
			{X: 0, Y: h},
			{X: w, Y: h},
		},
		Triangles: []uint16{0, 2, 1, 2, 3, 1},
	}
}

// PassageSpec describes a synthesized collider that fills the gap between two
// rooms that do not touch in world space.
type PassageSpec struct {
	Name     string
	Position common.Vec2
	Size     common.Vec2
	Layer    Layer
	Mesh     Mesh
}

// Port is the host's scene-loading surface.
type Port interface {
	LoadSceneAsync(name string, mode LoadMode) AsyncOp
	// UnloadScene unloads a scene by name, reporting whether it was handled.
	UnloadScene(name string) bool
	UnloadSceneAsync(name string) AsyncOp
	SceneByName(name string) Scene
	LoadedScenes() []Scene
	ActiveScene() Scene
	SetActiveScene(name string) bool

	// SceneName is the room the host's game manager believes the player is in.
	SceneName() string
	// NextSceneName is the transition target while one is in progress.
	NextSceneName() string
	// CommitRoom tells the host the player now occupies name. The host runs the
	// tail of its transition protocol, which unloads the room it leaves.
	CommitRoom(name string)

	SpawnPassage(scene string, spec PassageSpec) (Object, error)
	PlayerPosition() (common.Vec2, bool)

	// Intercept installs a hook table. The returned func removes it.
	Intercept(h *Hooks) (remove func())
}
