package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatcherChainOrder(t *testing.T) {
	var d Dispatcher
	var calls []string

	removeA := d.Install(&Hooks{
		UnloadScene: func(next UnloadFunc, name string) bool {
			calls = append(calls, "a")
			return next(name)
		},
	})
	d.Install(&Hooks{
		UnloadScene: func(next UnloadFunc, name string) bool {
			calls = append(calls, "b")
			return next(name)
		},
	})

	ok := d.UnloadScene(func(name string) bool {
		calls = append(calls, "base:"+name)
		return true
	}, "Town")

	assert.True(t, ok)
	assert.Equal(t, []string{"b", "a", "base:Town"}, calls)

	calls = nil
	removeA()
	removeA()
	d.UnloadScene(func(string) bool { calls = append(calls, "base"); return true }, "Town")
	assert.Equal(t, []string{"b", "base"}, calls)
	assert.Equal(t, 1, d.Len())
}

func TestDispatcherShortCircuit(t *testing.T) {
	var d Dispatcher
	d.Install(&Hooks{
		UnloadScene: func(next UnloadFunc, name string) bool { return true },
	})

	called := false
	ok := d.UnloadScene(func(string) bool { called = true; return false }, "Town")

	assert.True(t, ok)
	assert.False(t, called)
}

func TestQuadMesh(t *testing.T) {
	m := QuadMesh(4, 2)
	assert.Len(t, m.Vertices, 4)
	assert.Equal(t, []uint16{0, 2, 1, 2, 3, 1}, m.Triangles)
	assert.Equal(t, 4.0, m.Vertices[3].X)
	assert.Equal(t, 2.0, m.Vertices[3].Y)
}
