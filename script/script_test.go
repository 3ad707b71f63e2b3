package script

import (
	"testing"

	"github.com/milk9111/onelevel/common"
	"github.com/milk9111/onelevel/host/hosttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const cameraLocks = `
on_init := func(scene) {
	for _, name in scene.find("camera_lock") {
		scene.set_active(name, false)
	}
	scene.log("camera locks off in", scene.name)
}
`

func TestRunDisablesCameraLocks(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s, err := Compile("camera_locks.tengo", []byte(cameraLocks), zap.New(core))
	require.NoError(t, err)

	h := hosttest.New(hosttest.Room("Crossroads_01"))
	scene := h.Boot("Crossroads_01")

	require.NoError(t, s.InitFunc()(scene))

	assert.False(t, scene.Object("Crossroads_01/lock").Active())
	assert.True(t, scene.Object("Crossroads_01/terrain").Active())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "camera locks off in Crossroads_01", logs.All()[0].Message)
}

func TestRunMovesObjects(t *testing.T) {
	src := `
on_init := func(scene) {
	for _, obj in scene.objects() {
		if obj.kind == "terrain" {
			scene.move(obj.name, 5, -2.5)
		}
	}
}
`
	s, err := Compile("nudge.tengo", []byte(src), nil)
	require.NoError(t, err)

	h := hosttest.New(hosttest.Room("Town"))
	scene := h.Boot("Town")
	require.NoError(t, s.Run(scene))
	require.NoError(t, s.Run(scene))

	assert.Equal(t, common.Vec2{X: 10, Y: -5}, scene.Object("Town/terrain").Position())
}

func TestCompileErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"no_on_init", `x := 1`},
		{"syntax", `on_init := func(scene) {`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Compile(c.name, []byte(c.src), nil)
			assert.Error(t, err)
		})
	}
}

func TestRunReportsScriptErrors(t *testing.T) {
	s, err := Compile("bad.tengo", []byte(`on_init := func(scene) { scene.missing() }`), nil)
	require.NoError(t, err)

	h := hosttest.New(hosttest.Room("Town"))
	err = s.Run(h.Boot("Town"))
	assert.ErrorContains(t, err, "bad.tengo")

	assert.Error(t, s.Run(nil))
}
