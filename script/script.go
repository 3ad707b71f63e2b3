// Package script runs tengo chunk scripts. A script defines
//
//	on_init := func(scene) { ... }
//
// which runs once when its chunk is first placed in world space.
package script

import (
	"fmt"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/milk9111/onelevel/chunk"
	"github.com/milk9111/onelevel/common"
	"github.com/milk9111/onelevel/host"
	"go.uber.org/zap"
)

const dispatch = `
if __phase == "init" {
	on_init(__scene)
}
`

// Script is a compiled chunk script. It is not safe for concurrent use.
type Script struct {
	name     string
	compiled *tengo.Compiled
	log      *zap.Logger
}

// Compile compiles src. The script must define on_init.
func Compile(name string, src []byte, log *zap.Logger) (*Script, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := tengo.NewScript([]byte(string(src) + "\n" + dispatch))
	_ = s.Add("__phase", "")
	_ = s.Add("__scene", map[string]any{})
	s.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := s.Compile()
	if err != nil {
		return nil, fmt.Errorf("script: compile %s: %w", name, err)
	}
	return &Script{name: name, compiled: compiled, log: log.With(zap.String("script", name))}, nil
}

func (s *Script) Name() string { return s.name }

// Run calls on_init with scene.
func (s *Script) Run(scene host.Scene) error {
	if s == nil || s.compiled == nil {
		return fmt.Errorf("script: nil script")
	}
	if scene == nil {
		return fmt.Errorf("script: %s: nil scene", s.name)
	}
	if err := s.compiled.Set("__phase", "init"); err != nil {
		return fmt.Errorf("script: %s: %w", s.name, err)
	}
	if err := s.compiled.Set("__scene", s.sceneAPI(scene)); err != nil {
		return fmt.Errorf("script: %s: %w", s.name, err)
	}
	if err := s.compiled.Run(); err != nil {
		return fmt.Errorf("script: run %s on %s: %w", s.name, scene.Name(), err)
	}
	return nil
}

// InitFunc adapts the script to a chunk init callback.
func (s *Script) InitFunc() chunk.InitFunc { return s.Run }

func (s *Script) sceneAPI(scene host.Scene) *tengo.ImmutableMap {
	values := map[string]tengo.Object{
		"name": &tengo.String{Value: scene.Name()},
	}

	values["objects"] = &tengo.UserFunction{Name: "objects", Value: func(args ...tengo.Object) (tengo.Object, error) {
		out := make([]tengo.Object, 0)
		for _, obj := range scene.RootObjects() {
			out = append(out, objectMap(obj))
		}
		return &tengo.Array{Value: out}, nil
	}}

	values["find"] = &tengo.UserFunction{Name: "find", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 1 {
			return &tengo.Array{}, nil
		}
		kind := strings.TrimSpace(objectAsString(args[0]))
		out := make([]tengo.Object, 0)
		for _, obj := range scene.RootObjects() {
			if obj.Kind() == kind {
				out = append(out, &tengo.String{Value: obj.Name()})
			}
		}
		return &tengo.Array{Value: out}, nil
	}}

	values["set_active"] = &tengo.UserFunction{Name: "set_active", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 2 {
			return tengo.FalseValue, nil
		}
		obj := findObject(scene, objectAsString(args[0]))
		if obj == nil {
			return tengo.FalseValue, nil
		}
		obj.SetActive(!args[1].IsFalsy())
		return tengo.TrueValue, nil
	}}

	values["move"] = &tengo.UserFunction{Name: "move", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 3 {
			return tengo.FalseValue, nil
		}
		obj := findObject(scene, objectAsString(args[0]))
		if obj == nil {
			return tengo.FalseValue, nil
		}
		dx, okX := objectAsFloat(args[1])
		dy, okY := objectAsFloat(args[2])
		if !okX || !okY {
			return tengo.FalseValue, nil
		}
		obj.SetPosition(obj.Position().Add(common.Vec2{X: dx, Y: dy}))
		return tengo.TrueValue, nil
	}}

	values["log"] = &tengo.UserFunction{Name: "log", Value: func(args ...tengo.Object) (tengo.Object, error) {
		parts := make([]string, 0, len(args))
		for _, a := range args {
			parts = append(parts, objectAsString(a))
		}
		s.log.Info(strings.Join(parts, " "), zap.String("scene", scene.Name()))
		return tengo.UndefinedValue, nil
	}}

	return &tengo.ImmutableMap{Value: values}
}

func findObject(scene host.Scene, name string) host.Object {
	name = strings.TrimSpace(name)
	for _, obj := range scene.RootObjects() {
		if obj.Name() == name {
			return obj
		}
	}
	return nil
}

func objectMap(obj host.Object) *tengo.ImmutableMap {
	pos := obj.Position()
	active := tengo.FalseValue
	if obj.Active() {
		active = tengo.TrueValue
	}
	return &tengo.ImmutableMap{Value: map[string]tengo.Object{
		"name":   &tengo.String{Value: obj.Name()},
		"kind":   &tengo.String{Value: obj.Kind()},
		"x":      &tengo.Float{Value: pos.X},
		"y":      &tengo.Float{Value: pos.Y},
		"active": active,
	}}
}

func objectAsString(obj tengo.Object) string {
	if obj == nil {
		return ""
	}
	switch v := obj.(type) {
	case *tengo.String:
		return v.Value
	default:
		return strings.Trim(v.String(), "\"")
	}
}

func objectAsFloat(obj tengo.Object) (float64, bool) {
	switch v := obj.(type) {
	case *tengo.Float:
		return v.Value, true
	case *tengo.Int:
		return float64(v.Value), true
	default:
		return 0, false
	}
}
