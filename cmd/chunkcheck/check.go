package main

import (
	"fmt"
	"sort"

	"github.com/milk9111/onelevel/chunkmaps"
	"github.com/milk9111/onelevel/common"
	"github.com/milk9111/onelevel/levels"
)

type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

type Finding struct {
	Severity Severity
	Map      string
	Scene    string
	Msg      string
}

func (f Finding) String() string {
	if f.Scene == "" {
		return fmt.Sprintf("%s: %s: %s", f.Severity, f.Map, f.Msg)
	}
	return fmt.Sprintf("%s: %s/%s: %s", f.Severity, f.Map, f.Scene, f.Msg)
}

type fetchFunc func(name string) (*levels.Level, error)

type placed struct {
	scene  string
	bounds common.Rect
}

// check validates chunk maps against the levels they place.
func check(specs []chunkmaps.MapSpec, fetch fetchFunc) []Finding {
	var out []Finding
	report := func(sev Severity, m, scene, format string, args ...any) {
		out = append(out, Finding{Severity: sev, Map: m, Scene: scene, Msg: fmt.Sprintf(format, args...)})
	}

	owners := make(map[string]string)
	cache := make(map[string]*levels.Level)
	load := func(name string) (*levels.Level, error) {
		if lvl, ok := cache[name]; ok {
			return lvl, nil
		}
		lvl, err := fetch(name)
		if err != nil {
			return nil, err
		}
		cache[name] = lvl
		return lvl, nil
	}

	for _, spec := range specs {
		if _, err := spec.Build(nil); err != nil {
			report(Error, spec.Name, "", "%v", err)
		}
		if len(spec.Chunks) == 0 {
			report(Warning, spec.Name, "", "map has no chunks")
		}

		var rooms []placed
		for _, cs := range spec.Chunks {
			if owner, ok := owners[cs.Scene]; ok && owner != spec.Name {
				report(Error, spec.Name, cs.Scene, "scene already placed by map %s", owner)
			}
			owners[cs.Scene] = spec.Name

			lvl, err := load(cs.Scene)
			if err != nil {
				report(Error, spec.Name, cs.Scene, "level: %v", err)
				continue
			}
			offset := common.Vec2{X: cs.Offset.X, Y: cs.Offset.Y}
			rooms = append(rooms, placed{scene: cs.Scene, bounds: lvl.Bounds().Translate(offset)})

			for _, e := range lvl.Entities {
				switch e.Type {
				case levels.EntityTransition:
					target := e.Prop("target")
					tl, err := load(target)
					if err != nil {
						report(Error, spec.Name, cs.Scene, "transition to %q: %v", target, err)
						continue
					}
					if gate := e.Prop("gate"); gate != "" && !hasGate(tl, gate) {
						report(Error, spec.Name, cs.Scene, "transition to %s enters missing gate %q", target, gate)
					}
				case levels.EntityAdditiveScene:
					sub := e.Prop("scene")
					if _, err := load(sub); err != nil {
						report(Error, spec.Name, cs.Scene, "sub scene %q: %v", sub, err)
					}
				}
			}
		}

		for i := range rooms {
			for j := i + 1; j < len(rooms); j++ {
				if overlaps(rooms[i].bounds, rooms[j].bounds) {
					report(Warning, spec.Name, rooms[i].scene, "overlaps %s", rooms[j].scene)
				}
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Severity > out[j].Severity })
	return out
}

func hasGate(lvl *levels.Level, name string) bool {
	for _, e := range lvl.Entities {
		if e.Type == levels.EntityGate && e.Prop("name") == name {
			return true
		}
	}
	return false
}

func overlaps(a, b common.Rect) bool {
	return a.X < b.X+b.W && b.X < a.X+a.W && a.Y < b.Y+b.H && b.Y < a.Y+a.H
}
