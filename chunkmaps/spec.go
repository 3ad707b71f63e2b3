package chunkmaps

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/milk9111/onelevel/chunk"
	"github.com/milk9111/onelevel/common"
	"github.com/milk9111/onelevel/script"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type OffsetSpec struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type RectSpec struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
}

type ChunkSpec struct {
	Scene    string     `yaml:"scene"`
	Offset   OffsetSpec `yaml:"offset"`
	Passages []RectSpec `yaml:"passages,omitempty"`
	Script   string     `yaml:"script,omitempty"`
}

// MapSpec is the file form of a chunk map.
type MapSpec struct {
	Name   string      `yaml:"name"`
	Chunks []ChunkSpec `yaml:"chunks"`
}

func LoadSpec[T any](filename string) (T, error) {
	var zero T
	data, err := Load(filename)
	if err != nil {
		return zero, fmt.Errorf("chunkmaps: load %s: %w", filename, err)
	}

	var spec T
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("chunkmaps: unmarshal %s: %w", filename, err)
	}

	return spec, nil
}

// LoadMap reads a map file. A missing name defaults to the file name.
func LoadMap(filename string) (MapSpec, error) {
	spec, err := LoadSpec[MapSpec](filename)
	if err != nil {
		return MapSpec{}, err
	}
	if strings.TrimSpace(spec.Name) == "" {
		base := path.Base(cleanMapPath(filename))
		spec.Name = strings.TrimSuffix(base, path.Ext(base))
	}
	return spec, nil
}

// Build turns spec into a chunk map. Scripts are compiled once per file and
// shared between the chunks that name them.
func (spec MapSpec) Build(log *zap.Logger) (*chunk.Map, error) {
	if log == nil {
		log = zap.NewNop()
	}
	compiled := make(map[string]*script.Script)
	chunks := make([]*chunk.Chunk, 0, len(spec.Chunks))
	for _, cs := range spec.Chunks {
		c := &chunk.Chunk{
			Scene:  cs.Scene,
			Offset: common.Vec2{X: cs.Offset.X, Y: cs.Offset.Y},
		}
		for _, p := range cs.Passages {
			if p.W <= 0 || p.H <= 0 {
				return nil, fmt.Errorf("chunkmaps: %s: %s: passage %vx%v has no area", spec.Name, cs.Scene, p.W, p.H)
			}
			c.Passages = append(c.Passages, common.Rect{X: p.X, Y: p.Y, W: p.W, H: p.H})
		}
		if cs.Script != "" {
			s, ok := compiled[cs.Script]
			if !ok {
				src, err := LoadScript(cs.Script)
				if err != nil {
					return nil, fmt.Errorf("chunkmaps: %s: load script %s: %w", spec.Name, cs.Script, err)
				}
				s, err = script.Compile(cs.Script, src, log)
				if err != nil {
					return nil, fmt.Errorf("chunkmaps: %s: %w", spec.Name, err)
				}
				compiled[cs.Script] = s
			}
			c.OnInit = s.InitFunc()
		}
		chunks = append(chunks, c)
	}
	return chunk.NewMap(spec.Name, chunks...)
}

// LoadAll builds and registers every map file. Maps that fail are skipped
// and their errors joined into the result.
func LoadAll(reg *chunk.Registry, log *zap.Logger) ([]MapSpec, error) {
	if log == nil {
		log = zap.NewNop()
	}
	names, err := Names()
	if err != nil {
		return nil, err
	}
	var (
		specs []MapSpec
		errs  []error
	)
	for _, name := range names {
		spec, err := LoadMap(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		m, err := spec.Build(log)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := reg.Register(m); err != nil {
			errs = append(errs, fmt.Errorf("chunkmaps: %s: %w", name, err))
			continue
		}
		log.Debug("registered chunk map", zap.String("map", m.Name), zap.Int("chunks", m.Len()))
		specs = append(specs, spec)
	}
	return specs, errors.Join(errs...)
}

// WithOffsets returns a copy of spec with the offsets of m's chunks.
func (spec MapSpec) WithOffsets(m *chunk.Map) MapSpec {
	out := MapSpec{Name: spec.Name, Chunks: make([]ChunkSpec, len(spec.Chunks))}
	for i, cs := range spec.Chunks {
		cs.Passages = append([]RectSpec(nil), cs.Passages...)
		if c, ok := m.Chunk(cs.Scene); ok {
			cs.Offset = OffsetSpec{X: c.Offset.X, Y: c.Offset.Y}
		}
		out.Chunks[i] = cs
	}
	return out
}

func (spec MapSpec) Dump() ([]byte, error) {
	data, err := yaml.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("chunkmaps: marshal %s: %w", spec.Name, err)
	}
	return data, nil
}

// UsesScript reports whether any chunk of spec runs the named script.
func (spec MapSpec) UsesScript(name string) bool {
	want := path.Base(cleanScriptPath(name))
	for _, cs := range spec.Chunks {
		if cs.Script != "" && path.Base(cleanScriptPath(cs.Script)) == want {
			return true
		}
	}
	return false
}
