package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/milk9111/onelevel/chunk"
	"github.com/milk9111/onelevel/chunkmaps"
	"github.com/milk9111/onelevel/common"
	"github.com/milk9111/onelevel/loader"
	"go.uber.org/zap"
	"golang.design/x/clipboard"
)

// Debugger edits chunk placement while the game runs. Ctrl+drag moves a
// resident chunk, F6 copies the active map with its current offsets to the
// clipboard and edited map files are reloaded.
type Debugger struct {
	patch *loader.Patch
	log   *zap.Logger

	specs   map[string]chunkmaps.MapSpec
	watcher *chunkmaps.Watcher
	clipOK  bool

	dragging   string
	grabMouse  common.Vec2
	grabOffset common.Vec2
}

func NewDebugger(patch *loader.Patch, specs []chunkmaps.MapSpec, log *zap.Logger) *Debugger {
	d := &Debugger{
		patch: patch,
		log:   log,
		specs: make(map[string]chunkmaps.MapSpec, len(specs)),
	}
	for _, s := range specs {
		d.specs[s.Name] = s
	}
	if err := clipboard.Init(); err != nil {
		log.Warn("clipboard unavailable", zap.Error(err))
	} else {
		d.clipOK = true
	}
	return d
}

// Watch starts reloading maps edited under chunkmaps.Dir.
func (d *Debugger) Watch() {
	w, err := chunkmaps.NewWatcher()
	if err != nil {
		d.log.Warn("chunk map hot reload disabled", zap.String("dir", chunkmaps.Dir), zap.Error(err))
		return
	}
	d.watcher = w
	d.log.Info("watching chunk maps", zap.String("dir", chunkmaps.Dir))
}

func (d *Debugger) Close() {
	if d.watcher != nil {
		_ = d.watcher.Close()
		d.watcher = nil
	}
}

// Update applies this frame's debug input and reports whether a chunk is
// being dragged.
func (d *Debugger) Update(in *Input) bool {
	d.poll()

	if in.Copy {
		if err := d.copyOffsets(); err != nil {
			d.log.Warn("copy chunk offsets", zap.Error(err))
		}
	}

	coord := d.patch.Coordinator()
	if in.Ctrl && in.Grab {
		for _, cs := range coord.Chunks() {
			if cs.WorldBounds().Contains(in.Mouse) {
				d.dragging = cs.Scene()
				d.grabMouse = in.Mouse
				d.grabOffset = cs.Offset()
				break
			}
		}
	}
	if d.dragging == "" {
		return false
	}
	if !in.Drag {
		d.log.Info("chunk moved", zap.String("scene", d.dragging))
		d.dragging = ""
		return false
	}
	target := d.grabOffset.Add(in.Mouse.Sub(d.grabMouse)).Round()
	if err := coord.MoveChunkTo(d.dragging, target); err != nil {
		d.log.Warn("drag chunk", zap.Error(err))
		d.dragging = ""
		return false
	}
	return true
}

// Offsets returns the active map definition with the offsets chunks currently
// sit at.
func (d *Debugger) Offsets() (chunkmaps.MapSpec, error) {
	m := d.patch.Coordinator().ActiveMap()
	if m == nil {
		return chunkmaps.MapSpec{}, fmt.Errorf("no active chunk map")
	}
	spec, ok := d.specs[m.Name]
	if !ok {
		return chunkmaps.MapSpec{}, fmt.Errorf("chunk map %s has no file", m.Name)
	}
	var placed []*chunk.Chunk
	for _, cs := range d.patch.Coordinator().Chunks() {
		placed = append(placed, &chunk.Chunk{Scene: cs.Scene(), Offset: cs.Offset()})
	}
	current, err := chunk.NewMap(m.Name, placed...)
	if err != nil {
		return chunkmaps.MapSpec{}, err
	}
	return spec.WithOffsets(current), nil
}

func (d *Debugger) copyOffsets() error {
	spec, err := d.Offsets()
	if err != nil {
		return err
	}
	data, err := spec.Dump()
	if err != nil {
		return err
	}
	if !d.clipOK {
		d.log.Info("chunk offsets", zap.ByteString("yaml", data))
		return nil
	}
	clipboard.Write(clipboard.FmtText, data)
	d.log.Info("chunk offsets copied", zap.String("map", spec.Name))
	return nil
}

func (d *Debugger) poll() {
	if d.watcher == nil {
		return
	}
	for {
		select {
		case ev, ok := <-d.watcher.Events:
			if !ok {
				d.watcher = nil
				return
			}
			d.handle(ev)
		case err, ok := <-d.watcher.Errors:
			if ok {
				d.log.Warn("chunk map watcher", zap.Error(err))
			}
		default:
			return
		}
	}
}

func (d *Debugger) handle(ev chunkmaps.Change) {
	switch ev.Kind {
	case chunkmaps.ChangeMap:
		base := filepath.Base(ev.Path)
		d.reload(strings.TrimSuffix(base, filepath.Ext(base)))
	case chunkmaps.ChangeScript:
		for name, spec := range d.specs {
			if spec.UsesScript(ev.Path) {
				d.reload(name)
			}
		}
	}
}

func (d *Debugger) reload(file string) {
	spec, err := chunkmaps.LoadMap(file)
	if err != nil {
		d.log.Warn("reload chunk map", zap.String("file", file), zap.Error(err))
		return
	}
	m, err := spec.Build(d.log)
	if err != nil {
		d.log.Warn("rebuild chunk map", zap.String("map", spec.Name), zap.Error(err))
		return
	}
	if _, ok := d.patch.Registry().Map(m.Name); ok {
		err = d.patch.ReloadMap(m)
	} else {
		err = d.patch.Registry().Register(m)
	}
	if err != nil {
		d.log.Warn("apply chunk map", zap.String("map", m.Name), zap.Error(err))
		return
	}
	d.specs[spec.Name] = spec
}
