package loader

import (
	"fmt"
	"strings"

	"github.com/milk9111/onelevel/common"
)

type ChunkStatus struct {
	Scene   string
	Phase   Phase
	Offset  common.Vec2
	Bounds  common.Rect
	Current bool
	Scenes  int
}

// Status is a snapshot of the loader for display.
type Status struct {
	Map                string
	Current            string
	Blocked            string
	DisableTransitions bool
	Chunks             []ChunkStatus
}

func (p *Patch) Status() Status {
	st := Status{
		Map:                mapName(p.coord.ActiveMap()),
		Blocked:            p.coord.BlockedScene(),
		DisableTransitions: p.gate.DisableTransitions,
	}
	if cur := p.coord.CurrentChunk(); cur != nil {
		st.Current = cur.Scene()
	}
	for _, cs := range p.coord.Chunks() {
		st.Chunks = append(st.Chunks, ChunkStatus{
			Scene:   cs.Scene(),
			Phase:   cs.Phase(),
			Offset:  cs.Offset(),
			Bounds:  cs.WorldBounds(),
			Current: cs.IsCurrent(),
			Scenes:  len(cs.scenes),
		})
	}
	return st
}

// Lines renders the status one fact per line.
func (s Status) Lines() []string {
	if s.Map == "" {
		return []string{"map: none"}
	}
	lines := []string{
		fmt.Sprintf("map: %s", s.Map),
		fmt.Sprintf("current: %s", s.Current),
	}
	if s.Blocked != "" {
		lines = append(lines, fmt.Sprintf("unload blocked: %s", s.Blocked))
	}
	if s.DisableTransitions {
		lines = append(lines, "transitions disabled")
	}
	for _, c := range s.Chunks {
		mark := " "
		if c.Current {
			mark = "*"
		}
		lines = append(lines, fmt.Sprintf("%s %s %s (%g, %g) scenes=%d",
			mark, c.Scene, c.Phase, c.Offset.X, c.Offset.Y, c.Scenes))
	}
	return lines
}

func (s Status) String() string { return strings.Join(s.Lines(), "\n") }
