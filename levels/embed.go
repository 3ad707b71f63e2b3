package levels

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed *.json
var LevelsFS embed.FS

// LoadLevelFromFS loads a level bundled with the binary by scene name.
func LoadLevelFromFS(name string) (*Level, error) {
	return Load(LevelsFS, name)
}

// Load reads name.json from fsys.
func Load(fsys fs.FS, name string) (*Level, error) {
	data, err := fs.ReadFile(fsys, fileName(name))
	if err != nil {
		return nil, fmt.Errorf("read level: %w", err)
	}
	var lvl Level
	if err := json.Unmarshal(data, &lvl); err != nil {
		return nil, fmt.Errorf("unmarshal level %s: %w", name, err)
	}
	if lvl.Width <= 0 || lvl.Height <= 0 {
		return nil, fmt.Errorf("invalid level dimensions for %s: %dx%d", name, lvl.Width, lvl.Height)
	}
	for i, layer := range lvl.Layers {
		if len(layer) != lvl.Width*lvl.Height {
			return nil, fmt.Errorf("level %s: layer %d has %d tiles, want %d", name, i, len(layer), lvl.Width*lvl.Height)
		}
	}
	return &lvl, nil
}

// Names lists the levels in fsys, sorted.
func Names(fsys fs.FS) ([]string, error) {
	matches, err := fs.Glob(fsys, "*.json")
	if err != nil {
		return nil, fmt.Errorf("list levels: %w", err)
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSuffix(path.Base(m), ".json"))
	}
	sort.Strings(out)
	return out, nil
}

func fileName(name string) string {
	if strings.HasSuffix(name, ".json") {
		return name
	}
	return name + ".json"
}
