// Package chunkmaps holds the chunk map definitions bundled with the game.
// Files in Dir on disk take precedence over the embedded copies so maps can
// be edited and hot reloaded while the game runs.
package chunkmaps

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

//go:embed scripts/*.tengo
var ScriptsFS embed.FS

//go:embed *.yaml
var MapsFS embed.FS

// Dir is the on-disk override directory.
var Dir = "chunkmaps"

func Load(name string) ([]byte, error) {
	clean := cleanMapPath(name)
	if data, err := os.ReadFile(diskPath(clean)); err == nil {
		return data, nil
	}
	return MapsFS.ReadFile(clean)
}

func LoadScript(name string) ([]byte, error) {
	clean := cleanScriptPath(name)
	if data, err := os.ReadFile(diskPath(clean)); err == nil {
		return data, nil
	}
	return ScriptsFS.ReadFile(clean)
}

func ModTime(name string) (time.Time, bool) {
	info, err := os.Stat(diskPath(cleanMapPath(name)))
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// Names lists every map file, embedded or on disk, sorted.
func Names() ([]string, error) {
	seen := make(map[string]bool)
	embedded, err := fs.Glob(MapsFS, "*.yaml")
	if err != nil {
		return nil, fmt.Errorf("chunkmaps: list: %w", err)
	}
	for _, m := range embedded {
		seen[m] = true
	}
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		disk, err := filepath.Glob(filepath.Join(Dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("chunkmaps: list %s: %w", Dir, err)
		}
		for _, m := range disk {
			seen[filepath.Base(m)] = true
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func cleanMapPath(p string) string {
	if p == "" {
		return ""
	}
	s := filepath.ToSlash(p)
	if after, ok := strings.CutPrefix(s, "chunkmaps/"); ok {
		s = after
	}
	if path.Ext(s) == "" {
		s += ".yaml"
	}
	return s
}

func cleanScriptPath(p string) string {
	if p == "" {
		return ""
	}
	s := filepath.ToSlash(p)
	if after, ok := strings.CutPrefix(s, "chunkmaps/"); ok {
		s = after
	}
	if after, ok := strings.CutPrefix(s, "scripts/"); ok {
		s = after
	}
	return fmt.Sprintf("scripts/%s", s)
}

func diskPath(clean string) string {
	return filepath.Join(Dir, filepath.FromSlash(clean))
}
