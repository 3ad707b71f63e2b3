// Command chunkcheck validates chunk map files against the bundled levels.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/milk9111/onelevel/chunkmaps"
	"github.com/milk9111/onelevel/levels"
	"go.uber.org/zap"
)

func main() {
	dir := flag.String("dir", chunkmaps.Dir, "chunk map directory (embedded maps are used for missing files)")
	strict := flag.Bool("strict", false, "treat warnings as errors")
	verbose := flag.Bool("v", false, "log every map checked")
	flag.Parse()

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		logger = l
	}
	defer func() { _ = logger.Sync() }()

	chunkmaps.Dir = *dir
	names, err := chunkmaps.Names()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	var specs []chunkmaps.MapSpec
	failed := false
	for _, name := range names {
		spec, err := chunkmaps.LoadMap(name)
		if err != nil {
			fmt.Println(Finding{Severity: Error, Map: name, Msg: err.Error()})
			failed = true
			continue
		}
		logger.Debug("checking", zap.String("map", spec.Name), zap.Int("chunks", len(spec.Chunks)))
		specs = append(specs, spec)
	}

	for _, f := range check(specs, levels.LoadLevelFromFS) {
		fmt.Println(f)
		if f.Severity == Error || *strict {
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
	logger.Info("chunk maps ok", zap.Int("maps", len(specs)))
}
