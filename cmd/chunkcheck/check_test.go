package main

import (
	"testing"

	"github.com/milk9111/onelevel/chunkmaps"
	"github.com/milk9111/onelevel/levels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundledMapsPass(t *testing.T) {
	chunkmaps.Dir = t.TempDir()
	names, err := chunkmaps.Names()
	require.NoError(t, err)

	var specs []chunkmaps.MapSpec
	for _, name := range names {
		spec, err := chunkmaps.LoadMap(name)
		require.NoError(t, err)
		specs = append(specs, spec)
	}
	assert.Empty(t, check(specs, levels.LoadLevelFromFS))
}

func TestCheckFindings(t *testing.T) {
	specs := []chunkmaps.MapSpec{
		{Name: "crossroads", Chunks: []chunkmaps.ChunkSpec{
			{Scene: "crossroads_01"},
			{Scene: "crossroads_02", Offset: chunkmaps.OffsetSpec{X: 320}},
			{Scene: "void"},
		}},
		{Name: "copy", Chunks: []chunkmaps.ChunkSpec{{Scene: "crossroads_01"}}},
		{Name: "empty"},
	}

	findings := check(specs, levels.LoadLevelFromFS)
	var msgs []string
	for _, f := range findings {
		msgs = append(msgs, f.String())
	}
	assert.Contains(t, msgs, "error: crossroads/void: level: read level: open void.json: file does not exist")
	assert.Contains(t, msgs, "error: copy/crossroads_01: scene already placed by map crossroads")
	assert.Contains(t, msgs, "warning: crossroads/crossroads_01: overlaps crossroads_02")
	assert.Contains(t, msgs, "warning: empty: map has no chunks")
	assert.Equal(t, Error, findings[0].Severity)
}
