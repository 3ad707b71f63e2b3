package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLerp(t *testing.T) {
	assert.Equal(t, 2.0, Lerp(2, 4, 0))
	assert.Equal(t, 4.0, Lerp(2, 4, 1))
	assert.Equal(t, 3.0, Lerp(2, 4, 0.5))
	assert.Equal(t, 1.5, Lerp(2, 1, 0.5))
}

func TestRectContainsExcludesMaxEdges(t *testing.T) {
	r := Rect{X: 200, Y: 200, W: 100, H: 50}
	assert.True(t, r.Contains(Vec2{X: 200, Y: 200}))
	assert.True(t, r.Contains(Vec2{X: 299, Y: 249}))
	assert.False(t, r.Contains(Vec2{X: 300, Y: 220}))
	assert.False(t, r.Contains(Vec2{X: 250, Y: 250}))
}
