package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCameraZoomEasesTowardTarget(t *testing.T) {
	c := NewCamera(1280, 720, 1)

	c.ZoomBy(1, 1)
	assert.Equal(t, 1.0, c.Zoom(), "wheel input only moves the target")

	c.Update()
	assert.InDelta(t, 1.15, c.Zoom(), 1e-9)

	for i := 0; i < 200; i++ {
		c.Update()
	}
	assert.Equal(t, 2.0, c.Zoom())

	c.ZoomBy(10, 1)
	for i := 0; i < 200; i++ {
		c.Update()
	}
	assert.Equal(t, float64(maxZoom), c.Zoom())

	c.SetZoom(0.5)
	c.Update()
	assert.Equal(t, 0.5, c.Zoom())
}
