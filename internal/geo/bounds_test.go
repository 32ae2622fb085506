package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchBounds(t *testing.T) {
	b := SearchBounds(39.7392, -104.9903, 25)

	assert.InDelta(t, 39.7392-25.0/69, b.Min(1), 1e-9)
	assert.InDelta(t, 39.7392+25.0/69, b.Max(1), 1e-9)
	assert.Less(t, b.Min(0), -104.9903-25.0/69, "longitude span widens away from the equator")
	assert.True(t, Contains(b, 39.7392, -104.9903))
	assert.True(t, Contains(b, 40.01499, -105.27055))
	assert.False(t, Contains(b, 38.8339, -104.8214))
}

func TestSearchBounds_ClampsAtPole(t *testing.T) {
	b := SearchBounds(89.9, 0, 100)
	assert.Equal(t, 90.0, b.Max(1))
	assert.Equal(t, -180.0, b.Min(0))
	assert.Equal(t, 180.0, b.Max(0))
}

func TestWithin(t *testing.T) {
	assert.True(t, Within(39.7392, -104.9903, 25, 40.01499, -105.27055))
	assert.False(t, Within(39.7392, -104.9903, 20, 40.01499, -105.27055))
	assert.False(t, Within(39.7392, -104.9903, 25, 34.0522, -118.2437))

	// Bounding-box corner is inside the box but outside the circle.
	b := SearchBounds(39.7392, -104.9903, 25)
	assert.True(t, Contains(b, b.Max(1)-0.001, b.Max(0)-0.001))
	assert.False(t, Within(39.7392, -104.9903, 25, b.Max(1)-0.001, b.Max(0)-0.001))
}
