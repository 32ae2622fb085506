package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		radius   float64
		expected string
	}{
		{name: "core: near anchor", distance: 2, radius: 25, expected: BandCore},
		{name: "core: at threshold", distance: 5, radius: 25, expected: BandCore},
		{name: "in_radius: past core", distance: 12, radius: 25, expected: BandInner},
		{name: "in_radius: on the edge", distance: 25, radius: 25, expected: BandInner},
		{name: "core threshold capped by small radius", distance: 4, radius: 3, expected: BandFringe},
		{name: "fringe: just outside", distance: 30, radius: 25, expected: BandFringe},
		{name: "fringe: at threshold", distance: 50, radius: 25, expected: BandFringe},
		{name: "outside: far away", distance: 80, radius: 25, expected: BandOutside},
		{name: "zero radius near", distance: 10, radius: 0, expected: BandFringe},
		{name: "zero radius far", distance: 40, radius: 0, expected: BandOutside},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.distance, tt.radius))
		})
	}
}

func TestProximity(t *testing.T) {
	assert.Equal(t, 1.0, Proximity(0, 25))
	assert.InDelta(t, 0.6, Proximity(10, 25), 1e-9)
	assert.Zero(t, Proximity(25, 25))
	assert.Zero(t, Proximity(40, 25))
	assert.Zero(t, Proximity(1, 0))
}
