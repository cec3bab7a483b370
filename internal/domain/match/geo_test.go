package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKM(t *testing.T) {
	// Vancouver to Seattle, roughly 193 km.
	d := HaversineKM(49.2827, -123.1207, 47.6062, -122.3321)
	assert.InDelta(t, 193, d, 5)

	assert.Zero(t, HaversineKM(10, 20, 10, 20))

	// Symmetric.
	assert.InDelta(t,
		HaversineKM(10, 20, 30, 40),
		HaversineKM(30, 40, 10, 20), 1e-9)
}

func TestGeoDecay(t *testing.T) {
	assert.Equal(t, 1.0, geoDecay(0, 480))
	assert.Greater(t, geoDecay(100, 480), geoDecay(500, 480))
	assert.Greater(t, geoDecay(5000, 480), 0.0)
	assert.Less(t, geoDecay(5000, 480), 0.001)
}
