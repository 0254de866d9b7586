package physics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPressureAltitude(t *testing.T) {
	assert.InDelta(t, 0, PressureAltitude(0, 1013.25), 0.001)
	assert.InDelta(t, 270, PressureAltitude(0, 1003.25), 0.001)
	assert.InDelta(t, 28-270, PressureAltitude(28, 1023.25), 0.001)
}

func TestDensityAltitude(t *testing.T) {
	// ISA sea level is 15°C
	assert.InDelta(t, 0, CalculateDensityAltitude(0, 15), 0.01)
	assert.InDelta(t, 1800, CalculateDensityAltitude(0, 30), 0.01)
	assert.Less(t, CalculateDensityAltitude(0, -5), 0.0)
}

func TestWindComponents(t *testing.T) {
	head, cross := WindComponents(250, 20, 250)
	assert.InDelta(t, 20, head, 0.001)
	assert.InDelta(t, 0, cross, 0.001)

	head, cross = WindComponents(340, 10, 250)
	assert.InDelta(t, 0, head, 0.001)
	assert.InDelta(t, 10, cross, 0.001)

	head, _ = WindComponents(70, 10, 250)
	assert.InDelta(t, -10, head, 0.001)
}

func TestNormalizeAndConvert(t *testing.T) {
	assert.InDelta(t, 350, NormalizeHeading(-10), 0.001)
	assert.InDelta(t, 10, NormalizeHeading(370), 0.001)
	assert.InDelta(t, 5, TrueToMagnetic(3, -2), 0.001)
	assert.InDelta(t, 19.4384, ToKnots(10, "MPS"), 0.001)
	assert.InDelta(t, 10, ToKnots(10, "KT"), 0.001)
	assert.InDelta(t, 5.3996, ToKnots(10, "KMH"), 0.001)
	assert.InDelta(t, 1013.2, InHgToHPa(29.92), 0.1)
}

func TestRelativeHumidity(t *testing.T) {
	assert.InDelta(t, 100, RelativeHumidity(20, 20), 0.001)
	rh := RelativeHumidity(28, 24)
	assert.Greater(t, rh, 70.0)
	assert.Less(t, rh, 85.0)
}

func TestMagneticVariationHongKong(t *testing.T) {
	d, err := CalculateMagneticVariation(22.308, 113.918, 28, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	// roughly 3° west around Chek Lap Kok
	assert.InDelta(t, -3, d, 2)
}

func TestDaylight(t *testing.T) {
	noon := time.Date(2025, 6, 21, 4, 30, 0, 0, time.UTC) // 12:30 local
	d := CalculateDaylight(noon, 22.308, 113.918)
	assert.True(t, d.IsDay)
	assert.True(t, d.Sunrise.Before(noon))
	assert.True(t, d.Sunset.After(noon))

	midnight := time.Date(2025, 6, 21, 16, 0, 0, 0, time.UTC)
	assert.False(t, CalculateDaylight(midnight, 22.308, 113.918).IsDay)
}
