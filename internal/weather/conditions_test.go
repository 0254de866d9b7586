package weather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreciseTemperature(t *testing.T) {
	temp, dew, ok := PreciseTemperature("METAR KJFK 092251Z 22010KT 10SM FEW250 06/M05 A3012 RMK AO2 T00561050")
	require.True(t, ok)
	assert.InDelta(t, 5.6, temp, 0.001)
	assert.InDelta(t, -5.0, dew, 0.001)

	temp, dew, ok = PreciseTemperature(testMETARRaw)
	require.True(t, ok)
	assert.InDelta(t, 28, temp, 0.001)
	assert.InDelta(t, 24, dew, 0.001)

	temp, dew, ok = PreciseTemperature("METAR ZBAA 010000Z 36004MPS CAVOK M03/M12 Q1030")
	require.True(t, ok)
	assert.InDelta(t, -3, temp, 0.001)
	assert.InDelta(t, -12, dew, 0.001)

	_, _, ok = PreciseTemperature("TAF VHHH 210500Z 2106/2212 24010KT")
	assert.False(t, ok)
}

func TestComputeConditions(t *testing.T) {
	now := time.Date(2024, 6, 21, 8, 0, 0, 0, time.UTC) // 16:00 local
	c := ComputeConditions(testStation(), loadMETAR(t), now)
	require.NotNil(t, c)

	// QNH 1008 is 5.25 hPa below standard
	assert.InDelta(t, 28+5.25*27, c.PressureAltitudeFt, 0.01)
	assert.Greater(t, c.DensityAltitudeFt, c.PressureAltitudeFt)
	assert.InDelta(t, 28, c.TemperatureC, 0.001)
	assert.InDelta(t, 12, c.WindSpeedKt, 0.001)
	require.NotNil(t, c.WindTrueDeg)
	require.NotNil(t, c.WindMagneticDeg)
	assert.InDelta(t, 240, *c.WindTrueDeg, 0.001)
	assert.InDelta(t, 240-c.MagneticVariation, *c.WindMagneticDeg, 0.001)

	require.Len(t, c.Runways, 2)
	assert.Equal(t, "07L", c.Runways[0].Runway)
	assert.Less(t, c.Runways[0].Headwind, 0.0, "wind from the west is a tailwind on 07")
	assert.Greater(t, c.Runways[1].Headwind, 0.0)
	assert.True(t, c.Daylight.IsDay)
}

func TestComputeConditionsNil(t *testing.T) {
	assert.Nil(t, ComputeConditions(testStation(), nil, time.Now()))
}

func TestComputeConditionsFromRawGroups(t *testing.T) {
	now := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)
	m := &METARResponse{
		ICAOID: "ZBAA",
		RawOb:  "METAR ZBAA 010600Z 07010G15MPS CAVOK M03/M12 A3012 RMK Q1020",
	}
	c := ComputeConditions(testStation(), m, now)
	require.NotNil(t, c)

	// 10 m/s gusting 15 m/s
	assert.InDelta(t, 19.44, c.WindSpeedKt, 0.01)
	assert.InDelta(t, 29.16, c.GustKt, 0.01)
	require.NotNil(t, c.WindTrueDeg)
	assert.InDelta(t, 70, *c.WindTrueDeg, 0.001)
	require.Len(t, c.Runways, 2)
	assert.Greater(t, c.Runways[0].Headwind, 0.0)

	// A3012 is 1019.9 hPa; the Q group in remarks is ignored
	assert.InDelta(t, 28+(1013.25-30.12*33.8639)*27, c.PressureAltitudeFt, 0.01)
	assert.InDelta(t, -3, c.TemperatureC, 0.001)
}

func TestComputeConditionsVariableWind(t *testing.T) {
	m := &METARResponse{ICAOID: "VHHH", RawOb: "METAR VHHH 010600Z VRB03KT 9999 FEW020 25/20 Q1012"}
	c := ComputeConditions(testStation(), m, time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC))
	require.NotNil(t, c)

	assert.InDelta(t, 3, c.WindSpeedKt, 0.001)
	assert.Nil(t, c.WindTrueDeg)
	assert.Empty(t, c.Runways)
	assert.InDelta(t, 28+1.25*27, c.PressureAltitudeFt, 0.01)
}
