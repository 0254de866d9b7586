package weather

import (
	"time"

	"github.com/vaahk/wxdecode/internal/physics"
)

// ComputeConditions derives station values from the latest METAR. It returns
// nil when there is no observation to work from.
func ComputeConditions(station Station, m *METARResponse, now time.Time) *Conditions {
	if m == nil {
		return nil
	}

	lat, lon, elev := station.Latitude, station.Longitude, station.ElevationFt
	if lat == 0 && lon == 0 {
		lat, lon = m.Lat, m.Lon
	}
	if elev == 0 && m.Elev != 0 {
		elev = m.Elev / physics.FeetToM
	}

	c := &Conditions{PressureAltitudeFt: elev}
	if m.Altim != nil {
		c.PressureAltitudeFt = physics.PressureAltitude(elev, *m.Altim)
	} else if qnh, ok := parseAltimeter(m.RawOb); ok {
		c.PressureAltitudeFt = physics.PressureAltitude(elev, qnh)
	}

	temp, dew, ok := PreciseTemperature(m.RawOb)
	hasDew := ok
	if !ok && m.Temp != nil {
		temp, ok = *m.Temp, true
		if m.Dewp != nil {
			dew, hasDew = *m.Dewp, true
		}
	}
	if ok {
		c.TemperatureC = temp
		c.DensityAltitudeFt = physics.CalculateDensityAltitude(c.PressureAltitudeFt, temp)
		if hasDew {
			c.RelativeHumidity = physics.RelativeHumidity(temp, dew)
		}
	} else {
		c.DensityAltitudeFt = c.PressureAltitudeFt
	}

	if decl, err := physics.CalculateMagneticVariation(lat, lon, elev, now); err == nil {
		c.MagneticVariation = decl
	}

	wind, hasWind := jsonWind(m)
	if !hasWind {
		wind, hasWind = parseWind(m.RawOb)
	}
	if hasWind {
		c.WindSpeedKt = wind.speedKt
		c.GustKt = wind.gustKt
	}
	if hasWind && wind.hasDir && c.WindSpeedKt > 0 {
		dir := wind.dirDeg
		magnetic := physics.TrueToMagnetic(dir, c.MagneticVariation)
		c.WindTrueDeg = &dir
		c.WindMagneticDeg = &magnetic
		for _, rwy := range station.Runways {
			head, cross := physics.WindComponents(magnetic, c.WindSpeedKt, rwy.Heading)
			c.Runways = append(c.Runways, RunwayWind{
				Runway:    rwy.Name,
				Heading:   rwy.Heading,
				Headwind:  head,
				Crosswind: cross,
			})
		}
	}

	c.Daylight = physics.CalculateDaylight(now, lat, lon)
	return c
}

// jsonWind reads the AWC wind fields, which are always in knots.
func jsonWind(m *METARResponse) (surfaceWind, bool) {
	if m.Wspd == nil {
		return surfaceWind{}, false
	}
	w := surfaceWind{speedKt: *m.Wspd}
	if m.Wgst != nil {
		w.gustKt = *m.Wgst
	}
	w.dirDeg, w.hasDir = m.Wdir.Float()
	return w, true
}
