package physics

import (
	"fmt"
	"math"
	"time"

	"github.com/sixdouglas/suncalc"
	"github.com/westphae/geomag/pkg/egm96"
	"github.com/westphae/geomag/pkg/wmm"
)

// Constants
const (
	T0          = 288.15  // Standard Sea Level Temperature (K)
	P0          = 1013.25 // Standard Sea Level Pressure (hPa)
	L           = 0.0065  // Temperature Lapse Rate (K/m) in Troposphere
	ZeroCelsius = 273.15  // 0°C in Kelvin
	FeetToM     = 0.3048
	MpsToKnots  = 1.94384 // Conversion factor from m/s to Knots
	KmhToKnots  = 0.539957

	// ISA Layer Boundaries
	TropopauseAltFt   = 36089.2 // ~36,089 ft
	StratosphereTempK = 216.65  // Constant temperature in Stratosphere

	// feet of pressure altitude per hPa near sea level
	feetPerHPa = 27.0
)

// ISATemperature returns the standard atmosphere temperature in Celsius at a
// pressure altitude in feet.
func ISATemperature(pressureAltFt float64) float64 {
	if pressureAltFt > TropopauseAltFt {
		return StratosphereTempK - ZeroCelsius
	}
	return T0 - L*pressureAltFt*FeetToM - ZeroCelsius
}

// PressureAltitude returns pressure altitude in feet for a field elevation
// and a QNH setting in hPa.
func PressureAltitude(elevationFt, qnhHPa float64) float64 {
	return elevationFt + (P0-qnhHPa)*feetPerHPa
}

// CalculateDensityAltitude returns density altitude in feet
func CalculateDensityAltitude(pressureAltFt float64, tempCelsius float64) float64 {
	// DA = PA + 120 * (OAT - ISA_Temp)
	return pressureAltFt + 120*(tempCelsius-ISATemperature(pressureAltFt))
}

// InHgToHPa converts an altimeter setting in inches of mercury to hPa.
func InHgToHPa(inHg float64) float64 {
	return inHg * 33.8639
}

// RelativeHumidity returns percent humidity from temperature and dewpoint
// using the Magnus approximation.
func RelativeHumidity(tempC, dewpointC float64) float64 {
	const a, b = 17.625, 243.04
	rh := 100 * math.Exp(a*dewpointC/(b+dewpointC)) / math.Exp(a*tempC/(b+tempC))
	return math.Min(100, math.Max(0, rh))
}

// ------------------------------------------------------------------------------------------------
// WIND
// ------------------------------------------------------------------------------------------------

// NormalizeHeading folds any angle into [0, 360).
func NormalizeHeading(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// WindComponents splits a wind (direction it blows from, speed) into the
// headwind and crosswind seen on a runway heading. Both headings must use
// the same reference. Negative headwind is a tailwind; positive crosswind
// comes from the right.
func WindComponents(windFromDeg, speed, runwayHeadingDeg float64) (headwind, crosswind float64) {
	angle := (windFromDeg - runwayHeadingDeg) * math.Pi / 180
	return speed * math.Cos(angle), speed * math.Sin(angle)
}

// ToKnots converts a wind speed reported in KT, MPS or KMH.
func ToKnots(speed float64, unit string) float64 {
	switch unit {
	case "MPS":
		return speed * MpsToKnots
	case "KMH":
		return speed * KmhToKnots
	}
	return speed
}

// ------------------------------------------------------------------------------------------------
// MAGNETIC VARIATION
// ------------------------------------------------------------------------------------------------

// CalculateMagneticVariation calculates the magnetic declination for a given position and time
// Returns declination in degrees (+East, -West)
func CalculateMagneticVariation(lat, lon, altFt float64, date time.Time) (float64, error) {
	loc := egm96.NewLocationGeodetic(lat, lon, altFt*FeetToM)

	mag, err := wmm.CalculateWMMMagneticField(loc, date)
	if err != nil {
		return 0, fmt.Errorf("magnetic field at %.4f,%.4f: %w", lat, lon, err)
	}
	return mag.D(), nil
}

// TrueToMagnetic applies an east-positive declination to a true heading.
func TrueToMagnetic(trueDeg, declination float64) float64 {
	return NormalizeHeading(trueDeg - declination)
}

// ------------------------------------------------------------------------------------------------
// SUN
// ------------------------------------------------------------------------------------------------

// Daylight describes the sun at the station for one instant.
type Daylight struct {
	IsDay       bool      `json:"is_day"`
	Sunrise     time.Time `json:"sunrise"`
	Sunset      time.Time `json:"sunset"`
	AltitudeDeg float64   `json:"sun_altitude_deg"`
}

// CalculateDaylight reports whether the sun is up at lat/lon at t.
func CalculateDaylight(t time.Time, lat, lon float64) Daylight {
	times := suncalc.GetTimes(t, lat, lon)
	pos := suncalc.GetPosition(t, lat, lon)

	d := Daylight{
		Sunrise:     times["sunrise"].Value.UTC(),
		Sunset:      times["sunset"].Value.UTC(),
		AltitudeDeg: pos.Altitude * 180 / math.Pi,
	}
	d.IsDay = d.AltitudeDeg > 0
	return d
}
