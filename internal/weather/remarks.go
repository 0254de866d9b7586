package weather

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/vaahk/wxdecode/internal/physics"
)

var (
	// T-group in remarks: T s ttt s ddd, s=0 positive, s=1 negative, tenths of a degree
	reTGroup = regexp.MustCompile(`\bT([01])(\d{3})([01])(\d{3})\b`)
	// body group: 22/10, M03/M05, 00/M01
	reTempGroup = regexp.MustCompile(`(?:^|\s)(M)?(\d{2})/(M)?(\d{2})(?:\s|$)`)
	// body wind: 24012KT, VRB03MPS, 36010G25KMH
	reWindGroup = regexp.MustCompile(`(?:^|\s)(\d{3}|VRB)(\d{2,3})(?:G(\d{2,3}))?(KT|MPS|KMH)(?:\s|$)`)
	// Q1008 in hPa, A2992 in hundredths of inHg
	reAltimeter = regexp.MustCompile(`(?:^|\s)([QA])(\d{4})(?:\s|$)`)
)

// surfaceWind is a wind group normalized to knots. hasDir is false for VRB.
type surfaceWind struct {
	dirDeg  float64
	hasDir  bool
	speedKt float64
	gustKt  float64
}

// PreciseTemperature extracts temperature and dewpoint in Celsius from a raw
// METAR. The RMK T-group is preferred over the whole-degree body group.
func PreciseTemperature(raw string) (temp, dewpoint float64, ok bool) {
	if i := strings.Index(raw, " RMK "); i >= 0 {
		if m := reTGroup.FindStringSubmatch(raw[i:]); m != nil {
			return tenths(m[1], m[2]), tenths(m[3], m[4]), true
		}
	}

	m := reTempGroup.FindStringSubmatch(raw)
	if m == nil {
		return 0, 0, false
	}
	t, _ := strconv.ParseFloat(m[2], 64)
	d, _ := strconv.ParseFloat(m[4], 64)
	if m[1] == "M" {
		t = -t
	}
	if m[3] == "M" {
		d = -d
	}
	return t, d, true
}

func tenths(sign, digits string) float64 {
	v, _ := strconv.ParseFloat(digits, 64)
	v /= 10
	if sign == "1" {
		v = -v
	}
	return v
}

// body returns the part of a raw METAR before its remarks.
func body(raw string) string {
	if i := strings.Index(raw, " RMK "); i >= 0 {
		return raw[:i]
	}
	return raw
}

// parseWind reads the first wind group of a raw METAR and converts MPS and
// KMH speeds to knots.
func parseWind(raw string) (surfaceWind, bool) {
	m := reWindGroup.FindStringSubmatch(body(raw))
	if m == nil {
		return surfaceWind{}, false
	}
	var w surfaceWind
	if m[1] != "VRB" {
		w.dirDeg, _ = strconv.ParseFloat(m[1], 64)
		w.hasDir = true
	}
	speed, _ := strconv.ParseFloat(m[2], 64)
	w.speedKt = physics.ToKnots(speed, m[4])
	if m[3] != "" {
		gust, _ := strconv.ParseFloat(m[3], 64)
		w.gustKt = physics.ToKnots(gust, m[4])
	}
	return w, true
}

// parseAltimeter reads the first Q or A group of a raw METAR as hPa.
func parseAltimeter(raw string) (float64, bool) {
	m := reAltimeter.FindStringSubmatch(body(raw))
	if m == nil {
		return 0, false
	}
	v, _ := strconv.ParseFloat(m[2], 64)
	if m[1] == "A" {
		return physics.InHgToHPa(v / 100), true
	}
	return v, true
}
