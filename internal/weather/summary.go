package weather

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vaahk/wxdecode/internal/decoder"
)

const displayTimeLayout = "2006-01-02 15:04 UTC"

// Summary holds the Chinese rendering of the AWC JSON for each kind
type Summary struct {
	METAR *METARSummary `json:"metar,omitempty"`
	TAF   *TAFSummary   `json:"taf,omitempty"`
}

// METARSummary is a display-ready observation
type METARSummary struct {
	Station         string `json:"station"`
	ObservationTime string `json:"observation_time"`
	Wind            string `json:"wind,omitempty"`
	Visibility      string `json:"visibility,omitempty"`
	Weather         string `json:"weather,omitempty"`
	Clouds          string `json:"clouds,omitempty"`
	Temperature     string `json:"temperature,omitempty"`
	Pressure        string `json:"pressure,omitempty"`
	FlightCategory  string `json:"flight_category,omitempty"`
	Raw             string `json:"raw"`
}

// TAFSummary is a display-ready forecast
type TAFSummary struct {
	Station     string            `json:"station"`
	IssueTime   string            `json:"issue_time"`
	ValidPeriod string            `json:"valid_period,omitempty"`
	Forecasts   []ForecastSummary `json:"forecasts"`
	Raw         string            `json:"raw"`
}

// ForecastSummary is one translated change group
type ForecastSummary struct {
	TimeFrom        string `json:"time_from,omitempty"`
	TimeTo          string `json:"time_to,omitempty"`
	ChangeType      string `json:"change_type,omitempty"`
	Probability     string `json:"probability,omitempty"`
	Wind            string `json:"wind,omitempty"`
	WindShear       string `json:"wind_shear,omitempty"`
	Visibility      string `json:"visibility,omitempty"`
	Weather         string `json:"weather,omitempty"`
	Clouds          string `json:"clouds,omitempty"`
	Temperature     string `json:"temperature,omitempty"`
	IcingTurbulence string `json:"icing_turbulence,omitempty"`
}

func formatUnix(sec int64) string {
	if sec == 0 {
		return ""
	}
	return time.Unix(sec, 0).UTC().Format(displayTimeLayout)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WindText renders direction, speed and gust the way the summary rows show them.
func WindText(wdir FlexString, wspd, wgst *float64) string {
	if wdir == "" && wspd == nil {
		return ""
	}
	if dir, ok := wdir.Float(); ok && dir == 0 && wspd != nil && *wspd == 0 {
		return "静风"
	}

	var parts []string
	switch {
	case strings.EqualFold(string(wdir), "VRB"):
		parts = append(parts, "风向多变")
	case wdir != "":
		parts = append(parts, fmt.Sprintf("风向 %s°", wdir))
	}
	if wspd != nil && *wspd > 0 {
		parts = append(parts, fmt.Sprintf("风速 %s节", formatNumber(*wspd)))
	}
	if wgst != nil && *wgst > 0 {
		parts = append(parts, fmt.Sprintf("阵风 %s节", formatNumber(*wgst)))
	}
	return strings.Join(parts, " ")
}

// VisibilityText renders the AWC visib field. Values above 15 are metres,
// shown in kilometres from 1000 up; 15 and below are statute miles.
func VisibilityText(visib FlexString) string {
	s := strings.ToUpper(strings.TrimSpace(string(visib)))
	switch s {
	case "":
		return ""
	case "CAVOK":
		return "云和能见度良好 (>10公里)"
	case "P6SM", "6+":
		return "能见度大于或等于6英里 (>10公里)"
	}

	v, ok := visib.Float()
	if !ok {
		return string(visib)
	}
	switch {
	case strings.HasSuffix(s, "+"):
		return fmt.Sprintf("能见度大于或等于%s英里", formatNumber(v))
	case v >= 9999:
		return "能见度10公里以上"
	case v >= 1000:
		return fmt.Sprintf("能见度 %.1f公里", v/1000)
	case v > 15:
		return fmt.Sprintf("能见度 %s米", formatNumber(v))
	}
	return fmt.Sprintf("能见度 %s英里", formatNumber(v))
}

// CloudText renders one AWC layer, e.g. 裂云 2000英尺 (积雨云).
func CloudText(c Cloud) string {
	out := decoder.CloudCoverName(c.Cover)
	if c.Base != nil {
		out += fmt.Sprintf(" %d英尺", *c.Base)
	}
	if c.Type != "" {
		if name, ok := decoder.CloudTypes[strings.ToUpper(c.Type)]; ok {
			out += fmt.Sprintf(" (%s)", name)
		}
	}
	return out
}

func cloudsText(clouds []Cloud) string {
	parts := make([]string, 0, len(clouds))
	for _, c := range clouds {
		parts = append(parts, CloudText(c))
	}
	return strings.Join(parts, ", ")
}

// IntensityText falls back to 等级N outside 0-6.
func IntensityText(level int) string {
	if name, ok := decoder.IntensityLevels[level]; ok {
		return name
	}
	return fmt.Sprintf("等级%d", level)
}

// SummarizeMETAR translates an AWC observation.
func SummarizeMETAR(m *METARResponse) *METARSummary {
	if m == nil {
		return nil
	}
	s := &METARSummary{
		Station:         m.ICAOID,
		ObservationTime: formatUnix(m.ObsTime),
		Wind:            WindText(m.Wdir, m.Wspd, m.Wgst),
		Visibility:      VisibilityText(m.Visib),
		Weather:         decoder.TranslateWeatherString(m.WxString),
		Clouds:          cloudsText(m.Clouds),
		Raw:             m.RawOb,
	}
	if m.Temp != nil {
		s.Temperature = fmt.Sprintf("%s°C", formatNumber(*m.Temp))
		if m.Dewp != nil {
			s.Temperature += fmt.Sprintf(" / 露点 %s°C", formatNumber(*m.Dewp))
		}
	}
	if m.Altim != nil {
		s.Pressure = fmt.Sprintf("%.0f hPa", *m.Altim)
	}
	if m.FltCat != "" {
		s.FlightCategory = decoder.FlightCategory(m.FltCat)
	}
	return s
}

// SummarizeTAF translates an AWC forecast and each of its change groups.
func SummarizeTAF(t *TAFResponse) *TAFSummary {
	if t == nil {
		return nil
	}
	s := &TAFSummary{
		Station:   t.ICAOID,
		IssueTime: t.IssueTime,
		Forecasts: make([]ForecastSummary, 0, len(t.Fcsts)),
		Raw:       t.RawTAF,
	}
	if issued, err := time.Parse(time.RFC3339, t.IssueTime); err == nil {
		s.IssueTime = issued.UTC().Format(displayTimeLayout)
	}
	if t.ValidTimeFrom != 0 && t.ValidTimeTo != 0 {
		s.ValidPeriod = fmt.Sprintf("%s 至 %s", formatUnix(t.ValidTimeFrom), formatUnix(t.ValidTimeTo))
	}
	for _, f := range t.Fcsts {
		s.Forecasts = append(s.Forecasts, summarizeForecast(f))
	}
	return s
}

func summarizeForecast(f Forecast) ForecastSummary {
	out := ForecastSummary{
		TimeFrom:   formatUnix(f.TimeFrom),
		TimeTo:     formatUnix(f.TimeTo),
		Wind:       WindText(f.Wdir, f.Wspd, f.Wgst),
		Visibility: VisibilityText(f.Visib),
		Weather:    decoder.TranslateWeatherString(f.WxString),
		Clouds:     cloudsText(f.Clouds),
	}
	if f.FcstChange != "" {
		out.ChangeType = decoder.ChangeType(f.FcstChange)
	}
	if f.Probability != nil && *f.Probability > 0 {
		out.Probability = fmt.Sprintf("%d%%概率", *f.Probability)
	}
	if f.WshearHgt != nil && f.WshearDir != nil && f.WshearSpd != nil {
		out.WindShear = fmt.Sprintf("%d英尺高度风切变：风向%d° 风速%d节", *f.WshearHgt, *f.WshearDir, *f.WshearSpd)
	}

	temps := make([]string, 0, len(f.Temp))
	for _, t := range f.Temp {
		label := "最低"
		if strings.EqualFold(t.MaxOrMin, "MAX") {
			label = "最高"
		}
		temps = append(temps, fmt.Sprintf("%s温度 %s°C (%s)", label, formatNumber(t.SfcTemp), formatUnix(t.ValidTime)))
	}
	out.Temperature = strings.Join(temps, ", ")

	layers := make([]string, 0, len(f.IcgTurb))
	for _, it := range f.IcgTurb {
		what := "颠簸"
		if strings.EqualFold(it.Var, "ICG") {
			what = "积冰"
		}
		layers = append(layers, fmt.Sprintf("%d-%d英尺 %s%s", it.MinAlt, it.MaxAlt, IntensityText(it.Intensity), what))
	}
	out.IcingTurbulence = strings.Join(layers, ", ")
	return out
}
