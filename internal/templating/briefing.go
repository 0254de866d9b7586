package templating

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/vaahk/wxdecode/internal/decoder"
	"github.com/vaahk/wxdecode/internal/weather"
)

// Briefing is the data a briefing template sees.
type Briefing struct {
	Station     weather.Station
	GeneratedAt time.Time
	METAR       *weather.Report
	TAF         *weather.Report
	Summary     weather.Summary
	Conditions  *weather.Conditions
	Errors      []string
}

// NewBriefing collects what the template needs from a cache snapshot.
// data may be nil.
func NewBriefing(station weather.Station, data *weather.WeatherData, now time.Time) Briefing {
	b := Briefing{Station: station, GeneratedAt: now.UTC()}
	if data == nil {
		return b
	}
	b.METAR = data.Reports[decoder.KindMETAR]
	b.TAF = data.Reports[decoder.KindTAF]
	b.Summary = data.Summary
	b.Conditions = data.Conditions
	b.Errors = data.FetchErrors
	return b
}

var funcMap = template.FuncMap{
	"rows": func(r *weather.Report) []string {
		if r == nil {
			return nil
		}
		return decoder.Render(r.Decoded)
	},
	"utc": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.UTC().Format("2006-01-02 15:04 UTC")
	},
	"deg": func(v float64) string {
		return fmt.Sprintf("%03.0f°", v)
	},
	"kt": func(v float64) string {
		return fmt.Sprintf("%.0f节", v)
	},
	"ft": func(v float64) string {
		return fmt.Sprintf("%.0f英尺", v)
	},
	"signed": func(v float64) string {
		return fmt.Sprintf("%+.1f", v)
	},
	"crosswind": func(v float64) string {
		switch {
		case v > 0:
			return fmt.Sprintf("右侧风 %.0f节", v)
		case v < 0:
			return fmt.Sprintf("左侧风 %.0f节", -v)
		}
		return "无侧风"
	},
	"deref": func(p *float64) float64 {
		if p == nil {
			return 0
		}
		return *p
	},
	"join": strings.Join,
}
