package templating

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaahk/wxdecode/internal/decoder"
	"github.com/vaahk/wxdecode/internal/physics"
	"github.com/vaahk/wxdecode/internal/weather"
	"github.com/vaahk/wxdecode/pkg/logger"
)

const (
	metarRaw = "METAR VHHH 170830Z 24015G28KT 9999 FEW020 28/22 Q1008 NOSIG"
	tafRaw   = "TAF VHHH 170500Z 1706/1812 24012KT 9999 FEW020 TEMPO 1709/1713 SHRA"
)

var vhhh = weather.Station{ICAO: "VHHH", Name: "香港国际机场", Latitude: 22.308, Longitude: 113.918, ElevationFt: 28}

func fixture() *weather.WeatherData {
	d := decoder.New(nil)
	magWind := 243.0
	return &weather.WeatherData{
		Station: "VHHH",
		Reports: map[decoder.Kind]*weather.Report{
			decoder.KindMETAR: {Station: "VHHH", Kind: decoder.KindMETAR, Raw: metarRaw, Decoded: d.Decode(decoder.KindMETAR, metarRaw)},
			decoder.KindTAF:   {Station: "VHHH", Kind: decoder.KindTAF, Raw: tafRaw, Decoded: d.Decode(decoder.KindTAF, tafRaw)},
		},
		Summary: weather.Summary{METAR: &weather.METARSummary{Station: "VHHH", FlightCategory: "目视飞行规则", Raw: metarRaw}},
		Conditions: &weather.Conditions{
			PressureAltitudeFt: 163,
			DensityAltitudeFt:  2100,
			MagneticVariation:  -3.1,
			WindMagneticDeg:    &magWind,
			WindSpeedKt:        15,
			Runways: []weather.RunwayWind{
				{Runway: "07L", Heading: 73, Headwind: -14.9, Crosswind: -1.6},
				{Runway: "25R", Heading: 253, Headwind: 14.9, Crosswind: 1.6},
			},
			Daylight: physics.Daylight{IsDay: true},
		},
		FetchErrors: []string{"TAF: upstream timeout"},
	}
}

func TestRenderBuiltinBriefing(t *testing.T) {
	e := NewEngine(false, logger.NewNop())
	now := time.Date(2026, 10, 17, 8, 35, 0, 0, time.UTC)

	out, err := e.Render("", NewBriefing(vhhh, fixture(), now))
	require.NoError(t, err)

	assert.Contains(t, out, "香港国际机场 (VHHH) 天气简报")
	assert.Contains(t, out, "生成时间: 2026-10-17 08:35 UTC")
	assert.Contains(t, out, "== METAR ==\n"+metarRaw)
	assert.Contains(t, out, "风向 240°, 风速 15节, 阵风 28节")
	assert.Contains(t, out, "飞行规则: 目视飞行规则")
	assert.Contains(t, out, "磁风向: 243° 15节")
	assert.Contains(t, out, "跑道 07L: 顶风 -15节, 左侧风 2节")
	assert.Contains(t, out, "跑道 25R: 顶风 15节, 右侧风 2节")
	assert.Contains(t, out, "白天")
	assert.Contains(t, out, "== TAF ==\n"+tafRaw)
	assert.Contains(t, out, "注意: TAF: upstream timeout")
}

func TestRenderEmptyBriefing(t *testing.T) {
	e := NewEngine(false, logger.NewNop())

	out, err := e.Render(DefaultTemplate, NewBriefing(vhhh, nil, time.Time{}))
	require.NoError(t, err)
	assert.Contains(t, out, "(VHHH) 天气简报")
	assert.Contains(t, out, "生成时间: -")
	assert.NotContains(t, out, "METAR")
	assert.NotContains(t, out, "机场条件")
}

func TestRenderFileTemplateReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("{{.Station.ICAO}} v1"), 0o644))

	cached := NewEngine(false, logger.NewNop())
	reloading := NewEngine(true, logger.NewNop())
	b := NewBriefing(vhhh, nil, time.Now())

	for _, e := range []*Engine{cached, reloading} {
		out, err := e.Render(path, b)
		require.NoError(t, err)
		assert.Equal(t, "VHHH v1", out)
	}

	require.NoError(t, os.WriteFile(path, []byte("{{.Station.ICAO}} v2"), 0o644))

	out, err := cached.Render(path, b)
	require.NoError(t, err)
	assert.Equal(t, "VHHH v1", out)

	out, err = reloading.Render(path, b)
	require.NoError(t, err)
	assert.Equal(t, "VHHH v2", out)

	cached.ClearCache()
	out, err = cached.Render(path, b)
	require.NoError(t, err)
	assert.Equal(t, "VHHH v2", out)
}

func TestRenderErrors(t *testing.T) {
	e := NewEngine(false, logger.NewNop())

	_, err := e.Render(filepath.Join(t.TempDir(), "missing.tmpl"), Briefing{})
	assert.ErrorContains(t, err, "failed to read template file")

	bad := filepath.Join(t.TempDir(), "bad.tmpl")
	require.NoError(t, os.WriteFile(bad, []byte("{{.Station"), 0o644))
	_, err = e.Render(bad, Briefing{})
	assert.ErrorContains(t, err, "failed to parse template file")
}

func TestCrosswindWording(t *testing.T) {
	cw := funcMap["crosswind"].(func(float64) string)
	assert.Equal(t, "右侧风 5节", cw(5))
	assert.Equal(t, "左侧风 7节", cw(-7))
	assert.Equal(t, "无侧风", cw(0))
}
