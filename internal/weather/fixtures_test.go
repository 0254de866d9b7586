package weather

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testMETARRaw = "METAR VHHH 210800Z 24012KT 9999 -SHRA FEW015 SCT030 28/24 Q1008 NOSIG"
	testTAFRaw   = "TAF VHHH 210500Z 2106/2212 24010KT 9999 FEW020 TX32/2106Z TN26/2122Z TEMPO 2112/2118 4000 SHRA"

	testMETARJSON = `[{"icaoId":"VHHH","obsTime":1718956800,"temp":28,"dewp":24,"wdir":240,"wspd":12,"wgst":null,
"visib":"10+","altim":1008,"wxString":"-SHRA","rawOb":"` + testMETARRaw + `","lat":22.309,"lon":113.915,"elev":9,
"clouds":[{"cover":"FEW","base":1500},{"cover":"SCT","base":3000}],"fltCat":"VFR"}]`

	testTAFJSON = `[{"icaoId":"VHHH","issueTime":"2024-06-21T05:00:00Z","validTimeFrom":1718949600,"validTimeTo":1719057600,
"rawTAF":"` + testTAFRaw + `","fcsts":[
{"timeFrom":1718949600,"timeTo":1718971200,"wdir":240,"wspd":10,"visib":"6+","clouds":[{"cover":"FEW","base":2000}],
 "temp":[{"validTime":1718949600,"sfcTemp":32,"maxOrMin":"MAX"}]},
{"timeFrom":1718971200,"timeTo":1718992800,"fcstChange":"TEMPO","probability":30,"wdir":"VRB","wspd":5,"wgst":15,
 "visib":4000,"wxString":"SHRA","wshearHgt":2000,"wshearDir":240,"wshearSpd":45,
 "icgTurb":[{"var":"TURB","intensity":2,"minAlt":3000,"maxAlt":8000}]}]}]`
)

// fakeAWC serves the two JSON endpoints and the raw text endpoint.
type fakeAWC struct {
	*httptest.Server
	metar, taf       string
	rawMETAR, rawTAF string
	status           atomic.Int32
	hits             atomic.Int32
}

func newFakeAWC(t *testing.T, opts ...func(*fakeAWC)) *fakeAWC {
	t.Helper()
	f := &fakeAWC{metar: testMETARJSON, taf: testTAFJSON, rawMETAR: testMETARRaw, rawTAF: testTAFRaw}
	f.status.Store(http.StatusOK)
	for _, opt := range opts {
		opt(f)
	}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		if code := int(f.status.Load()); code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		raw := r.URL.Query().Get("format") == "raw"
		switch r.URL.Path {
		case "/metar":
			if raw {
				_, _ = w.Write([]byte(f.rawMETAR))
				return
			}
			_, _ = w.Write([]byte(f.metar))
		case "/taf":
			if raw {
				_, _ = w.Write([]byte(f.rawTAF))
				return
			}
			_, _ = w.Write([]byte(f.taf))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.Close)
	return f
}

func testConfig(baseURL string) WeatherConfig {
	cfg := DefaultWeatherConfig()
	cfg.APIBaseURL = baseURL
	cfg.MaxRetries = 1
	return cfg
}

func testStation() Station {
	return Station{
		ICAO:        "VHHH",
		Name:        "香港国际机场",
		Latitude:    22.308,
		Longitude:   113.918,
		ElevationFt: 28,
		Runways:     []Runway{{Name: "07L", Heading: 73}, {Name: "25R", Heading: 253}},
	}
}

func requireReport(t *testing.T, data *WeatherData, kind string) *Report {
	t.Helper()
	require.NotNil(t, data)
	for k, r := range data.Reports {
		if string(k) == kind {
			return r
		}
	}
	t.Fatalf("no %s report in cache", kind)
	return nil
}
