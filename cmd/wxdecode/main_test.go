package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaahk/wxdecode/internal/decoder"
)

const metar = "METAR VHHH 210800Z 24012KT 9999 FEW015 28/24 Q1008 NOSIG"

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRenderArgument(t *testing.T) {
	code, out, _ := runCLI(t, "", strings.Fields(metar)...)
	require.Equal(t, 0, code)
	assert.Equal(t, decoder.Format(decoder.DecodeMETAR(metar))+"\n", out)
	assert.Contains(t, out, "香港国际机场 (VHHH)")
}

func TestJSONOutput(t *testing.T) {
	code, out, _ := runCLI(t, "", "-json", "-kind", "metar", metar)
	require.Equal(t, 0, code)

	var got output
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, decoder.KindMETAR, got.Kind)
	assert.Equal(t, decoder.DecodeMETAR(metar), got.Decoded)
}

func TestStdinOnePerLine(t *testing.T) {
	taf := "TAF VHHH 210500Z 2106/2212 24010KT 9999 FEW020"
	code, out, _ := runCLI(t, metar+"\n\n"+taf+"\n", "-json")
	require.Equal(t, 0, code)

	var got []output
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, decoder.KindMETAR, got[0].Kind)
	assert.Equal(t, decoder.KindTAF, got[1].Kind)
}

func TestUsageErrors(t *testing.T) {
	code, _, errOut := runCLI(t, "")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "No report given")

	code, _, errOut = runCLI(t, "", "-kind", "notam", metar)
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "invalid report kind")
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/metar", r.URL.Path)
		assert.Equal(t, "raw", r.URL.Query().Get("format"))
		_, _ = io.WriteString(w, metar+"\n")
	}))
	defer srv.Close()

	code, out, _ := runCLI(t, "", "-fetch", "-station", "vhhh", "-api", srv.URL)
	require.Equal(t, 0, code)
	assert.Equal(t, decoder.Format(decoder.DecodeMETAR(metar))+"\n", out)
}

func TestFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	code, _, errOut := runCLI(t, "", "-fetch", "-kind", "taf", "-api", srv.URL)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Fetch failed")
}
