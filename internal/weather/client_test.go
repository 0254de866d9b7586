package weather

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaahk/wxdecode/internal/decoder"
	"github.com/vaahk/wxdecode/pkg/logger"
)

func testClient(baseURL string) *Client {
	c := NewClient(testConfig(baseURL), logger.NewNop())
	c.retryBackoff = time.Millisecond
	return c
}

func TestClient_FetchMETAR(t *testing.T) {
	awc := newFakeAWC(t)

	m, err := testClient(awc.URL).FetchMETAR(context.Background(), "VHHH")
	require.NoError(t, err)

	assert.Equal(t, "VHHH", m.ICAOID)
	assert.Equal(t, testMETARRaw, m.RawOb)
	assert.Equal(t, FlexString("240"), m.Wdir)
	assert.Equal(t, FlexString("10+"), m.Visib)
	require.NotNil(t, m.Altim)
	assert.InDelta(t, 1008, *m.Altim, 0.001)
	assert.Nil(t, m.Wgst)
	assert.Len(t, m.Clouds, 2)
}

func TestClient_FetchTAF(t *testing.T) {
	awc := newFakeAWC(t)

	taf, err := testClient(awc.URL).FetchTAF(context.Background(), "VHHH")
	require.NoError(t, err)

	assert.Equal(t, testTAFRaw, taf.RawTAF)
	require.Len(t, taf.Fcsts, 2)
	assert.Equal(t, FlexString("VRB"), taf.Fcsts[1].Wdir)
	assert.Equal(t, FlexString("4000"), taf.Fcsts[1].Visib)
	require.NotNil(t, taf.Fcsts[1].Probability)
	assert.Equal(t, 30, *taf.Fcsts[1].Probability)
}

func TestClient_EmptyArrayIsFetchError(t *testing.T) {
	awc := newFakeAWC(t, func(f *fakeAWC) { f.metar = `[]` })

	_, err := testClient(awc.URL).FetchMETAR(context.Background(), "VHHH")
	require.Error(t, err)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, decoder.KindMETAR, fe.Kind)
	assert.ErrorIs(t, err, ErrEmptyReport)
}

func TestClient_GetReport(t *testing.T) {
	awc := newFakeAWC(t)

	text, err := testClient(awc.URL).GetReport(context.Background(), "VHHH", decoder.KindTAF)
	require.NoError(t, err)
	assert.Equal(t, testTAFRaw, text)
}

func TestClient_GetReportStationMissing(t *testing.T) {
	awc := newFakeAWC(t, func(f *fakeAWC) {
		f.rawMETAR = "METAR RCTP 210800Z 09005KT 9999 FEW020 30/25 Q1006"
	})

	_, err := testClient(awc.URL).GetReport(context.Background(), "VHHH", decoder.KindMETAR)
	assert.ErrorIs(t, err, ErrStationMissing)
}

func TestClient_GetReportEmptyBody(t *testing.T) {
	awc := newFakeAWC(t, func(f *fakeAWC) { f.rawMETAR = "  \n" })

	_, err := testClient(awc.URL).GetReport(context.Background(), "VHHH", decoder.KindMETAR)
	assert.ErrorIs(t, err, ErrEmptyReport)
}

func TestClient_RetriesThenReportsStatus(t *testing.T) {
	awc := newFakeAWC(t)
	awc.status.Store(http.StatusBadGateway)

	_, err := testClient(awc.URL).FetchMETAR(context.Background(), "VHHH")
	require.Error(t, err)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusBadGateway, fe.StatusCode)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	// MaxRetries is 1, so two attempts
	assert.Equal(t, int32(2), awc.hits.Load())
}

func TestClient_NoContentIsNotRetried(t *testing.T) {
	awc := newFakeAWC(t)
	awc.status.Store(http.StatusNoContent)

	_, err := testClient(awc.URL).FetchTAF(context.Background(), "VHHH")
	assert.ErrorIs(t, err, ErrEmptyReport)
	assert.Equal(t, int32(1), awc.hits.Load())
}

func TestClient_CancelledContext(t *testing.T) {
	awc := newFakeAWC(t)
	awc.status.Store(http.StatusInternalServerError)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(awc.URL).FetchMETAR(ctx, "VHHH")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestClient_FetchAll(t *testing.T) {
	awc := newFakeAWC(t)

	results := testClient(awc.URL).FetchAll(context.Background(), "VHHH")
	require.Len(t, results, 2)

	byKind := map[decoder.Kind]FetchResult{}
	for _, r := range results {
		require.NoError(t, r.Err)
		byKind[r.Kind] = r
	}
	assert.IsType(t, &METARResponse{}, byKind[decoder.KindMETAR].Data)
	assert.IsType(t, &TAFResponse{}, byKind[decoder.KindTAF].Data)
}

func TestFetchErrorMessage(t *testing.T) {
	err := &FetchError{Station: "VHHH", Kind: decoder.KindTAF, StatusCode: 503, Err: ErrUnexpectedStatus}
	assert.Equal(t, "fetch taf for VHHH: status 503: unexpected status code", err.Error())
}
