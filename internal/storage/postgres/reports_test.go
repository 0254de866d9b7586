package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaahk/wxdecode/internal/decoder"
	"github.com/vaahk/wxdecode/internal/weather"
	"github.com/vaahk/wxdecode/pkg/logger"
)

var _ weather.Archive = (*ReportStorage)(nil)

func TestConnString(t *testing.T) {
	cfg := Config{Host: "db", Port: 5432, Database: "wx", User: "wx", Password: "secret"}
	assert.Equal(t, "postgres://wx:secret@db:5432/wx?sslmode=disable", cfg.ConnString())

	cfg.SSLMode = "require"
	assert.Equal(t, "postgres://wx:secret@db:5432/wx?sslmode=require", cfg.ConnString())
}

// TestReportStorage runs against a live server when WXDECODE_POSTGRES_HOST is set.
func TestReportStorage(t *testing.T) {
	host := os.Getenv("WXDECODE_POSTGRES_HOST")
	if host == "" {
		t.Skip("WXDECODE_POSTGRES_HOST not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, Config{Host: host, Port: 5432, Database: "wxdecode", User: "wxdecode", Password: "wxdecode"}, logger.NewNop())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.pool.Exec(ctx, `TRUNCATE reports`)
	require.NoError(t, err)

	r := weather.Report{
		Station:   "VHHH",
		Kind:      decoder.KindMETAR,
		Raw:       "METAR VHHH 210800Z 24012KT 9999 FEW015 28/24 Q1008 NOSIG",
		FetchedAt: time.Date(2024, 6, 21, 8, 1, 0, 0, time.UTC),
	}
	id, inserted, err := s.Store(ctx, r)
	require.NoError(t, err)
	assert.True(t, inserted)

	again, inserted, err := s.Store(ctx, r)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, id, again)

	latest, err := s.Latest(ctx, "VHHH", decoder.KindMETAR)
	require.NoError(t, err)
	assert.Equal(t, r.Raw, latest.Raw)
	assert.True(t, latest.ObservedAt.IsZero())

	_, err = s.Latest(ctx, "VHHH", decoder.KindTAF)
	assert.ErrorIs(t, err, weather.ErrNoData)

	hist, err := s.History(ctx, "VHHH", decoder.KindMETAR, 0, 0)
	require.NoError(t, err)
	assert.Len(t, hist, 1)
}
