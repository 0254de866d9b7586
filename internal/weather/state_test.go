package weather

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaahk/wxdecode/internal/decoder"
)

func TestCanTransition(t *testing.T) {
	legal := map[[2]FeedState]bool{
		{FeedIdle, FeedLoading}:   true,
		{FeedLoading, FeedLoaded}: true,
		{FeedLoading, FeedError}:  true,
		{FeedLoaded, FeedLoading}: true,
		{FeedError, FeedLoading}:  true,
	}
	states := []FeedState{FeedIdle, FeedLoading, FeedLoaded, FeedError}
	for _, from := range states {
		for _, to := range states {
			assert.Equal(t, legal[[2]FeedState{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestFeedMachine(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 21, 8, 0, 0, 0, time.UTC))
	m := NewFeedMachine(clock)
	assert.Equal(t, FeedIdle, m.Snapshot().State)

	clock.Advance(time.Minute)
	snap, err := m.Transition(FeedLoading, []decoder.Kind{decoder.KindMETAR}, nil)
	require.NoError(t, err)
	assert.Equal(t, FeedLoading, snap.State)
	assert.Equal(t, clock.Now(), snap.Since)
	assert.Equal(t, []decoder.Kind{decoder.KindMETAR}, snap.Kinds)

	snap, err = m.Transition(FeedError, nil, errors.New("upstream down"))
	require.NoError(t, err)
	assert.Equal(t, "upstream down", snap.LastError)

	_, err = m.Transition(FeedLoaded, nil, nil)
	require.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, FeedError, m.Snapshot().State, "illegal move leaves state unchanged")

	_, err = m.Transition(FeedLoading, nil, nil)
	require.NoError(t, err)
	snap, err = m.Transition(FeedLoaded, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, snap.LastError)
}

func TestFeedSnapshotJSON(t *testing.T) {
	snap := FeedSnapshot{State: FeedLoaded, Kinds: []decoder.Kind{decoder.KindTAF}}
	b, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"state":"loaded"`)
	assert.Contains(t, string(b), `"kinds":["taf"]`)
	assert.Equal(t, "FeedState(9)", FeedState(9).String())
}
