package weather

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/vaahk/wxdecode/internal/decoder"
)

// ErrIllegalTransition is returned when the feed is asked to move to a
// state it cannot reach from the current one.
var ErrIllegalTransition = errors.New("illegal feed state transition")

// FeedState is the lifecycle of the live weather feed
type FeedState int

const (
	FeedIdle FeedState = iota
	FeedLoading
	FeedLoaded
	FeedError
)

var feedStateNames = map[FeedState]string{
	FeedIdle:    "idle",
	FeedLoading: "loading",
	FeedLoaded:  "loaded",
	FeedError:   "error",
}

func (s FeedState) String() string {
	if name, ok := feedStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("FeedState(%d)", int(s))
}

func (s FeedState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to FeedState) bool {
	switch from {
	case FeedIdle, FeedLoaded, FeedError:
		return to == FeedLoading
	case FeedLoading:
		return to == FeedLoaded || to == FeedError
	}
	return false
}

// FeedSnapshot is what the UI and the state endpoint see
type FeedSnapshot struct {
	State     FeedState      `json:"state"`
	Since     time.Time      `json:"since"`
	LastError string         `json:"last_error,omitempty"`
	Kinds     []decoder.Kind `json:"kinds,omitempty"`
}

// FeedMachine guards the feed state. The zero value is not usable; use NewFeedMachine.
type FeedMachine struct {
	mu    sync.RWMutex
	clock clockwork.Clock
	snap  FeedSnapshot
}

func NewFeedMachine(clock clockwork.Clock) *FeedMachine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &FeedMachine{
		clock: clock,
		snap:  FeedSnapshot{State: FeedIdle, Since: clock.Now()},
	}
}

// Transition moves the feed to the given state. On an illegal move the
// state is left untouched. cause is recorded when moving to FeedError
// and cleared when loading succeeds.
func (m *FeedMachine) Transition(to FeedState, kinds []decoder.Kind, cause error) (FeedSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !CanTransition(m.snap.State, to) {
		return m.copySnap(), fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, m.snap.State, to)
	}

	m.snap.State = to
	m.snap.Since = m.clock.Now()
	m.snap.Kinds = append([]decoder.Kind(nil), kinds...)
	switch to {
	case FeedError:
		if cause != nil {
			m.snap.LastError = cause.Error()
		}
	case FeedLoaded:
		m.snap.LastError = ""
	}
	return m.copySnap(), nil
}

// Snapshot returns a copy of the current state.
func (m *FeedMachine) Snapshot() FeedSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.copySnap()
}

func (m *FeedMachine) copySnap() FeedSnapshot {
	s := m.snap
	s.Kinds = append([]decoder.Kind(nil), m.snap.Kinds...)
	return s
}
