package weather

import (
	"errors"
	"fmt"

	"github.com/vaahk/wxdecode/internal/decoder"
)

var (
	// ErrEmptyReport means the upstream answered but carried no report.
	ErrEmptyReport = errors.New("empty report")
	// ErrStationMissing means the payload does not mention the station.
	ErrStationMissing = errors.New("station not found in report")
	// ErrUnexpectedStatus wraps a non-200 upstream answer.
	ErrUnexpectedStatus = errors.New("unexpected status code")
	// ErrNoData is returned when nothing has been fetched or archived yet.
	ErrNoData = errors.New("no weather data available")
)

// FetchError is returned to callers when a report could not be obtained.
// Callers that receive one do not run the decoder.
type FetchError struct {
	Station    string
	Kind       decoder.Kind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s for %s: status %d: %v", e.Kind, e.Station, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s for %s: %v", e.Kind, e.Station, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
