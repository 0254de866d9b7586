// Package publish fans newly fetched reports out to message brokers.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vaahk/wxdecode/internal/weather"
)

// Multi publishes to every wrapped publisher and joins their errors.
type Multi []weather.Publisher

func (m Multi) Publish(ctx context.Context, r weather.Report) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every publisher that can be closed.
func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if c, ok := p.(interface{ Close() error }); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

func encode(r weather.Report) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("serialize %s report: %w", r.Kind, err)
	}
	return data, nil
}
