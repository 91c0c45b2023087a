package report

import (
	"context"
	"errors"
)

// Multi fans a report out to several reporters.
type Multi []Reporter

func (m Multi) Report(ctx context.Context, r Report) {
	for _, reporter := range m {
		reporter.Report(ctx, r)
	}
}

func (m Multi) Close() error {
	var errs []error
	for _, reporter := range m {
		if err := reporter.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
