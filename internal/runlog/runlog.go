// Package runlog persists the append-only audit log of dispatched
// reminders. Stores only ever append; nothing reads the log back during a
// run.
package runlog

import (
	"context"
	"errors"
)

// Store appends run-log lines to an external artifact, creating it when
// absent.
type Store interface {
	Append(ctx context.Context, lines []string) error
}

// MultiStore fans appends out to several stores.
type MultiStore []Store

// Append writes the lines to every store and joins the failures.
func (m MultiStore) Append(ctx context.Context, lines []string) error {
	var errs []error
	for _, s := range m {
		if err := s.Append(ctx, lines); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard is a Store that drops everything.
type Discard struct{}

// Append implements Store.
func (Discard) Append(ctx context.Context, lines []string) error { return nil }
