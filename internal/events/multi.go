package events

import (
	"context"
	"errors"

	"github.com/jason-s-yu/fittogether/internal/partner"
)

// Multi fans an event out to every notifier, collecting all failures.
type Multi []partner.Notifier

func (m Multi) Notify(ctx context.Context, ev partner.Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
