package complaint

import (
	"context"
	"errors"

	"wangsammo/backend/internal/models"
)

// EventSink receives complaint lifecycle events (live feed, Telegram).
type EventSink interface {
	Publish(ctx context.Context, ev models.FeedEvent) error
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, ev models.FeedEvent) error

func (f EventSinkFunc) Publish(ctx context.Context, ev models.FeedEvent) error {
	return f(ctx, ev)
}

// MultiSink fans an event out to every sink and joins their errors.
type MultiSink []EventSink

func (m MultiSink) Publish(ctx context.Context, ev models.FeedEvent) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
