package tasks

import (
	"context"
	"log/slog"
	"time"

	"staysync/internal/app/outbox"
)

// Inbox remembers which (event, task) pairs already ran so redelivered
// events are skipped.
type Inbox interface {
	Processed(ctx context.Context, eventID, task string) (bool, error)
	MarkProcessed(ctx context.Context, eventID, task string) error
}

// Deliverer runs each route of an event with its own retry budget. A route
// that keeps failing is logged and dropped without affecting the others.
type Deliverer struct {
	Router  *Router
	Inbox   Inbox
	Backoff []time.Duration
	Logger  *slog.Logger
}

// Deliver reports how many routes gave up.
func (d *Deliverer) Deliver(ctx context.Context, rec outbox.EventRecord) int {
	if d.Router == nil {
		return 0
	}
	failed := 0
	for _, route := range d.Router.Routes(rec.Name) {
		if d.Inbox != nil {
			done, err := d.Inbox.Processed(ctx, rec.ID, route.Task)
			if err != nil {
				d.log().Error("inbox lookup failed", "event_id", rec.ID, "task", route.Task, "err", err)
			} else if done {
				continue
			}
		}
		if err := d.deliverRoute(ctx, route, rec); err != nil {
			failed++
			d.log().Error("task delivery gave up", "event", rec.Name, "event_id", rec.ID, "task", route.Task, "err", err)
			continue
		}
		if d.Inbox != nil {
			if err := d.Inbox.MarkProcessed(ctx, rec.ID, route.Task); err != nil {
				d.log().Warn("inbox mark failed", "event_id", rec.ID, "task", route.Task, "err", err)
			}
		}
	}
	return failed
}

func (d *Deliverer) deliverRoute(ctx context.Context, route Route, rec outbox.EventRecord) error {
	var err error
	for attempt := 0; attempt <= len(d.Backoff); attempt++ {
		if attempt > 0 {
			d.log().Warn("task failed, retrying", "event", rec.Name, "task", route.Task, "attempt", attempt, "err", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.Backoff[attempt-1]):
			}
		}
		if err = route.Handle(ctx, rec); err == nil {
			return nil
		}
	}
	return err
}

func (d *Deliverer) log() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}
