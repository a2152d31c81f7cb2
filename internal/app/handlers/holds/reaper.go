package holds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"staysync/internal/app/commands"
	availabilityapp "staysync/internal/app/handlers/availability"
	"staysync/internal/app/handlers/support"
	"staysync/internal/app/outbox"
	"staysync/internal/app/policies"
	"staysync/internal/app/uow"
	domainbooking "staysync/internal/domain/booking"
	domainproperties "staysync/internal/domain/properties"
	"staysync/internal/domain/shared/events"
)

const reapKey = "holds.reap"

// ReapExpiredHoldsCommand releases every temporary block that expired before Now.
// A zero Now means the handler clock.
type ReapExpiredHoldsCommand struct {
	Now time.Time
}

func (c ReapExpiredHoldsCommand) Key() string { return reapKey }

type ReapResult struct {
	Properties int `json:"properties"`
	Released   int `json:"released"`
	Abandoned  int `json:"abandoned"`
}

// Reaper sweeps calendars property by property, one unit of work each, so a
// sweep that fails midway keeps what it already released.
type Reaper struct {
	UoWFactory uow.UoWFactory
	Locker     policies.PropertyLocker
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Policy     policies.ExpiredHoldPolicy
	Clock      support.Clock
	Logger     *slog.Logger
}

func (r *Reaper) Handle(ctx context.Context, cmd ReapExpiredHoldsCommand) (*ReapResult, error) {
	now := cmd.Now.UTC()
	if cmd.Now.IsZero() {
		now = r.Clock.Now()
	}
	var ids []domainproperties.PropertyID
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, r.UoWFactory)
	if err != nil {
		return nil, err
	}
	ids, err = unit.Availability().PropertiesWithExpiredHolds(execCtx, now)
	cleanup()
	if err != nil {
		return nil, err
	}

	result := &ReapResult{}
	for _, id := range ids {
		released, abandoned, err := r.sweep(ctx, id, now)
		if err != nil {
			return result, fmt.Errorf("holds: sweep %s: %w", id, err)
		}
		if released > 0 {
			result.Properties++
		}
		result.Released += released
		result.Abandoned += abandoned
	}
	if r.Logger != nil && result.Released > 0 {
		r.Logger.Info("expired holds released", "properties", result.Properties, "released", result.Released, "abandoned", result.Abandoned)
	}
	return result, nil
}

func (r *Reaper) sweep(ctx context.Context, id domainproperties.PropertyID, now time.Time) (released, abandoned int, err error) {
	err = support.InUnit(ctx, r.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		if err := availabilityapp.LockProperty(ctx, r.Locker, id); err != nil {
			return err
		}
		calendar, err := unit.Availability().Calendar(ctx, id)
		if err != nil {
			return err
		}
		expired := calendar.ReleaseExpired(now)
		if len(expired) == 0 {
			return nil
		}
		if err := unit.Availability().Save(ctx, calendar); err != nil {
			return err
		}
		released = len(expired)
		sources := []events.Source{calendar}

		if r.Policy == policies.CancelPending {
			for _, hold := range expired {
				if hold.BookingID == "" {
					continue
				}
				booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(hold.BookingID))
				if errors.Is(err, domainbooking.ErrNotFound) {
					continue
				}
				if err != nil {
					return err
				}
				if !booking.AbandonHold(now) {
					continue
				}
				if err := unit.Bookings().Save(ctx, booking); err != nil {
					return err
				}
				abandoned++
				sources = append(sources, booking)
			}
		}
		return support.Publish(ctx, r.Outbox, r.Encoder, sources...)
	})
	if err != nil {
		return 0, 0, err
	}
	return released, abandoned, nil
}

var _ commands.Handler[ReapExpiredHoldsCommand, *ReapResult] = (*Reaper)(nil)
