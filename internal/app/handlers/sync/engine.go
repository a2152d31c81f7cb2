package sync

import (
	"context"
	"errors"
	"log/slog"
	gosync "sync"
	"time"

	"staysync/internal/app/commands"
	"staysync/internal/app/handlers/support"
	"staysync/internal/app/policies"
	"staysync/internal/app/uow"
	domainbooking "staysync/internal/domain/booking"
	"staysync/internal/domain/channels"
	domainproperties "staysync/internal/domain/properties"
	"staysync/internal/domain/shared/fault"
	"staysync/internal/domain/synclog"
)

const syncBookingKey = "sync.booking"

// SyncBookingCommand propagates a booking's dates to every other connected platform.
type SyncBookingCommand struct {
	BookingID string
}

func (c SyncBookingCommand) Key() string { return syncBookingKey }

type PlatformOutcome struct {
	Platform channels.Platform `json:"platform"`
	Status   synclog.Status    `json:"status"`
	Error    string            `json:"error,omitempty"`
}

type SyncReport struct {
	BookingID string              `json:"booking_id"`
	Outcomes  []PlatformOutcome   `json:"outcomes"`
	Skipped   []channels.Platform `json:"skipped,omitempty"`
}

// RetryPolicy bounds the attempts made against one platform.
type RetryPolicy struct {
	Backoff     []time.Duration
	CallTimeout time.Duration
}

func (p RetryPolicy) attempts() int { return len(p.Backoff) + 1 }

type SyncEngine struct {
	UoWFactory uow.UoWFactory
	Gateway    policies.PlatformGateway
	Retry      RetryPolicy
	Clock      support.Clock
	Logger     *slog.Logger
}

type syncTarget struct {
	platform   channels.Platform
	externalID string
}

func (e *SyncEngine) Handle(ctx context.Context, cmd SyncBookingCommand) (*SyncReport, error) {
	report := &SyncReport{BookingID: cmd.BookingID}

	var (
		booking *domainbooking.Booking
		targets []syncTarget
	)
	err := e.read(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
		if err != nil {
			return err
		}
		property, err := unit.Properties().ByID(ctx, b.PropertyID)
		if err != nil {
			return err
		}
		entries, err := unit.SyncLog().ListByBooking(ctx, cmd.BookingID)
		if err != nil {
			return err
		}
		booking = b
		for _, platform := range property.Connections.Platforms() {
			if platform == b.Platform || synclog.Succeeded(entries, cmd.BookingID, platform) {
				report.Skipped = append(report.Skipped, platform)
				continue
			}
			id, _ := property.Connections.ID(platform)
			targets = append(targets, syncTarget{platform: platform, externalID: id})
		}
		return nil
	})
	if errors.Is(err, domainbooking.ErrNotFound) || errors.Is(err, domainproperties.ErrNotFound) {
		return report, nil
	}
	if err != nil {
		return nil, err
	}
	if !booking.IsActive() {
		return report, nil
	}

	report.Outcomes = e.propagate(ctx, booking, targets)

	now := e.Clock.Now()
	err = support.InUnit(ctx, e.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		for _, outcome := range report.Outcomes {
			entry := synclog.Entry{
				ID:         support.NewID(),
				PropertyID: booking.PropertyID,
				BookingID:  cmd.BookingID,
				Platform:   outcome.Platform,
				Action:     synclog.ActionBookingSync,
				Status:     outcome.Status,
				Error:      outcome.Error,
				CreatedAt:  now,
			}
			if outcome.Status == synclog.StatusSuccess {
				entry.Message = "dates blocked " + booking.Range.String()
			}
			if err := unit.SyncLog().Append(ctx, entry); err != nil {
				return err
			}
		}
		fresh, err := unit.Bookings().ByID(ctx, booking.ID)
		if err != nil {
			return err
		}
		if fresh.SyncStatus == domainbooking.SyncSynced {
			return nil
		}
		fresh.MarkSynced(now)
		return unit.Bookings().Save(ctx, fresh)
	})
	if err != nil {
		return nil, err
	}
	if e.Logger != nil {
		e.Logger.Info("booking synced", "booking_id", cmd.BookingID, "attempted", len(report.Outcomes), "skipped", len(report.Skipped))
	}
	return report, nil
}

// propagate calls every target concurrently; one platform failing never
// affects another.
func (e *SyncEngine) propagate(ctx context.Context, booking *domainbooking.Booking, targets []syncTarget) []PlatformOutcome {
	outcomes := make([]PlatformOutcome, len(targets))
	var wg gosync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target syncTarget) {
			defer wg.Done()
			req := policies.BlockDatesRequest{
				Platform:           target.platform,
				ExternalPropertyID: target.externalID,
				BookingID:          string(booking.ID),
				Range:              booking.Range,
			}
			outcome := PlatformOutcome{Platform: target.platform, Status: synclog.StatusSuccess}
			if err := e.call(ctx, req); err != nil {
				outcome.Status = synclog.StatusFailed
				outcome.Error = err.Error()
				if e.Logger != nil {
					e.Logger.Warn("platform sync failed", "booking_id", booking.ID, "platform", target.platform, "err", err)
				}
			}
			outcomes[i] = outcome
		}(i, target)
	}
	wg.Wait()
	return outcomes
}

func (e *SyncEngine) call(ctx context.Context, req policies.BlockDatesRequest) error {
	if e.Gateway == nil {
		return fault.New("sync", "no platform gateway configured", fault.ErrExternalSync)
	}
	var lastErr error
	for attempt := 0; attempt < e.Retry.attempts(); attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(e.Retry.Backoff[attempt-1])
			select {
			case <-ctx.Done():
				timer.Stop()
				return fault.Wrap(fault.ErrExternalSync, "%s: %v", req.Platform, ctx.Err())
			case <-timer.C:
			}
		}
		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if e.Retry.CallTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, e.Retry.CallTimeout)
		}
		lastErr = e.Gateway.BlockDates(callCtx, req)
		cancel()
		if lastErr == nil {
			return nil
		}
	}
	if errors.Is(lastErr, fault.ErrExternalSync) {
		return lastErr
	}
	return fault.Wrap(fault.ErrExternalSync, "%s: %v", req.Platform, lastErr)
}

func (e *SyncEngine) read(ctx context.Context, fn func(ctx context.Context, unit uow.UnitOfWork) error) error {
	unit, ctx, done, err := support.BeginReadOnlyUnit(ctx, e.UoWFactory)
	if err != nil {
		return err
	}
	defer done()
	return fn(ctx, unit)
}

var _ commands.Handler[SyncBookingCommand, *SyncReport] = (*SyncEngine)(nil)
