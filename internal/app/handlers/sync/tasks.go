package sync

import (
	"context"
	"fmt"
	"log/slog"

	"staysync/internal/app/commands"
	"staysync/internal/app/outbox"
	"staysync/internal/app/policies"
	"staysync/internal/app/tasks"
	domainbooking "staysync/internal/domain/booking"
)

// EventChannelBooking names inbound reservations published by platform adapters.
const EventChannelBooking = "channel.booking_created"

// Task names. They scope retries and inbox deduplication per event.
const (
	TaskSync    = "sync"
	TaskLoyalty = "loyalty"
	TaskIngest  = "ingest"
)

type TaskDeps struct {
	// Background runs the sync engine; Commands runs ingestion through the
	// transactional pipeline.
	Background commands.Bus
	Commands   commands.Bus
	Loyalty    policies.LoyaltyLedger
	Logger     *slog.Logger
}

type bookingRef struct {
	BookingID string `json:"booking_id"`
}

// RegisterTasks subscribes the background tasks to their events.
func RegisterTasks(router *tasks.Router, deps TaskDeps) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	syncTask := func(ctx context.Context, rec outbox.EventRecord) error {
		ref, err := outbox.Decode[bookingRef](rec)
		if err != nil {
			return fmt.Errorf("sync task: decode %s: %w", rec.Name, err)
		}
		_, err = commands.Dispatch[SyncBookingCommand, *SyncReport](ctx, deps.Background, SyncBookingCommand{BookingID: ref.BookingID})
		return err
	}
	router.On(domainbooking.EventCreated, TaskSync, syncTask)
	router.On(domainbooking.EventIngested, TaskSync, syncTask)
	router.On(domainbooking.EventResyncRequested, TaskSync, syncTask)

	router.On(domainbooking.EventCreated, TaskLoyalty, func(ctx context.Context, rec outbox.EventRecord) error {
		if deps.Loyalty == nil {
			return nil
		}
		created, err := outbox.Decode[domainbooking.Created](rec)
		if err != nil {
			return fmt.Errorf("loyalty task: decode: %w", err)
		}
		if created.LoyaltyPoints <= 0 {
			return nil
		}
		if err := deps.Loyalty.AddPoints(ctx, created.GuestID, created.LoyaltyPoints, created.Total.Amount); err != nil {
			logger.Warn("loyalty accrual failed", "booking_id", created.BookingID, "guest_id", created.GuestID, "err", err)
		}
		return nil
	})

	router.On(EventChannelBooking, TaskIngest, func(ctx context.Context, rec outbox.EventRecord) error {
		cmd, err := outbox.Decode[IngestExternalBookingCommand](rec)
		if err != nil {
			logger.Warn("malformed channel booking dropped", "event_id", rec.ID, "err", err)
			return nil
		}
		if err := cmd.Validate(); err != nil {
			logger.Warn("invalid channel booking dropped", "event_id", rec.ID, "err", err)
			return nil
		}
		res, err := commands.Dispatch[IngestExternalBookingCommand, *IngestResult](ctx, deps.Commands, cmd)
		if err != nil {
			return err
		}
		logger.Info("channel booking handled", "event_id", rec.ID, "outcome", res.Outcome, "booking_id", res.BookingID)
		return nil
	})
}
