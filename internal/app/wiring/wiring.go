// Package wiring registers every command, query and background task on the
// buses and wraps them in the middleware pipeline. Storage and transport are
// chosen by the caller.
package wiring

import (
	"errors"
	"log/slog"
	"time"

	"staysync/internal/app/commands"
	"staysync/internal/app/dto"
	availabilityapp "staysync/internal/app/handlers/availability"
	bookingapp "staysync/internal/app/handlers/booking"
	holdsapp "staysync/internal/app/handlers/holds"
	propertiesapp "staysync/internal/app/handlers/properties"
	syncapp "staysync/internal/app/handlers/sync"
	"staysync/internal/app/handlers/support"
	"staysync/internal/app/middleware"
	"staysync/internal/app/outbox"
	"staysync/internal/app/policies"
	"staysync/internal/app/queries"
	"staysync/internal/app/tasks"
	"staysync/internal/app/uow"
)

type Deps struct {
	UoW         uow.UoWFactory
	Locker      policies.PropertyLocker
	Outbox      outbox.Outbox
	Idempotency middleware.IdempotencyStore
	Gateway     policies.PlatformGateway
	Loyalty     policies.LoyaltyLedger

	Encoder    outbox.EventEncoder
	Retry      syncapp.RetryPolicy
	HoldTTL    time.Duration
	HoldPolicy policies.ExpiredHoldPolicy
	Clock      support.Clock
	Logger     *slog.Logger
}

// App holds the assembled buses. Commands and Queries serve requests;
// Background runs the sync engine and the reaper, which open their own units.
type App struct {
	Commands   commands.Bus
	Queries    queries.Bus
	Background commands.Bus
	Router     *tasks.Router
}

var ErrMissingDependency = errors.New("wiring: missing dependency")

func Build(d Deps) (*App, error) {
	if d.UoW == nil || d.Locker == nil || d.Outbox == nil || d.Idempotency == nil || d.Gateway == nil {
		return nil, ErrMissingDependency
	}
	if d.Encoder == nil {
		d.Encoder = outbox.JSONEventEncoder{}
	}
	if d.Clock == nil {
		d.Clock = support.Clock(time.Now)
	}
	if d.HoldTTL <= 0 {
		d.HoldTTL = bookingapp.DefaultHoldTTL
	}
	if d.HoldPolicy == "" {
		d.HoldPolicy = policies.KeepPending
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	base := commands.NewInMemoryBus()
	commands.RegisterHandler[bookingapp.CreateBookingCommand, *bookingapp.CreateBookingResult](base, bookingapp.CreateBookingCommand{}.Key(), &bookingapp.CreateBookingHandler{
		Locker: d.Locker, Outbox: d.Outbox, Encoder: d.Encoder, HoldTTL: d.HoldTTL, Clock: d.Clock, Logger: logger,
	})
	commands.RegisterHandler[bookingapp.ConfirmPaymentCommand, *dto.Booking](base, bookingapp.ConfirmPaymentCommand{}.Key(), &bookingapp.ConfirmPaymentHandler{
		Locker: d.Locker, Outbox: d.Outbox, Encoder: d.Encoder, Clock: d.Clock, Logger: logger,
	})
	commands.RegisterHandler[bookingapp.UpdateBookingStatusCommand, *dto.Booking](base, bookingapp.UpdateBookingStatusCommand{}.Key(), &bookingapp.UpdateBookingStatusHandler{
		Locker: d.Locker, Outbox: d.Outbox, Encoder: d.Encoder, Clock: d.Clock,
	})
	commands.RegisterHandler[availabilityapp.BlockDatesCommand, *availabilityapp.BlockDatesResult](base, availabilityapp.BlockDatesCommand{}.Key(), &availabilityapp.BlockDatesHandler{
		Locker: d.Locker, Outbox: d.Outbox, Encoder: d.Encoder, Clock: d.Clock, Logger: logger,
	})
	commands.RegisterHandler[availabilityapp.UnblockDatesCommand, *dto.CalendarBlock](base, availabilityapp.UnblockDatesCommand{}.Key(), &availabilityapp.UnblockDatesHandler{
		Locker: d.Locker, Outbox: d.Outbox, Encoder: d.Encoder, Clock: d.Clock,
	})
	commands.RegisterHandler[propertiesapp.CreatePropertyCommand, *dto.Property](base, propertiesapp.CreatePropertyCommand{}.Key(), &propertiesapp.CreatePropertyHandler{
		Clock: d.Clock, Logger: logger,
	})
	connections := &propertiesapp.ConnectionHandler{Outbox: d.Outbox, Encoder: d.Encoder, Clock: d.Clock, Logger: logger}
	commands.RegisterHandler[propertiesapp.ConnectPlatformCommand, *dto.Property](base, propertiesapp.ConnectPlatformCommand{}.Key(),
		commands.HandlerFunc[propertiesapp.ConnectPlatformCommand, *dto.Property](connections.Connect))
	commands.RegisterHandler[propertiesapp.DisconnectPlatformCommand, *dto.Property](base, propertiesapp.DisconnectPlatformCommand{}.Key(),
		commands.HandlerFunc[propertiesapp.DisconnectPlatformCommand, *dto.Property](connections.Disconnect))
	commands.RegisterHandler[propertiesapp.DeletePropertyCommand, struct{}](base, propertiesapp.DeletePropertyCommand{}.Key(), &propertiesapp.DeletePropertyHandler{
		Logger: logger,
	})
	commands.RegisterHandler[propertiesapp.TogglePropertyStatusCommand, *dto.Property](base, propertiesapp.TogglePropertyStatusCommand{}.Key(), &propertiesapp.TogglePropertyStatusHandler{
		Outbox: d.Outbox, Encoder: d.Encoder, Clock: d.Clock, Logger: logger,
	})
	commands.RegisterHandler[propertiesapp.UpdatePricingCommand, *dto.Property](base, propertiesapp.UpdatePricingCommand{}.Key(), &propertiesapp.UpdatePricingHandler{
		Outbox: d.Outbox, Encoder: d.Encoder, Clock: d.Clock, Logger: logger,
	})
	engine := &syncapp.SyncEngine{UoWFactory: d.UoW, Gateway: d.Gateway, Retry: d.Retry, Clock: d.Clock, Logger: logger}
	commands.RegisterHandler[syncapp.SyncPropertyCommand, *syncapp.PropertySyncReport](base, syncapp.SyncPropertyCommand{}.Key(),
		commands.HandlerFunc[syncapp.SyncPropertyCommand, *syncapp.PropertySyncReport](engine.SyncProperty))
	commands.RegisterHandler[syncapp.IngestExternalBookingCommand, *syncapp.IngestResult](base, syncapp.IngestExternalBookingCommand{}.Key(), &syncapp.IngestHandler{
		Locker: d.Locker, Outbox: d.Outbox, Encoder: d.Encoder, Clock: d.Clock, Logger: logger,
	})
	commands.RegisterHandler[syncapp.ResyncBookingCommand, *dto.Booking](base, syncapp.ResyncBookingCommand{}.Key(), &syncapp.ResyncHandler{
		Outbox: d.Outbox, Encoder: d.Encoder, Clock: d.Clock,
	})

	commandBus := middleware.ChainCommands(
		base,
		middleware.Validation(middleware.SelfValidator{}),
		middleware.Authorization(middleware.RequireActor{}),
		middleware.Idempotency(d.Idempotency, nil),
		middleware.Transaction(d.UoW, nil),
		middleware.OutboxFlush(d.Outbox),
	)

	background := commands.NewInMemoryBus()
	commands.RegisterHandler[syncapp.SyncBookingCommand, *syncapp.SyncReport](background, syncapp.SyncBookingCommand{}.Key(), engine)
	commands.RegisterHandler[holdsapp.ReapExpiredHoldsCommand, *holdsapp.ReapResult](background, holdsapp.ReapExpiredHoldsCommand{}.Key(), &holdsapp.Reaper{
		UoWFactory: d.UoW, Locker: d.Locker, Outbox: d.Outbox, Encoder: d.Encoder, Policy: d.HoldPolicy, Clock: d.Clock, Logger: logger,
	})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler[availabilityapp.CheckAvailabilityQuery, dto.Availability](queryBus, availabilityapp.CheckAvailabilityQuery{}.Key(), &availabilityapp.CheckAvailabilityHandler{UoWFactory: d.UoW})
	queries.RegisterHandler[availabilityapp.GetCalendarQuery, dto.Calendar](queryBus, availabilityapp.GetCalendarQuery{}.Key(), &availabilityapp.GetCalendarHandler{UoWFactory: d.UoW})
	queries.RegisterHandler[bookingapp.GetBookingQuery, dto.Booking](queryBus, bookingapp.GetBookingQuery{}.Key(), &bookingapp.GetBookingHandler{UoWFactory: d.UoW})
	queries.RegisterHandler[propertiesapp.ListHostPropertiesQuery, []dto.Property](queryBus, propertiesapp.ListHostPropertiesQuery{}.Key(), &propertiesapp.ListHostPropertiesHandler{UoWFactory: d.UoW, Logger: logger})
	queries.RegisterHandler[propertiesapp.GetPropertyQuery, dto.Property](queryBus, propertiesapp.GetPropertyQuery{}.Key(), &propertiesapp.GetPropertyHandler{UoWFactory: d.UoW})
	queries.RegisterHandler[syncapp.SyncLogQuery, dto.SyncLog](queryBus, syncapp.SyncLogQuery{}.Key(), &syncapp.SyncLogHandler{UoWFactory: d.UoW})

	queryPipeline := middleware.ChainQueries(
		queryBus,
		middleware.QueryValidation(middleware.SelfValidator{}),
		middleware.QueryAuthorization(middleware.RequireActor{}),
	)

	router := tasks.NewRouter()
	syncapp.RegisterTasks(router, syncapp.TaskDeps{
		Background: background,
		Commands:   commandBus,
		Loyalty:    d.Loyalty,
		Logger:     logger,
	})

	return &App{Commands: commandBus, Queries: queryPipeline, Background: background, Router: router}, nil
}
