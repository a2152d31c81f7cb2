package sync

import (
	"context"
	"errors"
	"log/slog"

	"staysync/internal/app/commands"
	"staysync/internal/app/dto"
	availabilityapp "staysync/internal/app/handlers/availability"
	"staysync/internal/app/handlers/support"
	"staysync/internal/app/outbox"
	"staysync/internal/app/policies"
	"staysync/internal/app/uow"
	domainavailability "staysync/internal/domain/availability"
	domainbooking "staysync/internal/domain/booking"
	"staysync/internal/domain/channels"
	domainpricing "staysync/internal/domain/pricing"
	domainproperties "staysync/internal/domain/properties"
	"staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/fault"
	"staysync/internal/domain/synclog"
)

const ingestKey = "sync.ingest"

// IngestExternalBookingCommand carries a reservation made on an external platform.
type IngestExternalBookingCommand struct {
	Platform           string           `json:"platform"`
	PlatformBookingID  string           `json:"platform_booking_id"`
	PlatformPropertyID string           `json:"platform_property_id"`
	CheckIn            string           `json:"check_in"`
	CheckOut           string           `json:"check_out"`
	GuestDetails       dto.GuestDetails `json:"guest_details"`
}

func (c IngestExternalBookingCommand) Key() string { return ingestKey }

func (c IngestExternalBookingCommand) Validate() error {
	if _, err := channels.ParseExternal(c.Platform); err != nil {
		return err
	}
	if c.PlatformBookingID == "" || c.PlatformPropertyID == "" {
		return fault.New("sync", "platform booking and property ids required", fault.ErrInvalidInput)
	}
	if _, err := daterange.Parse(c.CheckIn, c.CheckOut); err != nil {
		return fault.Wrap(fault.ErrInvalidInput, "sync: %v", err)
	}
	return nil
}

type IngestOutcome string

const (
	IngestCreated   IngestOutcome = "created"
	IngestDuplicate IngestOutcome = "duplicate"
	IngestIgnored   IngestOutcome = "ignored"
	IngestRejected  IngestOutcome = "rejected"
)

type IngestResult struct {
	Outcome      IngestOutcome `json:"outcome"`
	BookingID    string        `json:"booking_id,omitempty"`
	PropertyID   string        `json:"property_id,omitempty"`
	EvictedHolds int           `json:"evicted_holds,omitempty"`
	Reason       string        `json:"reason,omitempty"`
}

// Rejected reports a conflict with a permanent block. The failed log entry
// is still committed, so the handler reports it as a result, not an error.
func (r *IngestResult) Rejected() bool { return r != nil && r.Outcome == IngestRejected }

type IngestHandler struct {
	Locker  policies.PropertyLocker
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   support.Clock
	Logger  *slog.Logger
}

func (h *IngestHandler) Handle(ctx context.Context, cmd IngestExternalBookingCommand) (*IngestResult, error) {
	unit, err := support.CurrentUnit(ctx)
	if err != nil {
		return nil, err
	}
	platform, err := channels.ParseExternal(cmd.Platform)
	if err != nil {
		return nil, err
	}
	r, err := daterange.Parse(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, fault.Wrap(fault.ErrInvalidInput, "sync: %v", err)
	}

	property, err := unit.Properties().ByPlatformID(ctx, platform, cmd.PlatformPropertyID)
	if errors.Is(err, domainproperties.ErrNotFound) {
		h.log().Info("external booking for unknown listing ignored", "platform", platform, "listing", cmd.PlatformPropertyID)
		return &IngestResult{Outcome: IngestIgnored, Reason: "no property connected under this listing"}, nil
	}
	if err != nil {
		return nil, err
	}
	if dup, err := h.duplicate(ctx, unit, platform, cmd.PlatformBookingID, property.ID); dup != nil || err != nil {
		return dup, err
	}

	if err := availabilityapp.LockProperty(ctx, h.Locker, property.ID); err != nil {
		return nil, err
	}
	// A concurrent delivery of the same reference may have committed while
	// this one waited for the lock.
	if dup, err := h.duplicate(ctx, unit, platform, cmd.PlatformBookingID, property.ID); dup != nil || err != nil {
		return dup, err
	}
	calendar, err := unit.Availability().Calendar(ctx, property.ID)
	if err != nil {
		return nil, err
	}
	now := h.Clock.Now()
	bookingID := support.NewID()
	evicted := calendar.EvictHolds(r, now)
	if _, err := calendar.Block(domainavailability.BlockParams{
		ID:        domainavailability.BlockID(support.NewID()),
		Range:     r,
		Reason:    domainavailability.ReasonBooked,
		Platform:  platform,
		BookingID: bookingID,
		Now:       now,
	}); err != nil {
		if !errors.Is(err, domainavailability.ErrDatesUnavailable) {
			return nil, err
		}
		calendar.ClearEvents()
		entry := synclog.Entry{
			ID:         support.NewID(),
			PropertyID: property.ID,
			Platform:   platform,
			Action:     synclog.ActionBookingSync,
			Status:     synclog.StatusFailed,
			Message:    "ingestion rejected for " + cmd.PlatformBookingID,
			Error:      err.Error(),
			CreatedAt:  now,
		}
		if err := unit.SyncLog().Append(ctx, entry); err != nil {
			return nil, err
		}
		h.log().Warn("external booking conflicts with a permanent block", "platform", platform, "ref", cmd.PlatformBookingID, "property_id", property.ID, "range", r.String())
		return &IngestResult{Outcome: IngestRejected, PropertyID: string(property.ID), Reason: err.Error()}, nil
	}

	quote, err := domainpricing.Calculate(property.Pricing, r)
	if err != nil {
		return nil, err
	}
	booking, err := domainbooking.NewExternal(domainbooking.ExternalParams{
		ID:                domainbooking.BookingID(bookingID),
		PropertyID:        property.ID,
		HostID:            property.HostID,
		Platform:          platform,
		PlatformBookingID: cmd.PlatformBookingID,
		Range:             r,
		GuestDetails: domainbooking.GuestDetails{
			Name:            cmd.GuestDetails.Name,
			Email:           cmd.GuestDetails.Email,
			Phone:           cmd.GuestDetails.Phone,
			SpecialRequests: cmd.GuestDetails.SpecialRequests,
		},
		Price: quote,
		Now:   now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Availability().Save(ctx, calendar); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}
	if err := unit.SyncLog().Append(ctx, synclog.Entry{
		ID:         support.NewID(),
		PropertyID: property.ID,
		BookingID:  bookingID,
		Platform:   platform,
		Action:     synclog.ActionBookingSync,
		Status:     synclog.StatusSuccess,
		Message:    "ingested " + cmd.PlatformBookingID,
		CreatedAt:  now,
	}); err != nil {
		return nil, err
	}
	if err := support.Publish(ctx, h.Outbox, h.Encoder, calendar, booking); err != nil {
		return nil, err
	}
	h.log().Info("external booking ingested", "platform", platform, "ref", cmd.PlatformBookingID, "booking_id", bookingID, "evicted_holds", len(evicted))
	return &IngestResult{
		Outcome:      IngestCreated,
		BookingID:    bookingID,
		PropertyID:   string(property.ID),
		EvictedHolds: len(evicted),
	}, nil
}

func (h *IngestHandler) duplicate(ctx context.Context, unit uow.UnitOfWork, platform channels.Platform, ref string, propertyID domainproperties.PropertyID) (*IngestResult, error) {
	existing, err := unit.Bookings().ByPlatformReference(ctx, platform, ref)
	if errors.Is(err, domainbooking.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &IngestResult{Outcome: IngestDuplicate, BookingID: string(existing.ID), PropertyID: string(propertyID)}, nil
}

func (h *IngestHandler) log() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var _ commands.Handler[IngestExternalBookingCommand, *IngestResult] = (*IngestHandler)(nil)
