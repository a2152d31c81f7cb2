package booking

import (
	"context"

	"staysync/internal/app/commands"
	"staysync/internal/app/dto"
	"staysync/internal/app/handlers/support"
	"staysync/internal/app/outbox"
	"staysync/internal/app/policies"
	domainavailability "staysync/internal/domain/availability"
	domainbooking "staysync/internal/domain/booking"
	"staysync/internal/domain/channels"
	domainproperties "staysync/internal/domain/properties"
)

const updateStatusKey = "booking.update_status"

// UpdateBookingStatusCommand lets the property's host move a booking along.
type UpdateBookingStatusCommand struct {
	ActorID   string
	BookingID string
	Status    string
}

func (c UpdateBookingStatusCommand) Key() string   { return updateStatusKey }
func (c UpdateBookingStatusCommand) Actor() string { return c.ActorID }

func (c UpdateBookingStatusCommand) Validate() error {
	_, err := domainbooking.ParseStatus(c.Status)
	return err
}

type UpdateBookingStatusHandler struct {
	Locker  policies.PropertyLocker
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   support.Clock
}

func (h *UpdateBookingStatusHandler) Handle(ctx context.Context, cmd UpdateBookingStatusCommand) (*dto.Booking, error) {
	unit, err := support.CurrentUnit(ctx)
	if err != nil {
		return nil, err
	}
	status, err := domainbooking.ParseStatus(cmd.Status)
	if err != nil {
		return nil, err
	}
	booking, err := lockedBooking(ctx, unit, h.Locker, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	property, err := unit.Properties().ByID(ctx, booking.PropertyID)
	if err != nil {
		return nil, err
	}
	if !property.OwnedBy(cmd.ActorID) {
		return nil, domainproperties.ErrNotOwner
	}
	now := h.Clock.Now()
	previous := booking.Status
	if err := booking.UpdateStatus(status, now); err != nil {
		return nil, err
	}

	if previous != status && (status == domainbooking.StatusCancelled || status == domainbooking.StatusConfirmed) {
		calendar, err := unit.Availability().Calendar(ctx, property.ID)
		if err != nil {
			return nil, err
		}
		changed := false
		switch status {
		case domainbooking.StatusCancelled:
			changed = len(calendar.ReleaseBooking(string(booking.ID), now)) > 0
		case domainbooking.StatusConfirmed:
			_, changed, err = calendar.PromoteHold(domainavailability.BlockParams{
				ID:        domainavailability.BlockID(support.NewID()),
				Range:     booking.Range,
				BookingID: string(booking.ID),
				Platform:  externalPlatform(booking),
				Now:       now,
			})
			if err != nil {
				return nil, err
			}
		}
		if changed {
			if err := unit.Availability().Save(ctx, calendar); err != nil {
				return nil, err
			}
		}
		if err := support.Publish(ctx, h.Outbox, h.Encoder, calendar); err != nil {
			return nil, err
		}
	}

	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}
	if err := support.Publish(ctx, h.Outbox, h.Encoder, booking); err != nil {
		return nil, err
	}
	out := dto.MapBooking(booking)
	return &out, nil
}

var _ commands.Handler[UpdateBookingStatusCommand, *dto.Booking] = (*UpdateBookingStatusHandler)(nil)

func externalPlatform(b *domainbooking.Booking) channels.Platform {
	if b.Platform.IsExternal() {
		return b.Platform
	}
	return ""
}
