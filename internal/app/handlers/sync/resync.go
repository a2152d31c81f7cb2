package sync

import (
	"context"

	"staysync/internal/app/commands"
	"staysync/internal/app/dto"
	"staysync/internal/app/handlers/support"
	"staysync/internal/app/outbox"
	domainbooking "staysync/internal/domain/booking"
	domainproperties "staysync/internal/domain/properties"
)

const resyncKey = "sync.resync"

// ResyncBookingCommand asks for another propagation round for a booking.
// An empty ActorID is allowed only for operator tooling.
type ResyncBookingCommand struct {
	ActorID   string
	BookingID string
	Operator  bool
}

func (c ResyncBookingCommand) Key() string { return resyncKey }

type ResyncHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   support.Clock
}

func (h *ResyncHandler) Handle(ctx context.Context, cmd ResyncBookingCommand) (*dto.Booking, error) {
	unit, err := support.CurrentUnit(ctx)
	if err != nil {
		return nil, err
	}
	booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	if !cmd.Operator {
		property, err := unit.Properties().ByID(ctx, booking.PropertyID)
		if err != nil {
			return nil, err
		}
		if !property.OwnedBy(cmd.ActorID) {
			return nil, domainproperties.ErrNotOwner
		}
	}
	if err := booking.RequestResync(h.Clock.Now()); err != nil {
		return nil, err
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

var _ commands.Handler[ResyncBookingCommand, *dto.Booking] = (*ResyncHandler)(nil)
