package booking

import (
	"context"

	"staysync/internal/app/dto"
	"staysync/internal/app/handlers/support"
	"staysync/internal/app/queries"
	"staysync/internal/app/uow"
	domainbooking "staysync/internal/domain/booking"
	domainproperties "staysync/internal/domain/properties"
)

const getBookingKey = "booking.get"

// GetBookingQuery is answered for the booking's guest and the property's host.
type GetBookingQuery struct {
	ActorID   string
	BookingID string
}

func (q GetBookingQuery) Key() string   { return getBookingKey }
func (q GetBookingQuery) Actor() string { return q.ActorID }

type GetBookingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (dto.Booking, error) {
	unit, ctx, done, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Booking{}, err
	}
	defer done()

	booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(q.BookingID))
	if err != nil {
		return dto.Booking{}, err
	}
	if booking.GuestID != q.ActorID {
		property, err := unit.Properties().ByID(ctx, booking.PropertyID)
		if err != nil {
			return dto.Booking{}, err
		}
		if !property.OwnedBy(q.ActorID) {
			return dto.Booking{}, domainproperties.ErrNotOwner
		}
	}
	return dto.MapBooking(booking), nil
}

var _ queries.Handler[GetBookingQuery, dto.Booking] = (*GetBookingHandler)(nil)
