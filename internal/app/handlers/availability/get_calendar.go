package availability

import (
	"context"

	"staysync/internal/app/dto"
	"staysync/internal/app/handlers/support"
	"staysync/internal/app/queries"
	"staysync/internal/app/uow"
	domainbooking "staysync/internal/domain/booking"
	domainproperties "staysync/internal/domain/properties"
)

const getCalendarKey = "availability.calendar"

// GetCalendarQuery returns a property's blocks and live bookings to its host.
type GetCalendarQuery struct {
	ActorID    string
	PropertyID string
}

func (q GetCalendarQuery) Key() string   { return getCalendarKey }
func (q GetCalendarQuery) Actor() string { return q.ActorID }

type GetCalendarHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetCalendarHandler) Handle(ctx context.Context, q GetCalendarQuery) (dto.Calendar, error) {
	unit, ctx, done, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Calendar{}, err
	}
	defer done()

	property, err := unit.Properties().ByID(ctx, domainproperties.PropertyID(q.PropertyID))
	if err != nil {
		return dto.Calendar{}, err
	}
	if !property.OwnedBy(q.ActorID) {
		return dto.Calendar{}, domainproperties.ErrNotOwner
	}
	calendar, err := unit.Availability().Calendar(ctx, property.ID)
	if err != nil {
		return dto.Calendar{}, err
	}
	bookings, err := unit.Bookings().ListByProperty(ctx, property.ID)
	if err != nil {
		return dto.Calendar{}, err
	}
	live := make([]*domainbooking.Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.IsActive() {
			live = append(live, b)
		}
	}

	out := dto.MapCalendar(calendar)
	out.Bookings = dto.MapBookings(live)
	return out, nil
}

var _ queries.Handler[GetCalendarQuery, dto.Calendar] = (*GetCalendarHandler)(nil)
