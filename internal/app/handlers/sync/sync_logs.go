package sync

import (
	"context"

	"staysync/internal/app/dto"
	"staysync/internal/app/handlers/support"
	"staysync/internal/app/queries"
	"staysync/internal/app/uow"
	domainbooking "staysync/internal/domain/booking"
	"staysync/internal/domain/channels"
	domainproperties "staysync/internal/domain/properties"
	"staysync/internal/domain/synclog"
)

const syncLogKey = "sync.log"

const defaultLogLimit = 100

// SyncLogQuery lists a property's sync log, or one booking's when BookingID is set.
type SyncLogQuery struct {
	ActorID    string
	PropertyID string
	BookingID  string
	Limit      int
}

func (q SyncLogQuery) Key() string   { return syncLogKey }
func (q SyncLogQuery) Actor() string { return q.ActorID }

type SyncLogHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *SyncLogHandler) Handle(ctx context.Context, q SyncLogQuery) (dto.SyncLog, error) {
	unit, ctx, done, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.SyncLog{}, err
	}
	defer done()

	if q.BookingID != "" {
		booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(q.BookingID))
		if err != nil {
			return dto.SyncLog{}, err
		}
		property, err := ownedProperty(ctx, unit, booking.PropertyID, q.ActorID)
		if err != nil {
			return dto.SyncLog{}, err
		}
		entries, err := unit.SyncLog().ListByBooking(ctx, q.BookingID)
		if err != nil {
			return dto.SyncLog{}, err
		}
		synclog.NewestFirst(entries)
		return dto.SyncLog{
			Entries:      dto.MapSyncEntries(entries),
			StrictStatus: string(synclog.Aggregate(entries, expectedPlatforms(property, booking))),
		}, nil
	}

	if _, err := ownedProperty(ctx, unit, domainproperties.PropertyID(q.PropertyID), q.ActorID); err != nil {
		return dto.SyncLog{}, err
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLogLimit
	}
	entries, err := unit.SyncLog().ListByProperty(ctx, domainproperties.PropertyID(q.PropertyID), limit)
	if err != nil {
		return dto.SyncLog{}, err
	}
	return dto.SyncLog{Entries: dto.MapSyncEntries(entries)}, nil
}

func ownedProperty(ctx context.Context, unit uow.UnitOfWork, id domainproperties.PropertyID, actor string) (*domainproperties.Property, error) {
	property, err := unit.Properties().ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !property.OwnedBy(actor) {
		return nil, domainproperties.ErrNotOwner
	}
	return property, nil
}

// expectedPlatforms lists the connected platforms a booking must reach.
func expectedPlatforms(property *domainproperties.Property, booking *domainbooking.Booking) []channels.Platform {
	var out []channels.Platform
	for _, p := range property.Connections.Platforms() {
		if p != booking.Platform {
			out = append(out, p)
		}
	}
	return out
}

var _ queries.Handler[SyncLogQuery, dto.SyncLog] = (*SyncLogHandler)(nil)
