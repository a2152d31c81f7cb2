package dto

import (
	"time"

	"staysync/internal/domain/availability"
	"staysync/internal/domain/shared/daterange"
)

type CalendarBlock struct {
	ID        string     `json:"id"`
	From      string     `json:"from"`
	To        string     `json:"to"`
	Reason    string     `json:"reason"`
	Temporary bool       `json:"temporary"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Platform  string     `json:"platform,omitempty"`
	BookingID string     `json:"booking_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func MapBlock(b availability.DateBlock) CalendarBlock {
	out := CalendarBlock{
		ID:        string(b.ID),
		From:      b.Range.Start.Format(daterange.Layout),
		To:        b.Range.End.Format(daterange.Layout),
		Reason:    string(b.Reason),
		Temporary: b.Temporary,
		Platform:  string(b.Platform),
		BookingID: b.BookingID,
		CreatedAt: b.CreatedAt,
	}
	if b.Temporary {
		expires := b.ExpiresAt
		out.ExpiresAt = &expires
	}
	return out
}

func MapBlocks(blocks []availability.DateBlock) []CalendarBlock {
	out := make([]CalendarBlock, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, MapBlock(b))
	}
	return out
}

type Availability struct {
	PropertyID string          `json:"property_id"`
	CheckIn    string          `json:"check_in"`
	CheckOut   string          `json:"check_out"`
	Available  bool            `json:"available"`
	Conflicts  []CalendarBlock `json:"conflicts"`
}

type Calendar struct {
	PropertyID string          `json:"property_id"`
	Blocks     []CalendarBlock `json:"blocks"`
	Bookings   []Booking       `json:"bookings"`
	Version    int64           `json:"version"`
}

func MapCalendar(cal *availability.Calendar) Calendar {
	if cal == nil {
		return Calendar{}
	}
	return Calendar{PropertyID: string(cal.PropertyID), Blocks: MapBlocks(cal.Blocks), Version: cal.Version}
}
