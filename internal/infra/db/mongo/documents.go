package mongo

import (
	"time"

	domainavailability "staysync/internal/domain/availability"
	domainbooking "staysync/internal/domain/booking"
	"staysync/internal/domain/channels"
	domainpricing "staysync/internal/domain/pricing"
	domainproperties "staysync/internal/domain/properties"
	"staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/money"
	domainsynclog "staysync/internal/domain/synclog"
)

type rangeDocument struct {
	Start time.Time `bson:"start"`
	End   time.Time `bson:"end"`
}

func newRangeDocument(r daterange.Range) rangeDocument {
	return rangeDocument{Start: r.Start, End: r.End}
}

func (d rangeDocument) toRange() daterange.Range {
	return daterange.Range{Start: d.Start.UTC(), End: d.End.UTC()}
}

type connectionDocument struct {
	Platform   string `bson:"platform"`
	ExternalID string `bson:"external_id"`
}

type pricingDocument struct {
	BasePrice   int64  `bson:"base_price"`
	CleaningFee int64  `bson:"cleaning_fee"`
	ServiceFee  int64  `bson:"service_fee"`
	Currency    string `bson:"currency"`
}

type propertyDocument struct {
	ID          string               `bson:"_id"`
	HostID      string               `bson:"host_id"`
	Title       string               `bson:"title"`
	Pricing     pricingDocument      `bson:"pricing"`
	Connections []connectionDocument `bson:"connections"`
	Status      string               `bson:"status"`
	CreatedAt   time.Time            `bson:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at"`
	Version     int64                `bson:"version"`
}

func newPropertyDocument(p *domainproperties.Property) propertyDocument {
	conns := make([]connectionDocument, 0, len(p.Connections))
	for _, platform := range p.Connections.Platforms() {
		id, _ := p.Connections.ID(platform)
		conns = append(conns, connectionDocument{Platform: string(platform), ExternalID: id})
	}
	return propertyDocument{
		ID:     string(p.ID),
		HostID: string(p.HostID),
		Title:  p.Title,
		Pricing: pricingDocument{
			BasePrice:   p.Pricing.BasePrice,
			CleaningFee: p.Pricing.CleaningFee,
			ServiceFee:  p.Pricing.ServiceFee,
			Currency:    p.Pricing.Currency,
		},
		Connections: conns,
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		Version:     p.Version,
	}
}

func (d propertyDocument) toAggregate() *domainproperties.Property {
	conns := make(channels.Connections, len(d.Connections))
	for _, c := range d.Connections {
		conns[channels.Platform(c.Platform)] = c.ExternalID
	}
	return &domainproperties.Property{
		ID:     domainproperties.PropertyID(d.ID),
		HostID: domainproperties.HostID(d.HostID),
		Title:  d.Title,
		Pricing: domainproperties.Pricing{
			BasePrice:   d.Pricing.BasePrice,
			CleaningFee: d.Pricing.CleaningFee,
			ServiceFee:  d.Pricing.ServiceFee,
			Currency:    d.Pricing.Currency,
		},
		Connections: conns,
		Status:      domainproperties.Status(d.Status),
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
		Version:     d.Version,
	}
}

type blockDocument struct {
	ID        string        `bson:"id"`
	Range     rangeDocument `bson:"range"`
	Reason    string        `bson:"reason"`
	Temporary bool          `bson:"temporary"`
	ExpiresAt *time.Time    `bson:"expires_at,omitempty"`
	Platform  string        `bson:"platform,omitempty"`
	BookingID string        `bson:"booking_id,omitempty"`
	CreatedAt time.Time     `bson:"created_at"`
}

// calendarDocument stores every block of a property in one document so a
// calendar write is a single-document compare-and-swap on version.
type calendarDocument struct {
	ID      string          `bson:"_id"`
	Blocks  []blockDocument `bson:"blocks"`
	Version int64           `bson:"version"`
}

func newCalendarDocument(c *domainavailability.Calendar) calendarDocument {
	blocks := make([]blockDocument, 0, len(c.Blocks))
	for _, b := range c.Blocks {
		doc := blockDocument{
			ID:        string(b.ID),
			Range:     newRangeDocument(b.Range),
			Reason:    string(b.Reason),
			Temporary: b.Temporary,
			Platform:  string(b.Platform),
			BookingID: b.BookingID,
			CreatedAt: b.CreatedAt,
		}
		if b.Temporary {
			expires := b.ExpiresAt
			doc.ExpiresAt = &expires
		}
		blocks = append(blocks, doc)
	}
	return calendarDocument{ID: string(c.PropertyID), Blocks: blocks, Version: c.Version}
}

func (d calendarDocument) toAggregate() *domainavailability.Calendar {
	cal := domainavailability.NewCalendar(domainproperties.PropertyID(d.ID))
	cal.Version = d.Version
	for _, b := range d.Blocks {
		cal.Blocks = append(cal.Blocks, d.block(b))
	}
	return cal
}

func (d calendarDocument) block(b blockDocument) domainavailability.DateBlock {
	block := domainavailability.DateBlock{
		ID:         domainavailability.BlockID(b.ID),
		PropertyID: domainproperties.PropertyID(d.ID),
		Range:      b.Range.toRange(),
		Reason:     domainavailability.Reason(b.Reason),
		Temporary:  b.Temporary,
		Platform:   channels.Platform(b.Platform),
		BookingID:  b.BookingID,
		CreatedAt:  b.CreatedAt.UTC(),
	}
	if b.ExpiresAt != nil {
		block.ExpiresAt = b.ExpiresAt.UTC()
	}
	return block
}

type quoteDocument struct {
	Nights      int         `bson:"nights"`
	BasePrice   money.Money `bson:"base_price"`
	Subtotal    money.Money `bson:"subtotal"`
	CleaningFee money.Money `bson:"cleaning_fee"`
	ServiceFee  money.Money `bson:"service_fee"`
	Total       money.Money `bson:"total"`
}

type paymentDocument struct {
	Method        string      `bson:"method"`
	Type          string      `bson:"type"`
	Status        string      `bson:"status"`
	AmountDue     money.Money `bson:"amount_due"`
	AmountPaid    money.Money `bson:"amount_paid"`
	TransactionID string      `bson:"transaction_id,omitempty"`
	PaidAt        *time.Time  `bson:"paid_at,omitempty"`
}

type guestsDocument struct {
	Adults   int `bson:"adults"`
	Children int `bson:"children"`
	Pets     int `bson:"pets"`
}

type guestDetailsDocument struct {
	Name            string `bson:"name"`
	Email           string `bson:"email"`
	Phone           string `bson:"phone"`
	SpecialRequests string `bson:"special_requests,omitempty"`
}

type bookingDocument struct {
	ID                string               `bson:"_id"`
	PropertyID        string               `bson:"property_id"`
	GuestID           string               `bson:"guest_id"`
	Range             rangeDocument        `bson:"range"`
	Guests            guestsDocument       `bson:"guests"`
	GuestDetails      guestDetailsDocument `bson:"guest_details"`
	Price             quoteDocument        `bson:"price"`
	Status            string               `bson:"status"`
	Payment           paymentDocument      `bson:"payment"`
	Platform          string               `bson:"platform"`
	PlatformBookingID string               `bson:"platform_booking_id,omitempty"`
	SyncStatus        string               `bson:"sync_status"`
	CreatedAt         time.Time            `bson:"created_at"`
	UpdatedAt         time.Time            `bson:"updated_at"`
	Version           int64                `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	doc := bookingDocument{
		ID:         string(b.ID),
		PropertyID: string(b.PropertyID),
		GuestID:    b.GuestID,
		Range:      newRangeDocument(b.Range),
		Guests:     guestsDocument{Adults: b.Guests.Adults, Children: b.Guests.Children, Pets: b.Guests.Pets},
		GuestDetails: guestDetailsDocument{
			Name:            b.GuestDetails.Name,
			Email:           b.GuestDetails.Email,
			Phone:           b.GuestDetails.Phone,
			SpecialRequests: b.GuestDetails.SpecialRequests,
		},
		Price: quoteDocument{
			Nights:      b.Price.Nights,
			BasePrice:   b.Price.BasePrice,
			Subtotal:    b.Price.Subtotal,
			CleaningFee: b.Price.CleaningFee,
			ServiceFee:  b.Price.ServiceFee,
			Total:       b.Price.Total,
		},
		Status: string(b.Status),
		Payment: paymentDocument{
			Method:        b.Payment.Method,
			Type:          string(b.Payment.Type),
			Status:        string(b.Payment.Status),
			AmountDue:     b.Payment.AmountDue,
			AmountPaid:    b.Payment.AmountPaid,
			TransactionID: b.Payment.TransactionID,
		},
		Platform:          string(b.Platform),
		PlatformBookingID: b.PlatformBookingID,
		SyncStatus:        string(b.SyncStatus),
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
		Version:           b.Version,
	}
	if !b.Payment.PaidAt.IsZero() {
		paid := b.Payment.PaidAt
		doc.Payment.PaidAt = &paid
	}
	return doc
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	b := &domainbooking.Booking{
		ID:         domainbooking.BookingID(d.ID),
		PropertyID: domainproperties.PropertyID(d.PropertyID),
		GuestID:    d.GuestID,
		Range:      d.Range.toRange(),
		Guests:     domainbooking.Guests{Adults: d.Guests.Adults, Children: d.Guests.Children, Pets: d.Guests.Pets},
		GuestDetails: domainbooking.GuestDetails{
			Name:            d.GuestDetails.Name,
			Email:           d.GuestDetails.Email,
			Phone:           d.GuestDetails.Phone,
			SpecialRequests: d.GuestDetails.SpecialRequests,
		},
		Price: domainpricing.Quote{
			Nights:      d.Price.Nights,
			BasePrice:   d.Price.BasePrice,
			Subtotal:    d.Price.Subtotal,
			CleaningFee: d.Price.CleaningFee,
			ServiceFee:  d.Price.ServiceFee,
			Total:       d.Price.Total,
		},
		Status: domainbooking.Status(d.Status),
		Payment: domainbooking.Payment{
			Method:        d.Payment.Method,
			Type:          domainpricing.PaymentType(d.Payment.Type),
			Status:        domainbooking.PaymentStatus(d.Payment.Status),
			AmountDue:     d.Payment.AmountDue,
			AmountPaid:    d.Payment.AmountPaid,
			TransactionID: d.Payment.TransactionID,
		},
		Platform:          channels.Platform(d.Platform),
		PlatformBookingID: d.PlatformBookingID,
		SyncStatus:        domainbooking.SyncStatus(d.SyncStatus),
		CreatedAt:         d.CreatedAt.UTC(),
		UpdatedAt:         d.UpdatedAt.UTC(),
		Version:           d.Version,
	}
	if d.Payment.PaidAt != nil {
		b.Payment.PaidAt = d.Payment.PaidAt.UTC()
	}
	return b
}

type syncLogDocument struct {
	ID         string    `bson:"_id"`
	PropertyID string    `bson:"property_id"`
	BookingID  string    `bson:"booking_id,omitempty"`
	Platform   string    `bson:"platform"`
	Action     string    `bson:"action"`
	Status     string    `bson:"status"`
	Message    string    `bson:"message,omitempty"`
	Error      string    `bson:"error,omitempty"`
	CreatedAt  time.Time `bson:"created_at"`
}

func newSyncLogDocument(e domainsynclog.Entry) syncLogDocument {
	return syncLogDocument{
		ID:         e.ID,
		PropertyID: string(e.PropertyID),
		BookingID:  e.BookingID,
		Platform:   string(e.Platform),
		Action:     string(e.Action),
		Status:     string(e.Status),
		Message:    e.Message,
		Error:      e.Error,
		CreatedAt:  e.CreatedAt,
	}
}

func (d syncLogDocument) toEntry() domainsynclog.Entry {
	return domainsynclog.Entry{
		ID:         d.ID,
		PropertyID: domainproperties.PropertyID(d.PropertyID),
		BookingID:  d.BookingID,
		Platform:   channels.Platform(d.Platform),
		Action:     domainsynclog.Action(d.Action),
		Status:     domainsynclog.Status(d.Status),
		Message:    d.Message,
		Error:      d.Error,
		CreatedAt:  d.CreatedAt.UTC(),
	}
}
