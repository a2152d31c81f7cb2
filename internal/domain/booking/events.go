package booking

import (
	"time"

	"staysync/internal/domain/channels"
	"staysync/internal/domain/properties"
	"staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/money"
)

// Event names consumed by background tasks.
const (
	EventCreated          = "booking.created"
	EventIngested         = "booking.ingested"
	EventPaymentConfirmed = "booking.payment_confirmed"
	EventStatusChanged    = "booking.status_changed"
	EventResyncRequested  = "booking.resync_requested"
)

type Created struct {
	BookingID     BookingID             `json:"booking_id"`
	PropertyID    properties.PropertyID `json:"property_id"`
	GuestID       string                `json:"guest_id"`
	Range         daterange.Range       `json:"range"`
	Total         money.Money           `json:"total"`
	LoyaltyPoints int64                 `json:"loyalty_points"`
	At            time.Time             `json:"at"`
}

func (e Created) EventName() string     { return EventCreated }
func (e Created) AggregateID() string   { return string(e.BookingID) }
func (e Created) OccurredAt() time.Time { return e.At }

type Ingested struct {
	BookingID         BookingID             `json:"booking_id"`
	PropertyID        properties.PropertyID `json:"property_id"`
	Platform          channels.Platform     `json:"platform"`
	PlatformBookingID string                `json:"platform_booking_id"`
	Range             daterange.Range       `json:"range"`
	At                time.Time             `json:"at"`
}

func (e Ingested) EventName() string     { return EventIngested }
func (e Ingested) AggregateID() string   { return string(e.BookingID) }
func (e Ingested) OccurredAt() time.Time { return e.At }

type PaymentConfirmed struct {
	BookingID     BookingID             `json:"booking_id"`
	PropertyID    properties.PropertyID `json:"property_id"`
	TransactionID string                `json:"transaction_id"`
	AmountPaid    money.Money           `json:"amount_paid"`
	PaymentStatus PaymentStatus         `json:"payment_status"`
	At            time.Time             `json:"at"`
}

func (e PaymentConfirmed) EventName() string     { return EventPaymentConfirmed }
func (e PaymentConfirmed) AggregateID() string   { return string(e.BookingID) }
func (e PaymentConfirmed) OccurredAt() time.Time { return e.At }

type StatusChanged struct {
	BookingID BookingID `json:"booking_id"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	At        time.Time `json:"at"`
}

func (e StatusChanged) EventName() string     { return EventStatusChanged }
func (e StatusChanged) AggregateID() string   { return string(e.BookingID) }
func (e StatusChanged) OccurredAt() time.Time { return e.At }

type ResyncRequested struct {
	BookingID  BookingID             `json:"booking_id"`
	PropertyID properties.PropertyID `json:"property_id"`
	At         time.Time             `json:"at"`
}

func (e ResyncRequested) EventName() string     { return EventResyncRequested }
func (e ResyncRequested) AggregateID() string   { return string(e.BookingID) }
func (e ResyncRequested) OccurredAt() time.Time { return e.At }
