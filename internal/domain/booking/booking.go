package booking

import (
	"context"
	"time"

	"staysync/internal/domain/channels"
	"staysync/internal/domain/pricing"
	"staysync/internal/domain/properties"
	"staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/events"
	"staysync/internal/domain/shared/fault"
	"staysync/internal/domain/shared/money"
)

var (
	ErrNotFound           = fault.New("booking", "not found", fault.ErrNotFound)
	ErrInvalidState       = fault.New("booking", "invalid state transition", fault.ErrInvalidTransition)
	ErrGuestRequired      = fault.New("booking", "guest id required", fault.ErrUnauthenticated)
	ErrInvalidGuests      = fault.New("booking", "at least one adult is required", fault.ErrInvalidInput)
	ErrInvalidStatus      = fault.New("booking", "unknown status", fault.ErrInvalidInput)
	ErrConcurrentUpdate   = fault.New("booking", "booking changed concurrently", fault.ErrUnavailable)
	ErrDuplicateReference = fault.New("booking", "platform booking already recorded", fault.ErrUnavailable)
)

// ExternalPaymentMethod marks bookings paid on the originating platform.
const ExternalPaymentMethod = "external"

type BookingID string

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

func ParseStatus(raw string) (Status, error) {
	switch s := Status(raw); s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return s, nil
	}
	return "", ErrInvalidStatus
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPartial  PaymentStatus = "partial"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSynced  SyncStatus = "synced"
	SyncFailed  SyncStatus = "failed"
)

type Guests struct {
	Adults   int
	Children int
	Pets     int
}

// DefaultExternalGuests is used when a platform does not report party size.
var DefaultExternalGuests = Guests{Adults: 2}

type GuestDetails struct {
	Name            string
	Email           string
	Phone           string
	SpecialRequests string
}

type Payment struct {
	Method        string
	Type          pricing.PaymentType
	Status        PaymentStatus
	AmountDue     money.Money
	AmountPaid    money.Money
	TransactionID string
	PaidAt        time.Time
}

type Booking struct {
	ID                BookingID
	PropertyID        properties.PropertyID
	GuestID           string
	Range             daterange.Range
	Guests            Guests
	GuestDetails      GuestDetails
	Price             pricing.Quote
	Status            Status
	Payment           Payment
	Platform          channels.Platform
	PlatformBookingID string
	SyncStatus        SyncStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Version           int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	// ByPlatformReference finds the booking ingested from platform under ref.
	ByPlatformReference(ctx context.Context, platform channels.Platform, ref string) (*Booking, error)
	ListByProperty(ctx context.Context, id properties.PropertyID) ([]*Booking, error)
	// Save fails with ErrConcurrentUpdate when the stored version moved and
	// with ErrDuplicateReference when (platform, ref) is already taken.
	Save(ctx context.Context, b *Booking) error
}

type DirectParams struct {
	ID            BookingID
	PropertyID    properties.PropertyID
	GuestID       string
	Range         daterange.Range
	Guests        Guests
	GuestDetails  GuestDetails
	Price         pricing.Quote
	PaymentMethod string
	PaymentType   pricing.PaymentType
	Now           time.Time
}

// NewDirect opens a pending booking awaiting payment.
func NewDirect(p DirectParams) (*Booking, error) {
	if p.GuestID == "" {
		return nil, ErrGuestRequired
	}
	if p.Guests.Adults < 1 || p.Guests.Children < 0 || p.Guests.Pets < 0 {
		return nil, ErrInvalidGuests
	}
	due, err := p.Price.AmountDue(p.PaymentType)
	if err != nil {
		return nil, err
	}
	now := p.Now.UTC()
	b := &Booking{
		ID:           p.ID,
		PropertyID:   p.PropertyID,
		GuestID:      p.GuestID,
		Range:        p.Range,
		Guests:       p.Guests,
		GuestDetails: p.GuestDetails,
		Price:        p.Price,
		Status:       StatusPending,
		Payment: Payment{
			Method:     p.PaymentMethod,
			Type:       p.PaymentType,
			Status:     PaymentPending,
			AmountDue:  due,
			AmountPaid: money.Money{Currency: due.Currency},
		},
		Platform:   channels.Direct,
		SyncStatus: SyncPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	b.Record(Created{
		BookingID:     b.ID,
		PropertyID:    b.PropertyID,
		GuestID:       b.GuestID,
		Range:         b.Range,
		Total:         b.Price.Total,
		LoyaltyPoints: pricing.LoyaltyPoints(b.Price.Total),
		At:            now,
	})
	return b, nil
}

type ExternalParams struct {
	ID                BookingID
	PropertyID        properties.PropertyID
	HostID            properties.HostID
	Platform          channels.Platform
	PlatformBookingID string
	Range             daterange.Range
	GuestDetails      GuestDetails
	Price             pricing.Quote
	Now               time.Time
}

// NewExternal records a booking already confirmed and paid on its platform.
// The guest id is the property's host until platform guests are mapped.
func NewExternal(p ExternalParams) (*Booking, error) {
	if !p.Platform.IsExternal() {
		return nil, channels.ErrUnknownPlatform
	}
	if p.PlatformBookingID == "" {
		return nil, fault.New("booking", "platform booking id required", fault.ErrInvalidInput)
	}
	now := p.Now.UTC()
	b := &Booking{
		ID:           p.ID,
		PropertyID:   p.PropertyID,
		GuestID:      string(p.HostID),
		Range:        p.Range,
		Guests:       DefaultExternalGuests,
		GuestDetails: p.GuestDetails,
		Price:        p.Price,
		Status:       StatusConfirmed,
		Payment: Payment{
			Method:     ExternalPaymentMethod,
			Type:       pricing.PaymentFull,
			Status:     PaymentPaid,
			AmountDue:  p.Price.Total,
			AmountPaid: p.Price.Total,
			PaidAt:     now,
		},
		Platform:          p.Platform,
		PlatformBookingID: p.PlatformBookingID,
		SyncStatus:        SyncSynced,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	b.Record(Ingested{
		BookingID:         b.ID,
		PropertyID:        b.PropertyID,
		Platform:          b.Platform,
		PlatformBookingID: b.PlatformBookingID,
		Range:             b.Range,
		At:                now,
	})
	return b, nil
}

// ConfirmPayment records a payment and confirms the booking. A payment short
// of the total still confirms the booking with a partial payment status.
func (b *Booking) ConfirmPayment(transactionID string, amountPaid int64, now time.Time) error {
	if b.Status == StatusCancelled || b.Status == StatusCompleted {
		return ErrInvalidState
	}
	if amountPaid < 0 {
		return fault.New("booking", "amount paid cannot be negative", fault.ErrInvalidInput)
	}
	status := PaymentPartial
	if amountPaid >= b.Price.Total.Amount {
		status = PaymentPaid
	}
	b.UpdatedAt = now.UTC()
	b.Payment.Status = status
	b.Payment.AmountPaid = money.Money{Amount: amountPaid, Currency: b.Price.Total.Currency}
	b.Payment.TransactionID = transactionID
	b.Payment.PaidAt = b.UpdatedAt
	previous := b.Status
	b.Status = StatusConfirmed
	b.Record(PaymentConfirmed{
		BookingID:     b.ID,
		PropertyID:    b.PropertyID,
		TransactionID: transactionID,
		AmountPaid:    b.Payment.AmountPaid,
		PaymentStatus: status,
		At:            b.UpdatedAt,
	})
	if previous != StatusConfirmed {
		b.Record(StatusChanged{BookingID: b.ID, From: previous, To: StatusConfirmed, At: b.UpdatedAt})
	}
	return nil
}

// UpdateStatus applies a host-driven transition.
func (b *Booking) UpdateStatus(to Status, now time.Time) error {
	if b.Status == to {
		return nil
	}
	if !canTransition(b.Status, to) {
		return ErrInvalidState
	}
	from := b.Status
	b.Status = to
	b.UpdatedAt = now.UTC()
	b.Record(StatusChanged{BookingID: b.ID, From: from, To: to, At: b.UpdatedAt})
	return nil
}

// AbandonHold cancels a booking whose payment hold expired unpaid.
func (b *Booking) AbandonHold(now time.Time) bool {
	if b.Status != StatusPending || b.Payment.Status != PaymentPending {
		return false
	}
	_ = b.UpdateStatus(StatusCancelled, now)
	return true
}

// MarkSynced records that every connected platform has been attempted.
func (b *Booking) MarkSynced(now time.Time) {
	b.SyncStatus = SyncSynced
	b.UpdatedAt = now.UTC()
}

// RequestResync marks the booking for another propagation round.
func (b *Booking) RequestResync(now time.Time) error {
	if b.Status == StatusCancelled {
		return ErrInvalidState
	}
	b.SyncStatus = SyncPending
	b.UpdatedAt = now.UTC()
	b.Record(ResyncRequested{BookingID: b.ID, PropertyID: b.PropertyID, At: b.UpdatedAt})
	return nil
}

// IsActive reports whether the booking still occupies its dates.
func (b *Booking) IsActive() bool {
	return b.Status != StatusCancelled
}

func (b *Booking) Clone() *Booking {
	clone := *b
	clone.EventRecorder = events.EventRecorder{}
	return &clone
}

func canTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusCancelled || to == StatusCompleted
	}
	return false
}
