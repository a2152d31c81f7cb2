package booking

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"staysync/internal/app/commands"
	"staysync/internal/app/dto"
	availabilityapp "staysync/internal/app/handlers/availability"
	"staysync/internal/app/handlers/support"
	"staysync/internal/app/middleware"
	"staysync/internal/app/outbox"
	"staysync/internal/app/policies"
	domainavailability "staysync/internal/domain/availability"
	domainbooking "staysync/internal/domain/booking"
	domainpricing "staysync/internal/domain/pricing"
	domainproperties "staysync/internal/domain/properties"
	"staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/fault"
)

const createBookingKey = "booking.create"

// DefaultHoldTTL is how long a direct booking keeps its dates while payment is in flight.
const DefaultHoldTTL = 15 * time.Minute

type CreateBookingCommand struct {
	CommandID       string
	GuestID         string
	PropertyID      string
	CheckIn         string
	CheckOut        string
	Guests          dto.Guests
	GuestDetails    dto.GuestDetails
	PaymentMethod   string
	PaymentType     string
	IdempotencyKeyV string
}

func (c CreateBookingCommand) Key() string            { return createBookingKey }
func (c CreateBookingCommand) Actor() string          { return c.GuestID }
func (c CreateBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }
func (c CreateBookingCommand) ResultPrototype() any   { return &CreateBookingResult{} }

// Fingerprint identifies the stay being requested; guest details may vary
// between retries.
func (c CreateBookingCommand) Fingerprint() string {
	return strings.Join([]string{c.GuestID, c.PropertyID, c.CheckIn, c.CheckOut, c.PaymentType}, "|")
}

func (c CreateBookingCommand) Validate() error {
	if c.PropertyID == "" {
		return fault.New("booking", "property id required", fault.ErrInvalidInput)
	}
	if _, err := daterange.Parse(c.CheckIn, c.CheckOut); err != nil {
		return fault.Wrap(fault.ErrInvalidInput, "booking: %v", err)
	}
	_, err := domainpricing.ParsePaymentType(c.PaymentType)
	return err
}

type CreateBookingResult struct {
	BookingID     string             `json:"booking_id"`
	Status        string             `json:"status"`
	AmountToPay   dto.MoneyDTO       `json:"amount_to_pay"`
	Price         dto.PriceBreakdown `json:"price"`
	HoldExpiresAt time.Time          `json:"hold_expires_at"`
}

type CreateBookingHandler struct {
	Locker  policies.PropertyLocker
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	HoldTTL time.Duration
	Clock   support.Clock
	Logger  *slog.Logger
}

func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*CreateBookingResult, error) {
	if cmd.GuestID == "" {
		return nil, domainbooking.ErrGuestRequired
	}
	unit, err := support.CurrentUnit(ctx)
	if err != nil {
		return nil, err
	}
	r, err := daterange.Parse(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, fault.Wrap(fault.ErrInvalidInput, "booking: %v", err)
	}
	now := h.Clock.Now()
	if err := domainbooking.ValidateStay(r, now); err != nil {
		return nil, err
	}
	paymentType, err := domainpricing.ParsePaymentType(cmd.PaymentType)
	if err != nil {
		return nil, err
	}
	propertyID := domainproperties.PropertyID(cmd.PropertyID)

	if err := availabilityapp.LockProperty(ctx, h.Locker, propertyID); err != nil {
		return nil, err
	}
	calendar, err := unit.Availability().Calendar(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if res := calendar.Check(r); !res.Available {
		return nil, &domainavailability.ConflictError{Range: r, Conflicts: res.Conflicts}
	}

	property, err := unit.Properties().ByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if err := property.EnsureBookable(); err != nil {
		return nil, err
	}
	quote, err := domainpricing.Calculate(property.Pricing, r)
	if err != nil {
		return nil, err
	}

	bookingID := cmd.CommandID
	if bookingID == "" {
		bookingID = support.NewID()
	}
	booking, err := domainbooking.NewDirect(domainbooking.DirectParams{
		ID:         domainbooking.BookingID(bookingID),
		PropertyID: property.ID,
		GuestID:    cmd.GuestID,
		Range:      r,
		Guests: domainbooking.Guests{
			Adults:   cmd.Guests.Adults,
			Children: cmd.Guests.Children,
			Pets:     cmd.Guests.Pets,
		},
		GuestDetails: domainbooking.GuestDetails{
			Name:            cmd.GuestDetails.Name,
			Email:           cmd.GuestDetails.Email,
			Phone:           cmd.GuestDetails.Phone,
			SpecialRequests: cmd.GuestDetails.SpecialRequests,
		},
		Price:         quote,
		PaymentMethod: cmd.PaymentMethod,
		PaymentType:   paymentType,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	hold, err := calendar.PlaceHold(domainavailability.HoldParams{
		ID:        domainavailability.BlockID(support.NewID()),
		BookingID: bookingID,
		Range:     r,
		TTL:       h.holdTTL(),
		Now:       now,
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
	if err := support.Publish(ctx, h.Outbox, h.Encoder, calendar, booking); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.Info("booking created", "booking_id", bookingID, "property_id", property.ID, "range", r.String(), "hold_expires_at", hold.ExpiresAt)
	}
	return &CreateBookingResult{
		BookingID:     bookingID,
		Status:        string(booking.Status),
		AmountToPay:   dto.MapMoney(booking.Payment.AmountDue),
		Price:         dto.MapQuote(quote),
		HoldExpiresAt: hold.ExpiresAt,
	}, nil
}

func (h *CreateBookingHandler) holdTTL() time.Duration {
	if h.HoldTTL > 0 {
		return h.HoldTTL
	}
	return DefaultHoldTTL
}

var _ commands.Handler[CreateBookingCommand, *CreateBookingResult] = (*CreateBookingHandler)(nil)
var _ middleware.IdempotentCommand = (*CreateBookingCommand)(nil)
