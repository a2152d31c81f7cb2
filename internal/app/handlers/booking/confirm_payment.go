package booking

import (
	"context"
	"fmt"
	"log/slog"

	"staysync/internal/app/commands"
	"staysync/internal/app/dto"
	availabilityapp "staysync/internal/app/handlers/availability"
	"staysync/internal/app/handlers/support"
	"staysync/internal/app/middleware"
	"staysync/internal/app/outbox"
	"staysync/internal/app/policies"
	"staysync/internal/app/uow"
	domainavailability "staysync/internal/domain/availability"
	domainbooking "staysync/internal/domain/booking"
	"staysync/internal/domain/shared/fault"
)

const confirmPaymentKey = "booking.confirm_payment"

// ConfirmPaymentCommand is the inbound payment-succeeded event.
type ConfirmPaymentCommand struct {
	BookingID       string
	TransactionID   string
	AmountPaid      int64
	IdempotencyKeyV string
}

func (c ConfirmPaymentCommand) Key() string            { return confirmPaymentKey }
func (c ConfirmPaymentCommand) IdempotencyKey() string { return c.IdempotencyKeyV }
func (c ConfirmPaymentCommand) ResultPrototype() any   { return &dto.Booking{} }

func (c ConfirmPaymentCommand) Fingerprint() string {
	return fmt.Sprintf("%s|%s|%d", c.BookingID, c.TransactionID, c.AmountPaid)
}

func (c ConfirmPaymentCommand) Validate() error {
	if c.BookingID == "" || c.TransactionID == "" {
		return fault.New("booking", "booking id and transaction id required", fault.ErrInvalidInput)
	}
	if c.AmountPaid < 0 {
		return fault.New("booking", "amount paid cannot be negative", fault.ErrInvalidInput)
	}
	return nil
}

type ConfirmPaymentHandler struct {
	Locker  policies.PropertyLocker
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   support.Clock
	Logger  *slog.Logger
}

func (h *ConfirmPaymentHandler) Handle(ctx context.Context, cmd ConfirmPaymentCommand) (*dto.Booking, error) {
	unit, err := support.CurrentUnit(ctx)
	if err != nil {
		return nil, err
	}
	booking, err := lockedBooking(ctx, unit, h.Locker, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	now := h.Clock.Now()
	if err := booking.ConfirmPayment(cmd.TransactionID, cmd.AmountPaid, now); err != nil {
		return nil, err
	}

	calendar, err := unit.Availability().Calendar(ctx, booking.PropertyID)
	if err != nil {
		return nil, err
	}
	_, created, err := calendar.PromoteHold(domainavailability.BlockParams{
		ID:        domainavailability.BlockID(support.NewID()),
		Range:     booking.Range,
		BookingID: string(booking.ID),
		Now:       now,
	})
	if err != nil {
		return nil, err
	}
	if created {
		if err := unit.Availability().Save(ctx, calendar); err != nil {
			return nil, err
		}
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}
	if err := support.Publish(ctx, h.Outbox, h.Encoder, calendar, booking); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("payment confirmed", "booking_id", booking.ID, "payment_status", booking.Payment.Status, "block_created", created)
	}
	out := dto.MapBooking(booking)
	return &out, nil
}

// lockedBooking takes the property lock and then re-reads the booking, so
// its state cannot change between the read and the save.
func lockedBooking(ctx context.Context, unit uow.UnitOfWork, locker policies.PropertyLocker, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	booking, err := unit.Bookings().ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := availabilityapp.LockProperty(ctx, locker, booking.PropertyID); err != nil {
		return nil, err
	}
	return unit.Bookings().ByID(ctx, id)
}

var _ commands.Handler[ConfirmPaymentCommand, *dto.Booking] = (*ConfirmPaymentHandler)(nil)
var _ middleware.IdempotentCommand = (*ConfirmPaymentCommand)(nil)
