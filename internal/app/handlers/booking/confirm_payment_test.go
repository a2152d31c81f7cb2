package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staysync/internal/app/dto"
	domainavailability "staysync/internal/domain/availability"
	domainbooking "staysync/internal/domain/booking"
	"staysync/internal/domain/shared/fault"
)

func createPending(t *testing.T, f *fixture, checkIn, checkOut string) *CreateBookingResult {
	t.Helper()
	res, err := inUnit(f, func(ctx context.Context) (*CreateBookingResult, error) {
		return f.createHandler().Handle(ctx, createCommand(checkIn, checkOut))
	})
	require.NoError(t, err)
	return res
}

func confirm(f *fixture, bookingID string, amount int64) (*dto.Booking, error) {
	return inUnit(f, func(ctx context.Context) (*dto.Booking, error) {
		return f.confirmHandler().Handle(ctx, ConfirmPaymentCommand{BookingID: bookingID, TransactionID: "tx-1", AmountPaid: amount})
	})
}

func TestConfirmPaymentPromotesHold(t *testing.T) {
	f := newFixture(t)
	created := createPending(t, f, "2024-06-01", "2024-06-04")

	out, err := confirm(f, created.BookingID, 15800)
	require.NoError(t, err)
	assert.Equal(t, "confirmed", out.Status)
	assert.Equal(t, "paid", out.Payment.Status)

	cal, err := f.factory.AvailabilityRepo.Calendar(context.Background(), "prop-1")
	require.NoError(t, err)
	require.Len(t, cal.Blocks, 1)
	block := cal.Blocks[0]
	assert.False(t, block.Temporary)
	assert.Equal(t, domainavailability.ReasonBooked, block.Reason)
	assert.Equal(t, created.BookingID, block.BookingID)

	again, err := confirm(f, created.BookingID, 15800)
	require.NoError(t, err, "redelivered confirmation")
	assert.Equal(t, "paid", again.Payment.Status)
	cal, err = f.factory.AvailabilityRepo.Calendar(context.Background(), "prop-1")
	require.NoError(t, err)
	assert.Len(t, cal.Blocks, 1)
}

func TestConfirmPaymentShortAmountIsPartial(t *testing.T) {
	f := newFixture(t)
	created := createPending(t, f, "2024-06-01", "2024-06-04")
	out, err := confirm(f, created.BookingID, 7900)
	require.NoError(t, err)
	assert.Equal(t, "confirmed", out.Status)
	assert.Equal(t, "partial", out.Payment.Status)
	assert.Equal(t, int64(7900), out.Payment.AmountPaid.Amount)
}

func TestConfirmPaymentAfterHoldTakenFails(t *testing.T) {
	f := newFixture(t)
	created := createPending(t, f, "2024-06-10", "2024-06-15")

	ctx := context.Background()
	cal, err := f.factory.AvailabilityRepo.Calendar(ctx, "prop-1")
	require.NoError(t, err)
	released := cal.ReleaseExpired(testNow.Add(time.Hour))
	require.Len(t, released, 1)
	_, err = cal.Block(domainavailability.BlockParams{ID: "owner", Range: released[0].Range, Reason: domainavailability.ReasonOwnerBlock, Now: testNow})
	require.NoError(t, err)
	require.NoError(t, f.factory.AvailabilityRepo.Save(ctx, cal))

	_, err = confirm(f, created.BookingID, 15800)
	assert.ErrorIs(t, err, fault.ErrUnavailable)

	booking, err := f.factory.BookingsRepo.ByID(ctx, domainbooking.BookingID(created.BookingID))
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusPending, booking.Status)
	cal, err = f.factory.AvailabilityRepo.Calendar(ctx, "prop-1")
	require.NoError(t, err)
	require.Len(t, cal.Blocks, 1)
	assert.Equal(t, domainavailability.BlockID("owner"), cal.Blocks[0].ID)
}

func TestConfirmPaymentErrors(t *testing.T) {
	f := newFixture(t)
	_, err := confirm(f, "missing", 100)
	assert.ErrorIs(t, err, fault.ErrNotFound)

	created := createPending(t, f, "2024-06-01", "2024-06-04")
	_, err = inUnit(f, func(ctx context.Context) (*dto.Booking, error) {
		return f.statusHandler().Handle(ctx, UpdateBookingStatusCommand{ActorID: "host-1", BookingID: created.BookingID, Status: "cancelled"})
	})
	require.NoError(t, err)
	_, err = confirm(f, created.BookingID, 15800)
	assert.ErrorIs(t, err, fault.ErrInvalidTransition)
}

func TestUpdateStatusCancelReleasesBlocks(t *testing.T) {
	f := newFixture(t)
	created := createPending(t, f, "2024-06-01", "2024-06-04")
	_, err := confirm(f, created.BookingID, 15800)
	require.NoError(t, err)

	_, err = inUnit(f, func(ctx context.Context) (*dto.Booking, error) {
		return f.statusHandler().Handle(ctx, UpdateBookingStatusCommand{ActorID: "intruder", BookingID: created.BookingID, Status: "cancelled"})
	})
	assert.ErrorIs(t, err, fault.ErrUnauthorized)

	out, err := inUnit(f, func(ctx context.Context) (*dto.Booking, error) {
		return f.statusHandler().Handle(ctx, UpdateBookingStatusCommand{ActorID: "host-1", BookingID: created.BookingID, Status: "cancelled"})
	})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", out.Status)

	cal, err := f.factory.AvailabilityRepo.Calendar(context.Background(), "prop-1")
	require.NoError(t, err)
	assert.Empty(t, cal.Blocks)
}

func TestGetBookingVisibility(t *testing.T) {
	f := newFixture(t)
	created := createPending(t, f, "2024-06-01", "2024-06-04")
	h := &GetBookingHandler{UoWFactory: f.factory}

	for _, actor := range []string{"guest-1", "host-1"} {
		out, err := h.Handle(context.Background(), GetBookingQuery{ActorID: actor, BookingID: created.BookingID})
		require.NoError(t, err)
		assert.Equal(t, created.BookingID, out.ID)
	}
	_, err := h.Handle(context.Background(), GetBookingQuery{ActorID: "stranger", BookingID: created.BookingID})
	assert.ErrorIs(t, err, fault.ErrUnauthorized)
}
