package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staysync/internal/app/dto"
	domainbooking "staysync/internal/domain/booking"
	"staysync/internal/domain/shared/fault"
)

func TestConfirmAndCancelRaceLeavesConsistentCalendar(t *testing.T) {
	for i := 0; i < 10; i++ {
		f := newFixture(t)
		created := createPending(t, f, "2024-06-01", "2024-06-04")

		release, err := f.locker.Lock(context.Background(), "property:prop-1")
		require.NoError(t, err)

		var wg sync.WaitGroup
		var confirmErr, cancelErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, confirmErr = confirm(f, created.BookingID, 15800)
		}()
		go func() {
			defer wg.Done()
			_, cancelErr = inUnit(f, func(ctx context.Context) (*dto.Booking, error) {
				return f.statusHandler().Handle(ctx, UpdateBookingStatusCommand{ActorID: "host-1", BookingID: created.BookingID, Status: "cancelled"})
			})
		}()
		time.Sleep(20 * time.Millisecond)
		release()
		wg.Wait()

		require.NoError(t, cancelErr)
		if confirmErr != nil {
			assert.ErrorIs(t, confirmErr, fault.ErrInvalidTransition)
		}

		ctx := context.Background()
		booking, err := f.factory.BookingsRepo.ByID(ctx, domainbooking.BookingID(created.BookingID))
		require.NoError(t, err)
		assert.Equal(t, domainbooking.StatusCancelled, booking.Status)
		cal, err := f.factory.AvailabilityRepo.Calendar(ctx, "prop-1")
		require.NoError(t, err)
		_, booked := cal.BookedBlockFor(created.BookingID)
		assert.False(t, booked, "cancelled booking keeps a booked block")
		assert.Empty(t, cal.Blocks)
	}
}

func TestCancelledDatesCanBeRebooked(t *testing.T) {
	f := newFixture(t)
	first := createPending(t, f, "2024-06-01", "2024-06-04")
	_, err := confirm(f, first.BookingID, 15800)
	require.NoError(t, err)

	_, err = inUnit(f, func(ctx context.Context) (*CreateBookingResult, error) {
		return f.createHandler().Handle(ctx, createCommand("2024-06-02", "2024-06-05"))
	})
	require.ErrorIs(t, err, fault.ErrUnavailable)

	_, err = inUnit(f, func(ctx context.Context) (*dto.Booking, error) {
		return f.statusHandler().Handle(ctx, UpdateBookingStatusCommand{ActorID: "host-1", BookingID: first.BookingID, Status: "cancelled"})
	})
	require.NoError(t, err)

	second := createPending(t, f, "2024-06-02", "2024-06-05")
	out, err := confirm(f, second.BookingID, 15800)
	require.NoError(t, err)
	assert.Equal(t, "confirmed", out.Status)

	cal, err := f.factory.AvailabilityRepo.Calendar(context.Background(), "prop-1")
	require.NoError(t, err)
	block, ok := cal.BookedBlockFor(second.BookingID)
	require.True(t, ok)
	assert.Equal(t, "2024-06-02", block.Range.Start.Format("2006-01-02"))
}
