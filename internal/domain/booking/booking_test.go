package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staysync/internal/domain/channels"
	"staysync/internal/domain/pricing"
	"staysync/internal/domain/properties"
	"staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/fault"
)

var (
	stay = daterange.MustParse("2024-06-01", "2024-06-04")
	now  = time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)
)

func quote(t *testing.T) pricing.Quote {
	t.Helper()
	q, err := pricing.Calculate(properties.Pricing{BasePrice: 5000, CleaningFee: 500, ServiceFee: 300, Currency: "USD"}, stay)
	require.NoError(t, err)
	return q
}

func newDirect(t *testing.T, paymentType pricing.PaymentType) *Booking {
	t.Helper()
	b, err := NewDirect(DirectParams{
		ID:            "bk-1",
		PropertyID:    "prop-1",
		GuestID:       "guest-1",
		Range:         stay,
		Guests:        Guests{Adults: 2},
		Price:         quote(t),
		PaymentMethod: "card",
		PaymentType:   paymentType,
		Now:           now,
	})
	require.NoError(t, err)
	return b
}

func TestNewDirectIsPending(t *testing.T) {
	b := newDirect(t, pricing.PaymentPartial)

	assert.Equal(t, StatusPending, b.Status)
	assert.Equal(t, PaymentPending, b.Payment.Status)
	assert.Equal(t, SyncPending, b.SyncStatus)
	assert.Equal(t, channels.Direct, b.Platform)
	assert.Equal(t, int64(7900), b.Payment.AmountDue.Amount)

	evs := b.Drain()
	require.Len(t, evs, 1)
	created, ok := evs[0].(Created)
	require.True(t, ok)
	assert.Equal(t, int64(158), created.LoyaltyPoints)
}

func TestNewDirectRequiresGuest(t *testing.T) {
	_, err := NewDirect(DirectParams{ID: "bk", Range: stay, Guests: Guests{Adults: 1}, Price: quote(t), PaymentType: pricing.PaymentFull})
	assert.ErrorIs(t, err, fault.ErrUnauthenticated)

	_, err = NewDirect(DirectParams{ID: "bk", GuestID: "g", Range: stay, Price: quote(t), PaymentType: pricing.PaymentFull})
	assert.ErrorIs(t, err, ErrInvalidGuests)
}

func TestConfirmPayment(t *testing.T) {
	t.Run("full amount marks paid", func(t *testing.T) {
		b := newDirect(t, pricing.PaymentFull)
		require.NoError(t, b.ConfirmPayment("tx-1", 15800, now))
		assert.Equal(t, StatusConfirmed, b.Status)
		assert.Equal(t, PaymentPaid, b.Payment.Status)
		assert.Equal(t, "tx-1", b.Payment.TransactionID)
	})
	t.Run("short amount still confirms", func(t *testing.T) {
		b := newDirect(t, pricing.PaymentPartial)
		require.NoError(t, b.ConfirmPayment("tx-2", 7900, now))
		assert.Equal(t, StatusConfirmed, b.Status)
		assert.Equal(t, PaymentPartial, b.Payment.Status)
		assert.Equal(t, int64(7900), b.Payment.AmountPaid.Amount)
	})
	t.Run("cancelled booking rejects payment", func(t *testing.T) {
		b := newDirect(t, pricing.PaymentFull)
		require.NoError(t, b.UpdateStatus(StatusCancelled, now))
		assert.ErrorIs(t, b.ConfirmPayment("tx-3", 15800, now), fault.ErrInvalidTransition)
	})
}

func TestUpdateStatusTransitions(t *testing.T) {
	b := newDirect(t, pricing.PaymentFull)
	assert.ErrorIs(t, b.UpdateStatus(StatusCompleted, now), ErrInvalidState)
	require.NoError(t, b.UpdateStatus(StatusConfirmed, now))
	require.NoError(t, b.UpdateStatus(StatusConfirmed, now))
	require.NoError(t, b.UpdateStatus(StatusCompleted, now))
	assert.ErrorIs(t, b.UpdateStatus(StatusPending, now), ErrInvalidState)
}

func TestAbandonHold(t *testing.T) {
	b := newDirect(t, pricing.PaymentFull)
	assert.True(t, b.AbandonHold(now))
	assert.Equal(t, StatusCancelled, b.Status)
	assert.False(t, b.AbandonHold(now))

	paid := newDirect(t, pricing.PaymentFull)
	require.NoError(t, paid.ConfirmPayment("tx", 15800, now))
	assert.False(t, paid.AbandonHold(now))
}

func TestNewExternal(t *testing.T) {
	b, err := NewExternal(ExternalParams{
		ID:                "bk-ext",
		PropertyID:        "prop-1",
		HostID:            "host-1",
		Platform:          channels.Airbnb,
		PlatformBookingID: "AIR-123",
		Range:             stay,
		Price:             quote(t),
		Now:               now,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, b.Status)
	assert.Equal(t, PaymentPaid, b.Payment.Status)
	assert.Equal(t, ExternalPaymentMethod, b.Payment.Method)
	assert.Equal(t, SyncSynced, b.SyncStatus)
	assert.Equal(t, "host-1", b.GuestID)
	assert.Equal(t, DefaultExternalGuests, b.Guests)
	assert.Equal(t, b.Price.Total, b.Payment.AmountPaid)

	_, err = NewExternal(ExternalParams{ID: "x", Platform: channels.Direct, PlatformBookingID: "1", Range: stay, Price: quote(t)})
	assert.ErrorIs(t, err, channels.ErrUnknownPlatform)
}

func TestValidateStay(t *testing.T) {
	assert.NoError(t, ValidateStay(stay, now))
	assert.ErrorIs(t, ValidateStay(stay, time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)), ErrCheckInInPast)
}
