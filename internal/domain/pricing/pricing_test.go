package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staysync/internal/domain/properties"
	"staysync/internal/domain/shared/daterange"
)

var cabin = properties.Pricing{BasePrice: 5000, CleaningFee: 500, ServiceFee: 300, Currency: "USD"}

func TestCalculateThreeNights(t *testing.T) {
	q, err := Calculate(cabin, daterange.MustParse("2024-06-01", "2024-06-04"))
	require.NoError(t, err)

	assert.Equal(t, 3, q.Nights)
	assert.Equal(t, int64(15000), q.Subtotal.Amount)
	assert.Equal(t, int64(15800), q.Total.Amount)

	full, err := q.AmountDue(PaymentFull)
	require.NoError(t, err)
	assert.Equal(t, int64(15800), full.Amount)

	partial, err := q.AmountDue(PaymentPartial)
	require.NoError(t, err)
	assert.Equal(t, int64(7900), partial.Amount)

	assert.Equal(t, int64(158), LoyaltyPoints(q.Total))
}

func TestCalculateIsDeterministic(t *testing.T) {
	r := daterange.MustParse("2024-07-01", "2024-07-08")
	a, err := Calculate(cabin, r)
	require.NoError(t, err)
	b, err := Calculate(cabin, r)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCalculateRejectsSameDayStay(t *testing.T) {
	_, err := Calculate(cabin, daterange.MustParse("2024-06-01", "2024-06-01"))
	assert.ErrorIs(t, err, ErrNoNights)
}

func TestPartialRoundsUp(t *testing.T) {
	q, err := Calculate(properties.Pricing{BasePrice: 101, Currency: "USD"}, daterange.MustParse("2024-06-01", "2024-06-02"))
	require.NoError(t, err)
	due, err := q.AmountDue(PaymentPartial)
	require.NoError(t, err)
	assert.Equal(t, int64(51), due.Amount)

	_, err = q.AmountDue("installments")
	assert.ErrorIs(t, err, ErrUnknownPaymentType)
}

func TestParsePaymentType(t *testing.T) {
	pt, err := ParsePaymentType("")
	require.NoError(t, err)
	assert.Equal(t, PaymentFull, pt)
	_, err = ParsePaymentType("later")
	assert.ErrorIs(t, err, ErrUnknownPaymentType)
}
