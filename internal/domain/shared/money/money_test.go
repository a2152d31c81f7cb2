package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArithmetic(t *testing.T) {
	base := Must(5000, "usd")
	assert.Equal(t, "USD", base.Currency)

	sum, err := base.Multiply(3).Add(Must(800, "USD"))
	require.NoError(t, err)
	assert.Equal(t, int64(15800), sum.Amount)
	assert.Equal(t, int64(7900), sum.HalfUp().Amount)
	assert.Equal(t, int64(8), Must(15, "USD").HalfUp().Amount)

	_, err = base.Add(Must(1, "EUR"))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	_, err = New(-1, "USD")
	assert.ErrorIs(t, err, ErrNegativeAmount)
	_, err = New(1, "US")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}
