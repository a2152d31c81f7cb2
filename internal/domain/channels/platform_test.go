package channels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	p, err := Parse(" Airbnb ")
	require.NoError(t, err)
	assert.Equal(t, Airbnb, p)

	_, err = ParseExternal("direct")
	assert.ErrorIs(t, err, ErrUnknownPlatform)
	_, err = Parse("vrbo")
	assert.ErrorIs(t, err, ErrUnknownPlatform)
}

func TestConnectionsPresence(t *testing.T) {
	conns := Connections{}.With(BookingCom, "bk-1").With(Airbnb, "air-1").With(Agoda, "")

	assert.Equal(t, []Platform{Airbnb, BookingCom}, conns.Platforms())
	assert.False(t, conns.Connected(Agoda))

	id, ok := conns.ID(Airbnb)
	assert.True(t, ok)
	assert.Equal(t, "air-1", id)

	without := conns.Without(Airbnb)
	assert.False(t, without.Connected(Airbnb))
	assert.True(t, conns.Connected(Airbnb), "original must stay untouched")
}
