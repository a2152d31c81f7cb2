package envelope

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeKeepsRecordIdentity(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	payload, headers, err := Encode(Record{
		ID:         "evt-1",
		Name:       "booking.created",
		Payload:    []byte(`{"booking_id":"bk-1"}`),
		OccurredAt: at,
		Headers:    map[string]string{"traceparent": "00-abc"},
	}, "app://staysync")
	require.NoError(t, err)
	assert.Equal(t, ContentType, headers["content-type"])

	rec, err := Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, "evt-1", rec.ID)
	assert.Equal(t, "booking.created", rec.Name)
	assert.JSONEq(t, `{"booking_id":"bk-1"}`, string(rec.Payload))
	assert.True(t, at.Equal(rec.OccurredAt))
	assert.Equal(t, "00-abc", rec.Headers["traceparent"])
}

func TestDecodeRejectsPlainJSON(t *testing.T) {
	_, err := Decode([]byte(`{"platform":"airbnb"}`))
	assert.ErrorIs(t, err, ErrNotCloudEvent)

	_, _, err = Encode(Record{ID: "x", Name: "a.b", Payload: []byte("nope")}, "")
	assert.Error(t, err)
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "booking.events.v1", Topic("", "booking.created"))
	assert.Equal(t, "dev.channel.events.v1", Topic("dev.", "channel.booking_created"))
}
