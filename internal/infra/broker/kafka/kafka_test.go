package kafka

import (
	"context"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "staysync/internal/app/outbox"
	"staysync/internal/infra/broker/envelope"
)

type recordingDeliverer struct {
	records []appoutbox.EventRecord
	failed  int
}

func (d *recordingDeliverer) Deliver(_ context.Context, rec appoutbox.EventRecord) int {
	d.records = append(d.records, rec)
	return d.failed
}

func TestTaskHandlerDecodesEnvelope(t *testing.T) {
	payload, _, err := envelope.Encode(envelope.Record{ID: "evt-1", Name: "booking.created", Payload: []byte(`{"booking_id":"bk-1"}`)}, "test")
	require.NoError(t, err)
	d := &recordingDeliverer{}
	h := TaskHandler{Deliverer: d}

	require.NoError(t, h.Handle(context.Background(), &sarama.ConsumerMessage{Topic: "booking.events.v1", Key: []byte("bk-1"), Value: payload}))
	require.Len(t, d.records, 1)
	assert.Equal(t, "evt-1", d.records[0].ID)
	assert.Equal(t, "booking.created", d.records[0].Name)
	assert.Equal(t, "bk-1", d.records[0].Aggregate)
}

func TestTaskHandlerMapsRawChannelTopic(t *testing.T) {
	d := &recordingDeliverer{}
	h := TaskHandler{Deliverer: d, RawTopics: map[string]string{"channel.bookings.v1": "channel.booking_created"}}
	msg := &sarama.ConsumerMessage{Topic: "channel.bookings.v1", Partition: 2, Offset: 41, Value: []byte(`{"platform":"airbnb"}`)}

	require.NoError(t, h.Handle(context.Background(), msg))
	require.Len(t, d.records, 1)
	assert.Equal(t, "channel.booking_created", d.records[0].Name)
	assert.Equal(t, "channel.bookings.v1/2/41", d.records[0].ID)

	err := h.Handle(context.Background(), &sarama.ConsumerMessage{Topic: "other", Value: []byte(`{}`)})
	assert.ErrorIs(t, err, ErrUnroutable)

	d.failed = 1
	assert.Error(t, h.Handle(context.Background(), msg))
}

func TestProducerPublishesWithHeaders(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	mock := mocks.NewSyncProducer(t, cfg)
	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		assert.JSONEq(t, `{"ok":true}`, string(val))
		return nil
	})
	p := NewProducerFrom(mock)
	require.NoError(t, p.Publish(context.Background(), "booking.events.v1", "bk-1", []byte(`{"ok":true}`), map[string]string{"content-type": envelope.ContentType}))
	require.NoError(t, p.Close())
}
