package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	sarama.ConsumerGroupSession
	ctx    context.Context
	marked []int64
}

func (s *fakeSession) Context() context.Context { return s.ctx }

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	messages chan *sarama.ConsumerMessage
}

func (c fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

type flakyHandler struct{ seen []int64 }

func (h *flakyHandler) Handle(_ context.Context, msg *sarama.ConsumerMessage) error {
	h.seen = append(h.seen, msg.Offset)
	if msg.Offset == 1 {
		return errors.New("task failed")
	}
	return nil
}

func TestClaimHandlerMarksEveryMessage(t *testing.T) {
	claim := fakeClaim{messages: make(chan *sarama.ConsumerMessage, 3)}
	for i := int64(0); i < 3; i++ {
		claim.messages <- &sarama.ConsumerMessage{Topic: "booking.events.v1", Offset: i}
	}
	close(claim.messages)
	sess := &fakeSession{ctx: context.Background()}
	handler := &flakyHandler{}

	h := claimHandler{handler: handler, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	require.NoError(t, h.ConsumeClaim(sess, claim))

	assert.Equal(t, []int64{0, 1, 2}, handler.seen)
	assert.Equal(t, []int64{0, 1, 2}, sess.marked)
}

func TestClaimHandlerStopsWithSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sess := &fakeSession{ctx: ctx}
	h := claimHandler{handler: &flakyHandler{}, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	assert.NoError(t, h.ConsumeClaim(sess, fakeClaim{messages: make(chan *sarama.ConsumerMessage)}))
	assert.Empty(t, sess.marked)
}

func TestNewConsumerRequiresHandler(t *testing.T) {
	_, err := NewConsumer([]string{"localhost:9092"}, "staysync", nil, nil, nil)
	assert.Error(t, err)
}
