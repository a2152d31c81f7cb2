package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"staysync/internal/app/outbox"
)

type mapInbox map[string]bool

func (m mapInbox) Processed(_ context.Context, eventID, task string) (bool, error) {
	return m[eventID+"/"+task], nil
}

func (m mapInbox) MarkProcessed(_ context.Context, eventID, task string) error {
	m[eventID+"/"+task] = true
	return nil
}

func TestDelivererSkipsProcessedRoutes(t *testing.T) {
	r := NewRouter()
	calls := map[string]int{}
	r.On("booking.created", "sync", func(context.Context, outbox.EventRecord) error {
		calls["sync"]++
		return nil
	})
	r.On("booking.created", "loyalty", func(context.Context, outbox.EventRecord) error {
		calls["loyalty"]++
		return errors.New("ledger down")
	})
	inbox := mapInbox{}
	d := &Deliverer{Router: r, Inbox: inbox, Backoff: []time.Duration{time.Millisecond}}
	rec := outbox.EventRecord{ID: "e1", Name: "booking.created"}

	assert.Equal(t, 1, d.Deliver(context.Background(), rec))
	assert.Equal(t, 1, calls["sync"])
	assert.Equal(t, 2, calls["loyalty"])

	assert.Equal(t, 1, d.Deliver(context.Background(), rec))
	assert.Equal(t, 1, calls["sync"], "processed route is skipped on redelivery")
	assert.Equal(t, 4, calls["loyalty"])
	assert.True(t, inbox["e1/sync"])
	assert.False(t, inbox["e1/loyalty"])
}
