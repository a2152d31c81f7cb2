package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staysync/internal/app/outbox"
)

func TestRouterDeliversToEveryRoute(t *testing.T) {
	r := NewRouter()
	var seen []string
	r.On("booking.created", "sync", func(ctx context.Context, rec outbox.EventRecord) error {
		seen = append(seen, "sync:"+rec.ID)
		return errors.New("platform down")
	})
	r.On("booking.created", "loyalty", func(ctx context.Context, rec outbox.EventRecord) error {
		seen = append(seen, "loyalty:"+rec.ID)
		return nil
	})

	err := r.Deliver(context.Background(), outbox.EventRecord{ID: "e1", Name: "booking.created"})
	require.Error(t, err)
	assert.Equal(t, []string{"sync:e1", "loyalty:e1"}, seen)

	assert.NoError(t, r.Deliver(context.Background(), outbox.EventRecord{ID: "e2", Name: "unrouted"}))
	assert.Equal(t, []string{"booking.created"}, r.Events())
}

func TestRouterRejectsDuplicateTask(t *testing.T) {
	r := NewRouter()
	noop := func(context.Context, outbox.EventRecord) error { return nil }
	r.On("booking.created", "sync", noop)
	assert.Panics(t, func() { r.On("booking.created", "sync", noop) })
}
