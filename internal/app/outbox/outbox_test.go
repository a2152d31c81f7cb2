package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staysync/internal/domain/shared/events"
)

type blockAdded struct {
	BlockID string    `json:"block_id"`
	At      time.Time `json:"at"`
}

func (e blockAdded) EventName() string     { return "availability.block_added" }
func (e blockAdded) AggregateID() string   { return e.BlockID }
func (e blockAdded) OccurredAt() time.Time { return e.At }

type sliceOutbox struct{ records []EventRecord }

func (s *sliceOutbox) Add(_ context.Context, rec EventRecord) error {
	s.records = append(s.records, rec)
	return nil
}

func (s *sliceOutbox) Flush(context.Context) error { return nil }

func TestRecordDomainEventsInheritsContextHeaders(t *testing.T) {
	at := time.Date(2024, 6, 1, 9, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	box := &sliceOutbox{}
	ctx := WithHeaders(context.Background(), map[string]string{HeaderRequestID: "req-1"})
	ctx = WithHeaders(ctx, map[string]string{"traceparent": "00-abc"})

	ids := []string{"evt-1", "evt-2"}
	encoder := JSONEventEncoder{IDGenerator: func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}}
	err := RecordDomainEvents(ctx, box, encoder, []events.DomainEvent{
		blockAdded{BlockID: "blk-1", At: at},
		blockAdded{BlockID: "blk-2", At: at},
	})
	require.NoError(t, err)

	require.Len(t, box.records, 2)
	first := box.records[0]
	assert.Equal(t, "evt-1", first.ID)
	assert.Equal(t, "availability.block_added", first.Name)
	assert.Equal(t, "blk-1", first.Aggregate)
	assert.Equal(t, time.UTC, first.OccurredAt.Location())
	assert.Equal(t, "req-1", first.Headers[HeaderRequestID])
	assert.Equal(t, "00-abc", first.Headers["traceparent"])

	decoded, err := Decode[blockAdded](box.records[1])
	require.NoError(t, err)
	assert.Equal(t, "blk-2", decoded.BlockID)

	_, err = Decode[blockAdded](EventRecord{ID: "bad", Name: "x", Payload: []byte("{")})
	assert.ErrorContains(t, err, "decode x bad")
}

func TestRecordDomainEventsWithoutOutbox(t *testing.T) {
	assert.NoError(t, RecordDomainEvents(context.Background(), nil, nil, []events.DomainEvent{blockAdded{}}))
	assert.Nil(t, HeadersFromContext(context.Background()))
}
