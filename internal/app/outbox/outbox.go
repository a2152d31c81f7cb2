// Package outbox records domain events inside the unit that produced them so
// calendar sync and ingestion tasks only ever see committed changes.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"

	"staysync/internal/domain/shared/events"
)

// HeaderRequestID carries the id of the HTTP request that caused an event.
const HeaderRequestID = "x-request-id"

// EventRecord is a serialized domain event waiting for delivery.
type EventRecord struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
}

type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
	Flush(ctx context.Context) error
}

type EventEncoder interface {
	Encode(ev events.DomainEvent) (EventRecord, error)
}

// JSONEventEncoder stores the event struct itself as the payload.
type JSONEventEncoder struct {
	IDGenerator func() string
}

func (e JSONEventEncoder) Encode(ev events.DomainEvent) (EventRecord, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, fmt.Errorf("encode %s: %w", ev.EventName(), err)
	}
	newID := e.IDGenerator
	if newID == nil {
		newID = uuid.NewString
	}
	return EventRecord{
		ID:         newID(),
		Name:       ev.EventName(),
		Payload:    payload,
		OccurredAt: ev.OccurredAt().UTC(),
		Aggregate:  ev.AggregateID(),
		Headers:    map[string]string{},
	}, nil
}

type headersKey struct{}

// WithHeaders attaches headers that every event recorded under ctx inherits.
func WithHeaders(ctx context.Context, headers map[string]string) context.Context {
	merged := maps.Clone(HeadersFromContext(ctx))
	if merged == nil {
		merged = make(map[string]string, len(headers))
	}
	maps.Copy(merged, headers)
	return context.WithValue(ctx, headersKey{}, merged)
}

func HeadersFromContext(ctx context.Context) map[string]string {
	h, _ := ctx.Value(headersKey{}).(map[string]string)
	return h
}

// RecordDomainEvents encodes evs in order and adds them to box.
func RecordDomainEvents(ctx context.Context, box Outbox, encoder EventEncoder, evs []events.DomainEvent) error {
	if box == nil || len(evs) == 0 {
		return nil
	}
	if encoder == nil {
		encoder = JSONEventEncoder{}
	}
	inherited := HeadersFromContext(ctx)
	for _, ev := range evs {
		rec, err := encoder.Encode(ev)
		if err != nil {
			return err
		}
		if len(inherited) > 0 {
			if rec.Headers == nil {
				rec.Headers = make(map[string]string, len(inherited))
			}
			for k, v := range inherited {
				if _, set := rec.Headers[k]; !set {
					rec.Headers[k] = v
				}
			}
		}
		if err := box.Add(ctx, rec); err != nil {
			return fmt.Errorf("record %s: %w", rec.Name, err)
		}
	}
	return nil
}

// Decode unmarshals a record payload into T.
func Decode[T any](rec EventRecord) (T, error) {
	var out T
	if err := json.Unmarshal(rec.Payload, &out); err != nil {
		return out, fmt.Errorf("decode %s %s: %w", rec.Name, rec.ID, err)
	}
	return out, nil
}
