package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/IBM/sarama"

	appoutbox "staysync/internal/app/outbox"
	"staysync/internal/infra/broker/envelope"
)

// Deliverer runs the routed tasks of one event.
type Deliverer interface {
	Deliver(ctx context.Context, rec appoutbox.EventRecord) int
}

// TaskHandler feeds consumed messages into the task router. CloudEvents
// envelopes keep their event id; plain JSON on a topic listed in RawTopics
// becomes the mapped event with a partition/offset id.
type TaskHandler struct {
	Deliverer Deliverer
	RawTopics map[string]string
}

var ErrUnroutable = errors.New("kafka: message is neither a cloudevent nor on a raw topic")

func (h TaskHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	rec, err := h.record(msg)
	if err != nil {
		return err
	}
	if failed := h.Deliverer.Deliver(ctx, rec); failed > 0 {
		return fmt.Errorf("kafka: %d task(s) failed for %s", failed, rec.ID)
	}
	return nil
}

func (h TaskHandler) record(msg *sarama.ConsumerMessage) (appoutbox.EventRecord, error) {
	if name, ok := h.RawTopics[msg.Topic]; ok {
		if decoded, err := envelope.Decode(msg.Value); err == nil {
			return toRecord(decoded, string(msg.Key)), nil
		}
		return appoutbox.EventRecord{
			ID:         fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset),
			Name:       name,
			Payload:    msg.Value,
			OccurredAt: msg.Timestamp,
			Aggregate:  string(msg.Key),
			Headers:    headers(msg),
		}, nil
	}
	decoded, err := envelope.Decode(msg.Value)
	if err != nil {
		return appoutbox.EventRecord{}, fmt.Errorf("%w: %v", ErrUnroutable, err)
	}
	return toRecord(decoded, string(msg.Key)), nil
}

func toRecord(rec envelope.Record, key string) appoutbox.EventRecord {
	return appoutbox.EventRecord{
		ID:         rec.ID,
		Name:       rec.Name,
		Payload:    rec.Payload,
		OccurredAt: rec.OccurredAt,
		Aggregate:  key,
		Headers:    rec.Headers,
	}
}

func headers(msg *sarama.ConsumerMessage) map[string]string {
	out := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		if h != nil {
			out[string(h.Key)] = string(h.Value)
		}
	}
	return out
}
