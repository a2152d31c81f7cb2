// Package envelope converts event records to and from CloudEvents JSON as
// carried on the broker.
package envelope

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	SpecVersion = "1.0"
	ContentType = "application/cloudevents+json"
	typeSuffix  = ".v1"
)

var ErrNotCloudEvent = errors.New("envelope: payload is not a cloudevent")

// Record is the broker-facing view of an outbox record.
type Record struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Headers    map[string]string
}

type cloudEvent struct {
	SpecVersion     string          `json:"specversion"`
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	Source          string          `json:"source"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	Data            json.RawMessage `json:"data"`
	TraceParent     string          `json:"traceparent,omitempty"`
}

// Encode wraps rec in a CloudEvents envelope. The envelope id is the record
// id, so consumers deduplicate on it across redeliveries.
func Encode(rec Record, source string) ([]byte, map[string]string, error) {
	if !json.Valid(rec.Payload) {
		return nil, nil, errors.New("envelope: record payload is not json")
	}
	evt := cloudEvent{
		SpecVersion:     SpecVersion,
		ID:              rec.ID,
		Type:            rec.Name + typeSuffix,
		Source:          source,
		Time:            rec.OccurredAt.UTC(),
		DataContentType: "application/json",
		Data:            json.RawMessage(rec.Payload),
		TraceParent:     rec.Headers["traceparent"],
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{"content-type": ContentType}
	for k, v := range rec.Headers {
		headers[k] = v
	}
	return payload, headers, nil
}

// Decode unwraps a CloudEvents envelope produced by Encode.
func Decode(payload []byte) (Record, error) {
	var evt cloudEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return Record{}, err
	}
	if evt.SpecVersion == "" || evt.ID == "" || evt.Type == "" {
		return Record{}, ErrNotCloudEvent
	}
	rec := Record{
		ID:         evt.ID,
		Name:       strings.TrimSuffix(evt.Type, typeSuffix),
		Payload:    []byte(evt.Data),
		OccurredAt: evt.Time,
		Headers:    map[string]string{},
	}
	if evt.TraceParent != "" {
		rec.Headers["traceparent"] = evt.TraceParent
	}
	return rec, nil
}

// Topic names the topic an event is published on: the event's aggregate
// prefix followed by ".events.v1".
func Topic(prefix, name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	return prefix + base + ".events" + typeSuffix
}
