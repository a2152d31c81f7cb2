package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	domainsynclog "staysync/internal/domain/synclog"
)

// Archiver moves sync log entries older than Retention into the bucket as
// one NDJSON object per run, then prunes them from the primary store.
type Archiver struct {
	Pruner    domainsynclog.Pruner
	Store     ObjectStore
	Retention time.Duration
	Clock     func() time.Time
	Logger    *slog.Logger
}

type archivedEntry struct {
	ID         string    `json:"id"`
	PropertyID string    `json:"property_id"`
	BookingID  string    `json:"booking_id,omitempty"`
	Platform   string    `json:"platform"`
	Action     string    `json:"action"`
	Status     string    `json:"status"`
	Message    string    `json:"message,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Run archives one batch and reports how many entries were pruned.
func (a *Archiver) Run(ctx context.Context) (int, error) {
	if a.Retention <= 0 || a.Pruner == nil || a.Store == nil {
		return 0, nil
	}
	now := time.Now().UTC()
	if a.Clock != nil {
		now = a.Clock().UTC()
	}
	cutoff := now.Add(-a.Retention)
	n, err := a.Pruner.PruneBefore(ctx, cutoff, func(ctx context.Context, entries []domainsynclog.Entry) error {
		body, err := encode(entries)
		if err != nil {
			return err
		}
		return a.Store.Put(ctx, objectKey(now), bytes.NewReader(body), int64(len(body)), "application/x-ndjson")
	})
	if err != nil {
		return 0, fmt.Errorf("s3: archive sync log: %w", err)
	}
	if n > 0 && a.Logger != nil {
		a.Logger.Info("sync log archived", "entries", n, "cutoff", cutoff)
	}
	return n, nil
}

func encode(entries []domainsynclog.Entry) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range entries {
		if err := enc.Encode(archivedEntry{
			ID:         e.ID,
			PropertyID: string(e.PropertyID),
			BookingID:  e.BookingID,
			Platform:   string(e.Platform),
			Action:     string(e.Action),
			Status:     string(e.Status),
			Message:    e.Message,
			Error:      e.Error,
			CreatedAt:  e.CreatedAt,
		}); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func objectKey(at time.Time) string {
	return fmt.Sprintf("synclog/%s/%s.ndjson", at.Format("2006/01/02"), at.Format("150405.000000000"))
}
