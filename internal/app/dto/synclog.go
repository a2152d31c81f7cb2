package dto

import (
	"time"

	"staysync/internal/domain/synclog"
)

type SyncLogEntry struct {
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

type SyncLog struct {
	Entries []SyncLogEntry `json:"entries"`
	// StrictStatus is set for booking-scoped queries.
	StrictStatus string `json:"strict_status,omitempty"`
}

func MapSyncEntries(entries []synclog.Entry) []SyncLogEntry {
	out := make([]SyncLogEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, SyncLogEntry{
			ID:         e.ID,
			PropertyID: string(e.PropertyID),
			BookingID:  e.BookingID,
			Platform:   string(e.Platform),
			Action:     string(e.Action),
			Status:     string(e.Status),
			Message:    e.Message,
			Error:      e.Error,
			CreatedAt:  e.CreatedAt,
		})
	}
	return out
}
