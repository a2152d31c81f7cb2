package synclog

import (
	"context"
	"sort"
	"time"

	"staysync/internal/domain/channels"
	"staysync/internal/domain/properties"
)

type Action string

const (
	ActionBookingSync    Action = "booking_sync"
	ActionCalendarUpdate Action = "calendar_update"
	ActionAvailability   Action = "availability_check"
	ActionPriceUpdate    Action = "price_update"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusPending Status = "pending"
)

// Entry is one append-only record of an interaction with a platform.
type Entry struct {
	ID         string
	PropertyID properties.PropertyID
	BookingID  string
	Platform   channels.Platform
	Action     Action
	Status     Status
	Message    string
	Error      string
	CreatedAt  time.Time
}

type Repository interface {
	Append(ctx context.Context, entry Entry) error
	// ListByProperty returns newest first; limit <= 0 means no limit.
	ListByProperty(ctx context.Context, id properties.PropertyID, limit int) ([]Entry, error)
	ListByBooking(ctx context.Context, bookingID string) ([]Entry, error)
}

// Pruner removes entries older than cutoff. archive sees them first; when it
// fails nothing is removed.
type Pruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time, archive func(context.Context, []Entry) error) (int, error)
}

// Succeeded reports whether platform already acknowledged the booking.
func Succeeded(entries []Entry, bookingID string, platform channels.Platform) bool {
	for _, e := range entries {
		if e.BookingID == bookingID && e.Platform == platform && e.Action == ActionBookingSync && e.Status == StatusSuccess {
			return true
		}
	}
	return false
}

// AggregateStatus is the strict per-booking outcome across platforms.
type AggregateStatus string

const (
	AggregatePending AggregateStatus = "pending"
	AggregateSynced  AggregateStatus = "synced"
	AggregateFailed  AggregateStatus = "failed"
)

// Aggregate derives a strict status from the latest booking_sync entry of
// each expected platform: any failure wins, a missing or pending platform is
// pending.
func Aggregate(entries []Entry, expected []channels.Platform) AggregateStatus {
	latest := make(map[channels.Platform]Entry)
	sorted := append([]Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.Before(sorted[j].CreatedAt) })
	for _, e := range sorted {
		if e.Action != ActionBookingSync {
			continue
		}
		latest[e.Platform] = e
	}
	status := AggregateSynced
	for _, p := range expected {
		e, ok := latest[p]
		switch {
		case !ok, e.Status == StatusPending:
			if status != AggregateFailed {
				status = AggregatePending
			}
		case e.Status == StatusFailed:
			status = AggregateFailed
		}
	}
	return status
}

// NewestFirst orders entries by creation time, newest first.
func NewestFirst(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })
}
