package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainbooking "staysync/internal/domain/booking"
	"staysync/internal/domain/channels"
	"staysync/internal/domain/synclog"
)

func TestSyncIsolatesPlatformFailures(t *testing.T) {
	f := newFixture(t)
	f.seedDirectBooking(t, "bk-1", "2024-06-01", "2024-06-04")
	f.gateway.failing[channels.Agoda] = -1

	report, err := f.engine().Handle(context.Background(), SyncBookingCommand{BookingID: "bk-1"})
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 3)

	entries, err := f.factory.SyncLogRepo.ListByBooking(context.Background(), "bk-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	statuses := map[channels.Platform]synclog.Status{}
	for _, e := range entries {
		assert.Equal(t, synclog.ActionBookingSync, e.Action)
		statuses[e.Platform] = e.Status
	}
	assert.Equal(t, synclog.StatusSuccess, statuses[channels.Airbnb])
	assert.Equal(t, synclog.StatusFailed, statuses[channels.Agoda])
	assert.Equal(t, synclog.StatusSuccess, statuses[channels.BookingCom])

	booking, err := f.factory.BookingsRepo.ByID(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.SyncSynced, booking.SyncStatus)
	assert.Equal(t, synclog.AggregateFailed, synclog.Aggregate(entries, channels.External()))
}

func TestSyncRedeliverySkipsAcknowledgedPlatforms(t *testing.T) {
	f := newFixture(t)
	f.seedDirectBooking(t, "bk-1", "2024-06-01", "2024-06-04")
	f.gateway.failing[channels.Agoda] = 1

	_, err := f.engine().Handle(context.Background(), SyncBookingCommand{BookingID: "bk-1"})
	require.NoError(t, err)
	report, err := f.engine().Handle(context.Background(), SyncBookingCommand{BookingID: "bk-1"})
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, channels.Agoda, report.Outcomes[0].Platform)
	assert.Equal(t, synclog.StatusSuccess, report.Outcomes[0].Status)
	assert.Equal(t, 1, f.gateway.callsFor(channels.Airbnb))
	assert.Equal(t, 2, f.gateway.callsFor(channels.Agoda))

	entries, err := f.factory.SyncLogRepo.ListByBooking(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, synclog.AggregateSynced, synclog.Aggregate(entries, channels.External()))
}

func TestSyncRetriesWithinOneRun(t *testing.T) {
	f := newFixture(t)
	f.seedDirectBooking(t, "bk-1", "2024-06-01", "2024-06-04")
	f.gateway.failing[channels.Airbnb] = 2
	engine := f.engine()
	engine.Retry = RetryPolicy{Backoff: []time.Duration{time.Millisecond, time.Millisecond}, CallTimeout: time.Second}

	report, err := engine.Handle(context.Background(), SyncBookingCommand{BookingID: "bk-1"})
	require.NoError(t, err)
	for _, o := range report.Outcomes {
		assert.Equal(t, synclog.StatusSuccess, o.Status, o.Platform)
	}
	assert.Equal(t, 3, f.gateway.callsFor(channels.Airbnb))
}

func TestSyncMissingBookingIsNoop(t *testing.T) {
	f := newFixture(t)
	report, err := f.engine().Handle(context.Background(), SyncBookingCommand{BookingID: "ghost"})
	require.NoError(t, err)
	assert.Empty(t, report.Outcomes)
	assert.Empty(t, f.gateway.calls)
}
