package synclog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"staysync/internal/domain/channels"
)

func entry(platform channels.Platform, status Status, at time.Time) Entry {
	return Entry{BookingID: "bk-1", Platform: platform, Action: ActionBookingSync, Status: status, CreatedAt: at}
}

func TestAggregate(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	expected := []channels.Platform{channels.Airbnb, channels.BookingCom}

	assert.Equal(t, AggregatePending, Aggregate(nil, expected))
	assert.Equal(t, AggregateSynced, Aggregate(nil, nil))

	mixed := []Entry{
		entry(channels.Airbnb, StatusSuccess, t0),
		entry(channels.BookingCom, StatusFailed, t0),
	}
	assert.Equal(t, AggregateFailed, Aggregate(mixed, expected))

	retried := append(mixed, entry(channels.BookingCom, StatusSuccess, t0.Add(time.Minute)))
	assert.Equal(t, AggregateSynced, Aggregate(retried, expected))

	partial := []Entry{entry(channels.Airbnb, StatusSuccess, t0)}
	assert.Equal(t, AggregatePending, Aggregate(partial, expected))
}

func TestSucceeded(t *testing.T) {
	entries := []Entry{
		entry(channels.Airbnb, StatusFailed, time.Now()),
		entry(channels.Agoda, StatusSuccess, time.Now()),
		{BookingID: "bk-1", Platform: channels.BookingCom, Action: ActionCalendarUpdate, Status: StatusSuccess},
	}
	assert.False(t, Succeeded(entries, "bk-1", channels.Airbnb))
	assert.True(t, Succeeded(entries, "bk-1", channels.Agoda))
	assert.False(t, Succeeded(entries, "bk-1", channels.BookingCom))
	assert.False(t, Succeeded(entries, "bk-2", channels.Agoda))
}

func TestAggregateTreatsPendingAsUnfinished(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	expected := []channels.Platform{channels.Airbnb}
	priced := Entry{Platform: channels.Airbnb, Action: ActionPriceUpdate, Status: StatusPending, CreatedAt: t0.Add(time.Hour)}

	entries := []Entry{entry(channels.Airbnb, StatusSuccess, t0), priced}
	assert.Equal(t, AggregateSynced, Aggregate(entries, expected), "other actions are ignored")

	entries = append(entries, entry(channels.Airbnb, StatusPending, t0.Add(time.Minute)))
	assert.Equal(t, AggregatePending, Aggregate(entries, expected))
	assert.Equal(t, Action("availability_check"), ActionAvailability)
}
