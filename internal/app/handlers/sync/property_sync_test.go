package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainavailability "staysync/internal/domain/availability"
	"staysync/internal/domain/channels"
	"staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/fault"
	"staysync/internal/domain/synclog"
)

func (f *fixture) syncProperty(host string) (*PropertySyncReport, error) {
	return inUnit(f, func(ctx context.Context) (*PropertySyncReport, error) {
		return f.engine().SyncProperty(ctx, SyncPropertyCommand{HostID: host, PropertyID: "prop-1"})
	})
}

func TestSyncPropertyPushesCalendarPerPlatform(t *testing.T) {
	f := newFixture(t)
	_, err := f.ingest(ingestCommand("AIR-1", "2024-06-01", "2024-06-04"))
	require.NoError(t, err)
	ctx := context.Background()
	cal, err := f.factory.AvailabilityRepo.Calendar(ctx, "prop-1")
	require.NoError(t, err)
	_, err = cal.Block(domainavailability.BlockParams{ID: "owner", Range: daterange.MustParse("2024-07-01", "2024-07-02"), Reason: domainavailability.ReasonOwnerBlock, Now: testNow})
	require.NoError(t, err)
	_, err = cal.PlaceHold(domainavailability.HoldParams{ID: "hold", BookingID: "bk-x", Range: daterange.MustParse("2024-08-01", "2024-08-02"), TTL: time.Hour, Now: testNow})
	require.NoError(t, err)
	require.NoError(t, f.factory.AvailabilityRepo.Save(ctx, cal))
	f.gateway.failing[channels.Agoda] = -1

	report, err := f.syncProperty("host-1")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Blocks, "holds are not pushed")

	statuses := map[channels.Platform]synclog.Status{}
	for _, o := range report.Outcomes {
		statuses[o.Platform] = o.Status
	}
	assert.Equal(t, map[channels.Platform]synclog.Status{
		channels.Airbnb:     synclog.StatusSuccess,
		channels.Agoda:      synclog.StatusFailed,
		channels.BookingCom: synclog.StatusSuccess,
	}, statuses)
	assert.Equal(t, 1, f.gateway.callsFor(channels.Airbnb), "airbnb is not sent its own booking")
	assert.Equal(t, 2, f.gateway.callsFor(channels.BookingCom))
	assert.Equal(t, 1, f.gateway.callsFor(channels.Agoda), "a platform stops at its first failure")

	entries, err := f.factory.SyncLogRepo.ListByProperty(ctx, "prop-1", 0)
	require.NoError(t, err)
	updates := map[channels.Platform]synclog.Status{}
	for _, e := range entries {
		if e.Action == synclog.ActionCalendarUpdate {
			updates[e.Platform] = e.Status
		}
	}
	assert.Equal(t, statuses, updates)
}

func TestSyncPropertyRequiresOwner(t *testing.T) {
	f := newFixture(t)
	_, err := f.syncProperty("host-2")
	assert.ErrorIs(t, err, fault.ErrUnauthorized)
	assert.ErrorIs(t, SyncPropertyCommand{HostID: "host-1"}.Validate(), fault.ErrInvalidInput)
	assert.Empty(t, f.gateway.calls)
}
