package sync

import (
	"context"
	"strings"

	"staysync/internal/app/handlers/support"
	"staysync/internal/app/policies"
	domainavailability "staysync/internal/domain/availability"
	"staysync/internal/domain/channels"
	domainproperties "staysync/internal/domain/properties"
	"staysync/internal/domain/shared/fault"
	"staysync/internal/domain/synclog"
)

const syncPropertyKey = "sync.property"

// SyncPropertyCommand pushes the whole calendar of a property to every
// platform it is connected to.
type SyncPropertyCommand struct {
	HostID     string
	PropertyID string
}

func (c SyncPropertyCommand) Key() string   { return syncPropertyKey }
func (c SyncPropertyCommand) Actor() string { return c.HostID }

func (c SyncPropertyCommand) Validate() error {
	if strings.TrimSpace(c.PropertyID) == "" {
		return fault.New("sync", "property id required", fault.ErrInvalidInput)
	}
	return nil
}

type PropertySyncReport struct {
	PropertyID string            `json:"property_id"`
	Blocks     int               `json:"blocks"`
	Outcomes   []PlatformOutcome `json:"outcomes"`
}

// SyncProperty sends every permanent block to each connected platform,
// except blocks that platform itself reported, and logs one calendar_update
// per platform. A platform fails as a whole on its first rejected block.
func (e *SyncEngine) SyncProperty(ctx context.Context, cmd SyncPropertyCommand) (*PropertySyncReport, error) {
	unit, err := support.CurrentUnit(ctx)
	if err != nil {
		return nil, err
	}
	property, err := unit.Properties().ByID(ctx, domainproperties.PropertyID(cmd.PropertyID))
	if err != nil {
		return nil, err
	}
	if !property.OwnedBy(cmd.HostID) {
		return nil, domainproperties.ErrNotOwner
	}
	calendar, err := unit.Availability().Calendar(ctx, property.ID)
	if err != nil {
		return nil, err
	}
	var blocks []domainavailability.DateBlock
	for _, b := range calendar.Blocks {
		if !b.Temporary {
			blocks = append(blocks, b)
		}
	}

	report := &PropertySyncReport{PropertyID: string(property.ID), Blocks: len(blocks)}
	now := e.Clock.Now()
	for _, platform := range property.Connections.Platforms() {
		externalID, _ := property.Connections.ID(platform)
		outcome := e.pushCalendar(ctx, platform, externalID, blocks)
		report.Outcomes = append(report.Outcomes, outcome)

		entry := synclog.Entry{
			ID:         support.NewID(),
			PropertyID: property.ID,
			Platform:   platform,
			Action:     synclog.ActionCalendarUpdate,
			Status:     outcome.Status,
			Error:      outcome.Error,
			CreatedAt:  now,
		}
		if outcome.Status == synclog.StatusSuccess {
			entry.Message = "calendar synced with " + string(platform)
		} else {
			entry.Message = "calendar sync with " + string(platform) + " failed"
		}
		if err := unit.SyncLog().Append(ctx, entry); err != nil {
			return nil, err
		}
	}
	if e.Logger != nil {
		e.Logger.Info("property calendar synced", "property_id", property.ID, "blocks", len(blocks), "platforms", len(report.Outcomes))
	}
	return report, nil
}

func (e *SyncEngine) pushCalendar(ctx context.Context, platform channels.Platform, externalID string, blocks []domainavailability.DateBlock) PlatformOutcome {
	outcome := PlatformOutcome{Platform: platform, Status: synclog.StatusSuccess}
	for _, b := range blocks {
		if b.Platform == platform {
			continue
		}
		err := e.call(ctx, policies.BlockDatesRequest{
			Platform:           platform,
			ExternalPropertyID: externalID,
			BookingID:          b.BookingID,
			Range:              b.Range,
		})
		if err != nil {
			outcome.Status = synclog.StatusFailed
			outcome.Error = err.Error()
			if e.Logger != nil {
				e.Logger.Warn("calendar push failed", "platform", platform, "block_id", b.ID, "err", err)
			}
			break
		}
	}
	return outcome
}
