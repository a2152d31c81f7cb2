package availability

import (
	"context"

	"staysync/internal/app/commands"
	"staysync/internal/app/dto"
	"staysync/internal/app/handlers/support"
	"staysync/internal/app/outbox"
	"staysync/internal/app/policies"
	domainavailability "staysync/internal/domain/availability"
	domainproperties "staysync/internal/domain/properties"
)

const unblockDatesKey = "availability.unblock"

type UnblockDatesCommand struct {
	ActorID string
	BlockID string
}

func (c UnblockDatesCommand) Key() string   { return unblockDatesKey }
func (c UnblockDatesCommand) Actor() string { return c.ActorID }

type UnblockDatesHandler struct {
	Locker  policies.PropertyLocker
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   support.Clock
}

func (h *UnblockDatesHandler) Handle(ctx context.Context, cmd UnblockDatesCommand) (*dto.CalendarBlock, error) {
	unit, err := support.CurrentUnit(ctx)
	if err != nil {
		return nil, err
	}
	block, err := unit.Availability().BlockByID(ctx, domainavailability.BlockID(cmd.BlockID))
	if err != nil {
		return nil, err
	}
	property, err := unit.Properties().ByID(ctx, block.PropertyID)
	if err != nil {
		return nil, err
	}
	if !property.OwnedBy(cmd.ActorID) {
		return nil, domainproperties.ErrNotOwner
	}
	if err := LockProperty(ctx, h.Locker, property.ID); err != nil {
		return nil, err
	}
	calendar, err := unit.Availability().Calendar(ctx, property.ID)
	if err != nil {
		return nil, err
	}
	removed, err := calendar.Unblock(block.ID, h.Clock.Now())
	if err != nil {
		return nil, err
	}
	if err := unit.Availability().Save(ctx, calendar); err != nil {
		return nil, err
	}
	if err := support.Publish(ctx, h.Outbox, h.Encoder, calendar); err != nil {
		return nil, err
	}
	out := dto.MapBlock(removed)
	return &out, nil
}

var _ commands.Handler[UnblockDatesCommand, *dto.CalendarBlock] = (*UnblockDatesHandler)(nil)
