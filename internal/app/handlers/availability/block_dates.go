package availability

import (
	"context"
	"log/slog"
	"sort"

	"staysync/internal/app/commands"
	"staysync/internal/app/dto"
	"staysync/internal/app/handlers/support"
	"staysync/internal/app/outbox"
	"staysync/internal/app/policies"
	domainavailability "staysync/internal/domain/availability"
	domainproperties "staysync/internal/domain/properties"
	"staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/fault"
)

const blockDatesKey = "availability.block"

// BlockDatesCommand closes a range on one or more of the host's properties.
// Either every property is blocked or none is. Properties are locked in id
// order so concurrent bulk blocks cannot deadlock.
type BlockDatesCommand struct {
	ActorID     string
	PropertyIDs []string
	CheckIn     string
	CheckOut    string
	Reason      string
}

func (c BlockDatesCommand) Key() string   { return blockDatesKey }
func (c BlockDatesCommand) Actor() string { return c.ActorID }

func (c BlockDatesCommand) Validate() error {
	if len(c.PropertyIDs) == 0 {
		return fault.New("availability", "at least one property required", fault.ErrInvalidInput)
	}
	if _, err := daterange.Parse(c.CheckIn, c.CheckOut); err != nil {
		return fault.Wrap(fault.ErrInvalidInput, "availability: %v", err)
	}
	_, err := domainavailability.ParseManualReason(c.Reason)
	return err
}

type BlockDatesResult struct {
	Blocks []dto.CalendarBlock `json:"blocks"`
}

type BlockDatesHandler struct {
	Locker  policies.PropertyLocker
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   support.Clock
	Logger  *slog.Logger
}

func (h *BlockDatesHandler) Handle(ctx context.Context, cmd BlockDatesCommand) (*BlockDatesResult, error) {
	unit, err := support.CurrentUnit(ctx)
	if err != nil {
		return nil, err
	}
	r, err := daterange.Parse(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, fault.Wrap(fault.ErrInvalidInput, "availability: %v", err)
	}
	reason, err := domainavailability.ParseManualReason(cmd.Reason)
	if err != nil {
		return nil, err
	}
	now := h.Clock.Now()

	var calendars []*domainavailability.Calendar
	result := &BlockDatesResult{}
	for _, rawID := range dedupe(cmd.PropertyIDs) {
		property, err := unit.Properties().ByID(ctx, domainproperties.PropertyID(rawID))
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
		block, err := calendar.Block(domainavailability.BlockParams{
			ID:     domainavailability.BlockID(support.NewID()),
			Range:  r,
			Reason: reason,
			Now:    now,
		})
		if err != nil {
			return nil, err
		}
		calendars = append(calendars, calendar)
		result.Blocks = append(result.Blocks, dto.MapBlock(block))
	}
	for _, calendar := range calendars {
		if err := unit.Availability().Save(ctx, calendar); err != nil {
			return nil, err
		}
		if err := support.Publish(ctx, h.Outbox, h.Encoder, calendar); err != nil {
			return nil, err
		}
	}
	if h.Logger != nil {
		h.Logger.Info("dates blocked", "properties", len(result.Blocks), "range", r.String(), "reason", reason)
	}
	return result, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

var _ commands.Handler[BlockDatesCommand, *BlockDatesResult] = (*BlockDatesHandler)(nil)
