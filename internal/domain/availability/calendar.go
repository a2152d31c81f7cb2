package availability

import (
	"context"
	"fmt"
	"time"

	"staysync/internal/domain/channels"
	"staysync/internal/domain/properties"
	"staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/events"
	"staysync/internal/domain/shared/fault"
)

var (
	ErrDatesUnavailable = fault.New("availability", "dates unavailable", fault.ErrUnavailable)
	ErrConcurrentUpdate = fault.New("availability", "calendar changed concurrently", fault.ErrUnavailable)
	ErrBlockNotFound    = fault.New("availability", "block not found", fault.ErrNotFound)
	ErrBookedBlock      = fault.New("availability", "cannot unblock dates that are booked", fault.ErrInvalidTransition)
	ErrInvalidReason    = fault.New("availability", "reason not allowed here", fault.ErrInvalidInput)
)

type BlockID string

type Reason string

const (
	ReasonBooked      Reason = "booked"
	ReasonMaintenance Reason = "maintenance"
	ReasonOwnerBlock  Reason = "owner_block"
	ReasonSyncLock    Reason = "sync_lock"
)

// ParseManualReason accepts the reasons a host may block dates with.
func ParseManualReason(raw string) (Reason, error) {
	switch r := Reason(raw); r {
	case ReasonMaintenance, ReasonOwnerBlock:
		return r, nil
	case "":
		return ReasonOwnerBlock, nil
	}
	return "", ErrInvalidReason
}

// DateBlock reserves an inclusive range of days on one property.
// ExpiresAt is set exactly when Temporary is true.
type DateBlock struct {
	ID         BlockID
	PropertyID properties.PropertyID
	Range      daterange.Range
	Reason     Reason
	Temporary  bool
	ExpiresAt  time.Time
	Platform   channels.Platform
	BookingID  string
	CreatedAt  time.Time
}

// Expired reports whether a temporary block is past its expiry.
func (b DateBlock) Expired(now time.Time) bool {
	return b.Temporary && b.ExpiresAt.Before(now)
}

func (b DateBlock) isHoldFor(bookingID string, r daterange.Range) bool {
	if !b.Temporary || b.Reason != ReasonSyncLock {
		return false
	}
	if b.BookingID != "" {
		return b.BookingID == bookingID
	}
	return b.Range.Equal(r)
}

// ConflictError carries the blocks a candidate range collided with.
type ConflictError struct {
	Range     daterange.Range
	Conflicts []DateBlock
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s conflicts with %d block(s)", ErrDatesUnavailable, e.Range, len(e.Conflicts))
}

func (e *ConflictError) Unwrap() error { return ErrDatesUnavailable }

// Calendar owns every block of one property. Mutations are persisted as a
// whole with a version compare-and-swap.
type Calendar struct {
	PropertyID properties.PropertyID
	Blocks     []DateBlock
	Version    int64
	events.EventRecorder
}

type Repository interface {
	// Calendar returns the property's calendar, empty when nothing is stored yet.
	Calendar(ctx context.Context, id properties.PropertyID) (*Calendar, error)
	// Save persists the calendar if its stored version still equals cal.Version.
	Save(ctx context.Context, cal *Calendar) error
	BlockByID(ctx context.Context, id BlockID) (*DateBlock, error)
	PropertiesWithExpiredHolds(ctx context.Context, now time.Time) ([]properties.PropertyID, error)
}

func NewCalendar(id properties.PropertyID) *Calendar {
	return &Calendar{PropertyID: id}
}

// Check evaluates candidate against every block of the calendar.
func (c *Calendar) Check(candidate daterange.Range) Result {
	return Check(c.Blocks, candidate)
}

type HoldParams struct {
	ID        BlockID
	BookingID string
	Range     daterange.Range
	TTL       time.Duration
	Now       time.Time
}

// PlaceHold inserts a temporary sync_lock after gating the range.
func (c *Calendar) PlaceHold(p HoldParams) (DateBlock, error) {
	if err := c.gate(p.Range, c.Blocks); err != nil {
		return DateBlock{}, err
	}
	now := p.Now.UTC()
	block := DateBlock{
		ID:         p.ID,
		PropertyID: c.PropertyID,
		Range:      p.Range,
		Reason:     ReasonSyncLock,
		Temporary:  true,
		ExpiresAt:  now.Add(p.TTL),
		BookingID:  p.BookingID,
		CreatedAt:  now,
	}
	c.Blocks = append(c.Blocks, block)
	c.Record(HoldPlaced{PropertyID: c.PropertyID, BlockID: block.ID, BookingID: block.BookingID, Range: block.Range, ExpiresAt: block.ExpiresAt, At: now})
	return block, nil
}

type BlockParams struct {
	ID        BlockID
	Range     daterange.Range
	Reason    Reason
	Platform  channels.Platform
	BookingID string
	Now       time.Time
}

// Block inserts a permanent block after gating the range.
func (c *Calendar) Block(p BlockParams) (DateBlock, error) {
	if p.Reason == ReasonSyncLock || p.Reason == "" {
		return DateBlock{}, ErrInvalidReason
	}
	if err := c.gate(p.Range, c.Blocks); err != nil {
		return DateBlock{}, err
	}
	block := c.appendPermanent(p)
	return block, nil
}

// PromoteHold replaces the booking's holds with one permanent booked block.
// The replacement is all-or-nothing: on conflict the calendar is unchanged.
// created is false when the booking already owns a booked block.
func (c *Calendar) PromoteHold(p BlockParams) (block DateBlock, created bool, err error) {
	if existing, ok := c.BookedBlockFor(p.BookingID); ok {
		return existing, false, nil
	}
	remaining := make([]DateBlock, 0, len(c.Blocks))
	var released []DateBlock
	for _, b := range c.Blocks {
		if b.isHoldFor(p.BookingID, p.Range) {
			released = append(released, b)
			continue
		}
		remaining = append(remaining, b)
	}
	if err := c.gate(p.Range, remaining); err != nil {
		return DateBlock{}, false, err
	}
	c.Blocks = remaining
	for _, b := range released {
		c.Record(BlockReleased{PropertyID: c.PropertyID, BlockID: b.ID, Reason: b.Reason, Range: b.Range, At: p.Now.UTC()})
	}
	p.Reason = ReasonBooked
	return c.appendPermanent(p), true, nil
}

// Unblock removes a block; booked blocks are immutable here.
func (c *Calendar) Unblock(id BlockID, now time.Time) (DateBlock, error) {
	for i, b := range c.Blocks {
		if b.ID != id {
			continue
		}
		if b.Reason == ReasonBooked {
			return DateBlock{}, ErrBookedBlock
		}
		c.Blocks = append(c.Blocks[:i:i], c.Blocks[i+1:]...)
		c.Record(BlockReleased{PropertyID: c.PropertyID, BlockID: b.ID, Reason: b.Reason, Range: b.Range, At: now.UTC()})
		return b, nil
	}
	return DateBlock{}, ErrBlockNotFound
}

// ReleaseExpired drops every temporary block that expired before now.
func (c *Calendar) ReleaseExpired(now time.Time) []DateBlock {
	return c.removeWhere(now, func(b DateBlock) bool { return b.Expired(now) })
}

// EvictHolds drops temporary blocks colliding with r.
func (c *Calendar) EvictHolds(r daterange.Range, now time.Time) []DateBlock {
	return c.removeWhere(now, func(b DateBlock) bool { return b.Temporary && b.Range.Conflicts(r) })
}

// ReleaseBooking drops every block linked to bookingID.
func (c *Calendar) ReleaseBooking(bookingID string, now time.Time) []DateBlock {
	if bookingID == "" {
		return nil
	}
	return c.removeWhere(now, func(b DateBlock) bool { return b.BookingID == bookingID })
}

func (c *Calendar) BookedBlockFor(bookingID string) (DateBlock, bool) {
	if bookingID == "" {
		return DateBlock{}, false
	}
	for _, b := range c.Blocks {
		if b.Reason == ReasonBooked && b.BookingID == bookingID {
			return b, true
		}
	}
	return DateBlock{}, false
}

func (c *Calendar) HasExpiredHolds(now time.Time) bool {
	for _, b := range c.Blocks {
		if b.Expired(now) {
			return true
		}
	}
	return false
}

func (c *Calendar) Find(id BlockID) (DateBlock, bool) {
	for _, b := range c.Blocks {
		if b.ID == id {
			return b, true
		}
	}
	return DateBlock{}, false
}

func (c *Calendar) Clone() *Calendar {
	clone := &Calendar{PropertyID: c.PropertyID, Version: c.Version}
	clone.Blocks = append([]DateBlock(nil), c.Blocks...)
	return clone
}

func (c *Calendar) gate(r daterange.Range, blocks []DateBlock) error {
	if err := r.Validate(); err != nil {
		return err
	}
	res := Check(blocks, r)
	if res.Available {
		return nil
	}
	c.Record(OverbookingPrevented{PropertyID: c.PropertyID, Range: r, Conflicts: len(res.Conflicts), At: time.Now().UTC()})
	return &ConflictError{Range: r, Conflicts: res.Conflicts}
}

func (c *Calendar) appendPermanent(p BlockParams) DateBlock {
	now := p.Now.UTC()
	block := DateBlock{
		ID:         p.ID,
		PropertyID: c.PropertyID,
		Range:      p.Range,
		Reason:     p.Reason,
		Platform:   p.Platform,
		BookingID:  p.BookingID,
		CreatedAt:  now,
	}
	c.Blocks = append(c.Blocks, block)
	c.Record(Blocked{PropertyID: c.PropertyID, BlockID: block.ID, Reason: block.Reason, Range: block.Range, BookingID: block.BookingID, At: now})
	return block
}

func (c *Calendar) removeWhere(now time.Time, match func(DateBlock) bool) []DateBlock {
	var removed []DateBlock
	kept := c.Blocks[:0:0]
	for _, b := range c.Blocks {
		if match(b) {
			removed = append(removed, b)
			continue
		}
		kept = append(kept, b)
	}
	c.Blocks = kept
	for _, b := range removed {
		c.Record(BlockReleased{PropertyID: c.PropertyID, BlockID: b.ID, Reason: b.Reason, Range: b.Range, At: now.UTC()})
	}
	return removed
}
