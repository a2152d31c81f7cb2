package availability

import (
	"time"

	"staysync/internal/domain/properties"
	"staysync/internal/domain/shared/daterange"
)

type Blocked struct {
	PropertyID properties.PropertyID `json:"property_id"`
	BlockID    BlockID               `json:"block_id"`
	Reason     Reason                `json:"reason"`
	Range      daterange.Range       `json:"range"`
	BookingID  string                `json:"booking_id,omitempty"`
	At         time.Time             `json:"at"`
}

func (e Blocked) EventName() string     { return "calendar.blocked" }
func (e Blocked) AggregateID() string   { return string(e.PropertyID) }
func (e Blocked) OccurredAt() time.Time { return e.At }

type HoldPlaced struct {
	PropertyID properties.PropertyID `json:"property_id"`
	BlockID    BlockID               `json:"block_id"`
	BookingID  string                `json:"booking_id,omitempty"`
	Range      daterange.Range       `json:"range"`
	ExpiresAt  time.Time             `json:"expires_at"`
	At         time.Time             `json:"at"`
}

func (e HoldPlaced) EventName() string     { return "calendar.hold_placed" }
func (e HoldPlaced) AggregateID() string   { return string(e.PropertyID) }
func (e HoldPlaced) OccurredAt() time.Time { return e.At }

type BlockReleased struct {
	PropertyID properties.PropertyID `json:"property_id"`
	BlockID    BlockID               `json:"block_id"`
	Reason     Reason                `json:"reason"`
	Range      daterange.Range       `json:"range"`
	At         time.Time             `json:"at"`
}

func (e BlockReleased) EventName() string     { return "calendar.released" }
func (e BlockReleased) AggregateID() string   { return string(e.PropertyID) }
func (e BlockReleased) OccurredAt() time.Time { return e.At }

type OverbookingPrevented struct {
	PropertyID properties.PropertyID `json:"property_id"`
	Range      daterange.Range       `json:"range"`
	Conflicts  int                   `json:"conflicts"`
	At         time.Time             `json:"at"`
}

func (e OverbookingPrevented) EventName() string     { return "calendar.overbooking_prevented" }
func (e OverbookingPrevented) AggregateID() string   { return string(e.PropertyID) }
func (e OverbookingPrevented) OccurredAt() time.Time { return e.At }
