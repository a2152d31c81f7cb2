package properties

import (
	"time"

	"staysync/internal/domain/channels"
)

type PlatformConnected struct {
	PropertyID PropertyID        `json:"property_id"`
	Platform   channels.Platform `json:"platform"`
	ExternalID string            `json:"external_id"`
	At         time.Time         `json:"at"`
}

func (e PlatformConnected) EventName() string     { return "property.platform_connected" }
func (e PlatformConnected) AggregateID() string   { return string(e.PropertyID) }
func (e PlatformConnected) OccurredAt() time.Time { return e.At }

type PlatformDisconnected struct {
	PropertyID PropertyID        `json:"property_id"`
	Platform   channels.Platform `json:"platform"`
	At         time.Time         `json:"at"`
}

func (e PlatformDisconnected) EventName() string     { return "property.platform_disconnected" }
func (e PlatformDisconnected) AggregateID() string   { return string(e.PropertyID) }
func (e PlatformDisconnected) OccurredAt() time.Time { return e.At }

type StatusChanged struct {
	PropertyID PropertyID `json:"property_id"`
	From       Status     `json:"from"`
	To         Status     `json:"to"`
	At         time.Time  `json:"at"`
}

func (e StatusChanged) EventName() string     { return "property.status_changed" }
func (e StatusChanged) AggregateID() string   { return string(e.PropertyID) }
func (e StatusChanged) OccurredAt() time.Time { return e.At }

type PricingUpdated struct {
	PropertyID PropertyID `json:"property_id"`
	Pricing    Pricing    `json:"pricing"`
	At         time.Time  `json:"at"`
}

func (e PricingUpdated) EventName() string     { return "property.pricing_updated" }
func (e PricingUpdated) AggregateID() string   { return string(e.PropertyID) }
func (e PricingUpdated) OccurredAt() time.Time { return e.At }
