package properties

import (
	"context"
	"strings"
	"time"

	"staysync/internal/domain/channels"
	"staysync/internal/domain/shared/events"
	"staysync/internal/domain/shared/fault"
	"staysync/internal/domain/shared/money"
)

var (
	ErrNotFound        = fault.New("properties", "property not found", fault.ErrNotFound)
	ErrNotOwner        = fault.New("properties", "only the host may manage this property", fault.ErrUnauthorized)
	ErrNotBookable     = fault.New("properties", "property is not accepting bookings", fault.ErrUnavailable)
	ErrInvalidPricing  = fault.New("properties", "pricing components must be non-negative", fault.ErrInvalidInput)
	ErrExternalIDEmpty = fault.New("properties", "external listing id required", fault.ErrInvalidInput)
	ErrHasBookings     = fault.New("properties", "property has active bookings", fault.ErrInvalidTransition)
	ErrUnknownStatus   = fault.New("properties", "unknown property status", fault.ErrInvalidInput)
)

type PropertyID string

type HostID string

type Status string

const (
	StatusActive      Status = "active"
	StatusInactive    Status = "inactive"
	StatusMaintenance Status = "maintenance"
)

func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusActive, StatusInactive, StatusMaintenance:
		return s, nil
	}
	return "", ErrUnknownStatus
}

// Pricing holds the nightly base price and the flat per-stay fees.
type Pricing struct {
	BasePrice   int64
	CleaningFee int64
	ServiceFee  int64
	Currency    string
}

func (p Pricing) Validate() error {
	if p.BasePrice < 0 || p.CleaningFee < 0 || p.ServiceFee < 0 {
		return ErrInvalidPricing
	}
	if _, err := money.New(0, p.Currency); err != nil {
		return ErrInvalidPricing
	}
	return nil
}

type Property struct {
	ID          PropertyID
	HostID      HostID
	Title       string
	Pricing     Pricing
	Connections channels.Connections
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Version     int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id PropertyID) (*Property, error)
	// ByPlatformID finds the active property listed on platform under externalID.
	ByPlatformID(ctx context.Context, platform channels.Platform, externalID string) (*Property, error)
	ListByHost(ctx context.Context, host HostID) ([]*Property, error)
	Save(ctx context.Context, p *Property) error
	Delete(ctx context.Context, id PropertyID) error
}

type CreateParams struct {
	ID          PropertyID
	HostID      HostID
	Title       string
	Pricing     Pricing
	Connections channels.Connections
	Status      Status
	Now         time.Time
}

func New(params CreateParams) (*Property, error) {
	if strings.TrimSpace(string(params.ID)) == "" || strings.TrimSpace(string(params.HostID)) == "" {
		return nil, fault.New("properties", "id and host are required", fault.ErrInvalidInput)
	}
	params.Pricing.Currency = strings.ToUpper(params.Pricing.Currency)
	if err := params.Pricing.Validate(); err != nil {
		return nil, err
	}
	status := params.Status
	if status == "" {
		status = StatusActive
	}
	now := params.Now.UTC()
	return &Property{
		ID:          params.ID,
		HostID:      params.HostID,
		Title:       params.Title,
		Pricing:     params.Pricing,
		Connections: params.Connections.Clone(),
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (p *Property) IsActive() bool {
	return p.Status == StatusActive
}

func (p *Property) OwnedBy(host string) bool {
	return host != "" && string(p.HostID) == host
}

// EnsureBookable rejects properties that are not active.
func (p *Property) EnsureBookable() error {
	if !p.IsActive() {
		return ErrNotBookable
	}
	return nil
}

// Connect links the property to an external platform listing.
func (p *Property) Connect(platform channels.Platform, externalID string, now time.Time) error {
	if !platform.IsExternal() {
		return channels.ErrUnknownPlatform
	}
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return ErrExternalIDEmpty
	}
	p.Connections = p.Connections.With(platform, externalID)
	p.UpdatedAt = now.UTC()
	p.Record(PlatformConnected{PropertyID: p.ID, Platform: platform, ExternalID: externalID, At: p.UpdatedAt})
	return nil
}

// Disconnect removes a platform link; disconnecting an unlinked platform is a no-op.
func (p *Property) Disconnect(platform channels.Platform, now time.Time) error {
	if !platform.IsExternal() {
		return channels.ErrUnknownPlatform
	}
	if !p.Connections.Connected(platform) {
		return nil
	}
	p.Connections = p.Connections.Without(platform)
	p.UpdatedAt = now.UTC()
	p.Record(PlatformDisconnected{PropertyID: p.ID, Platform: platform, At: p.UpdatedAt})
	return nil
}

// SetStatus moves the property between active, inactive and maintenance.
// Setting the current status again records nothing.
func (p *Property) SetStatus(status Status, now time.Time) error {
	if _, err := ParseStatus(string(status)); err != nil {
		return err
	}
	if p.Status == status {
		return nil
	}
	previous := p.Status
	p.Status = status
	p.UpdatedAt = now.UTC()
	p.Record(StatusChanged{PropertyID: p.ID, From: previous, To: status, At: p.UpdatedAt})
	return nil
}

// Reprice replaces the price components and keeps the currency. Quotes
// already stored on bookings are not touched.
func (p *Property) Reprice(basePrice, cleaningFee, serviceFee int64, now time.Time) error {
	next := Pricing{BasePrice: basePrice, CleaningFee: cleaningFee, ServiceFee: serviceFee, Currency: p.Pricing.Currency}
	if err := next.Validate(); err != nil {
		return err
	}
	p.Pricing = next
	p.UpdatedAt = now.UTC()
	p.Record(PricingUpdated{PropertyID: p.ID, Pricing: next, At: p.UpdatedAt})
	return nil
}

func (p *Property) Clone() *Property {
	clone := *p
	clone.Connections = p.Connections.Clone()
	clone.EventRecorder = events.EventRecorder{}
	return &clone
}
