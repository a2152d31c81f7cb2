package properties

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"staysync/internal/app/commands"
	"staysync/internal/app/dto"
	"staysync/internal/app/handlers/support"
	"staysync/internal/app/outbox"
	"staysync/internal/app/uow"
	"staysync/internal/domain/channels"
	domainproperties "staysync/internal/domain/properties"
	"staysync/internal/domain/shared/fault"
	"staysync/internal/domain/synclog"
)

const (
	createPropertyKey     = "host.properties.create"
	connectPlatformKey    = "host.properties.connect"
	disconnectPlatformKey = "host.properties.disconnect"
	deletePropertyKey     = "host.properties.delete"
	setStatusKey          = "host.properties.status"
	updatePricingKey      = "host.properties.pricing"
)

type CreatePropertyCommand struct {
	HostID  string
	Title   string
	Pricing dto.Pricing
	Status  string
}

func (c CreatePropertyCommand) Key() string   { return createPropertyKey }
func (c CreatePropertyCommand) Actor() string { return c.HostID }

type CreatePropertyHandler struct {
	Clock  support.Clock
	Logger *slog.Logger
}

func (h *CreatePropertyHandler) Handle(ctx context.Context, cmd CreatePropertyCommand) (*dto.Property, error) {
	unit, err := support.CurrentUnit(ctx)
	if err != nil {
		return nil, err
	}
	switch domainproperties.Status(cmd.Status) {
	case "", domainproperties.StatusActive, domainproperties.StatusInactive, domainproperties.StatusMaintenance:
	default:
		return nil, fault.New("properties", "unknown status "+cmd.Status, fault.ErrInvalidInput)
	}
	property, err := domainproperties.New(domainproperties.CreateParams{
		ID:     domainproperties.PropertyID(support.NewID()),
		HostID: domainproperties.HostID(cmd.HostID),
		Title:  strings.TrimSpace(cmd.Title),
		Pricing: domainproperties.Pricing{
			BasePrice:   cmd.Pricing.BasePrice,
			CleaningFee: cmd.Pricing.CleaningFee,
			ServiceFee:  cmd.Pricing.ServiceFee,
			Currency:    cmd.Pricing.Currency,
		},
		Status: domainproperties.Status(cmd.Status),
		Now:    h.Clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Properties().Save(ctx, property); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("property created", "property_id", property.ID, "host_id", cmd.HostID)
	}
	out := dto.MapProperty(property)
	return &out, nil
}

type ConnectPlatformCommand struct {
	HostID     string
	PropertyID string
	Platform   string
	ExternalID string
}

func (c ConnectPlatformCommand) Key() string   { return connectPlatformKey }
func (c ConnectPlatformCommand) Actor() string { return c.HostID }

type DisconnectPlatformCommand struct {
	HostID     string
	PropertyID string
	Platform   string
}

func (c DisconnectPlatformCommand) Key() string   { return disconnectPlatformKey }
func (c DisconnectPlatformCommand) Actor() string { return c.HostID }

// ConnectionHandler serves both connect and disconnect; every change is
// recorded in the sync log as a calendar_update.
type ConnectionHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   support.Clock
	Logger  *slog.Logger
}

func (h *ConnectionHandler) Connect(ctx context.Context, cmd ConnectPlatformCommand) (*dto.Property, error) {
	return h.apply(ctx, cmd.HostID, cmd.PropertyID, cmd.Platform, func(p *domainproperties.Property, platform channels.Platform) (string, error) {
		return "connected listing " + strings.TrimSpace(cmd.ExternalID), p.Connect(platform, cmd.ExternalID, h.Clock.Now())
	})
}

func (h *ConnectionHandler) Disconnect(ctx context.Context, cmd DisconnectPlatformCommand) (*dto.Property, error) {
	return h.apply(ctx, cmd.HostID, cmd.PropertyID, cmd.Platform, func(p *domainproperties.Property, platform channels.Platform) (string, error) {
		return "disconnected", p.Disconnect(platform, h.Clock.Now())
	})
}

func (h *ConnectionHandler) apply(ctx context.Context, hostID, propertyID, rawPlatform string, change func(*domainproperties.Property, channels.Platform) (string, error)) (*dto.Property, error) {
	unit, err := support.CurrentUnit(ctx)
	if err != nil {
		return nil, err
	}
	platform, err := channels.ParseExternal(rawPlatform)
	if err != nil {
		return nil, err
	}
	property, err := loadOwned(ctx, unit, propertyID, hostID)
	if err != nil {
		return nil, err
	}
	message, err := change(property, platform)
	if err != nil {
		return nil, err
	}
	if err := unit.Properties().Save(ctx, property); err != nil {
		return nil, err
	}
	if err := unit.SyncLog().Append(ctx, synclog.Entry{
		ID:         support.NewID(),
		PropertyID: property.ID,
		Platform:   platform,
		Action:     synclog.ActionCalendarUpdate,
		Status:     synclog.StatusSuccess,
		Message:    message,
		CreatedAt:  h.Clock.Now(),
	}); err != nil {
		return nil, err
	}
	if err := support.Publish(ctx, h.Outbox, h.Encoder, property); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("platform connection changed", "property_id", property.ID, "platform", platform, "change", message)
	}
	out := dto.MapProperty(property)
	return &out, nil
}

type DeletePropertyCommand struct {
	HostID     string
	PropertyID string
}

func (c DeletePropertyCommand) Key() string   { return deletePropertyKey }
func (c DeletePropertyCommand) Actor() string { return c.HostID }

type DeletePropertyHandler struct {
	Logger *slog.Logger
}

func (h *DeletePropertyHandler) Handle(ctx context.Context, cmd DeletePropertyCommand) (struct{}, error) {
	unit, err := support.CurrentUnit(ctx)
	if err != nil {
		return struct{}{}, err
	}
	property, err := loadOwned(ctx, unit, cmd.PropertyID, cmd.HostID)
	if err != nil {
		return struct{}{}, err
	}
	bookings, err := unit.Bookings().ListByProperty(ctx, property.ID)
	if err != nil {
		return struct{}{}, err
	}
	for _, b := range bookings {
		if b.IsActive() {
			return struct{}{}, domainproperties.ErrHasBookings
		}
	}
	if err := unit.Properties().Delete(ctx, property.ID); err != nil {
		return struct{}{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("property deleted", "property_id", property.ID, "host_id", cmd.HostID)
	}
	return struct{}{}, nil
}

type TogglePropertyStatusCommand struct {
	HostID     string
	PropertyID string
	Status     string
}

func (c TogglePropertyStatusCommand) Key() string   { return setStatusKey }
func (c TogglePropertyStatusCommand) Actor() string { return c.HostID }

func (c TogglePropertyStatusCommand) Validate() error {
	_, err := domainproperties.ParseStatus(c.Status)
	return err
}

type TogglePropertyStatusHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   support.Clock
	Logger  *slog.Logger
}

func (h *TogglePropertyStatusHandler) Handle(ctx context.Context, cmd TogglePropertyStatusCommand) (*dto.Property, error) {
	unit, err := support.CurrentUnit(ctx)
	if err != nil {
		return nil, err
	}
	status, err := domainproperties.ParseStatus(cmd.Status)
	if err != nil {
		return nil, err
	}
	property, err := loadOwned(ctx, unit, cmd.PropertyID, cmd.HostID)
	if err != nil {
		return nil, err
	}
	previous := property.Status
	if err := property.SetStatus(status, h.Clock.Now()); err != nil {
		return nil, err
	}
	if previous != status {
		if err := unit.Properties().Save(ctx, property); err != nil {
			return nil, err
		}
		if err := support.Publish(ctx, h.Outbox, h.Encoder, property); err != nil {
			return nil, err
		}
		if h.Logger != nil {
			h.Logger.Info("property status changed", "property_id", property.ID, "from", previous, "to", status)
		}
	}
	out := dto.MapProperty(property)
	return &out, nil
}

// UpdatePricingCommand replaces the price components; the currency stays.
type UpdatePricingCommand struct {
	HostID      string
	PropertyID  string
	BasePrice   int64
	CleaningFee int64
	ServiceFee  int64
}

func (c UpdatePricingCommand) Key() string   { return updatePricingKey }
func (c UpdatePricingCommand) Actor() string { return c.HostID }

// UpdatePricingHandler reprices the property and leaves one pending
// price_update entry per connected platform; prices are not pushed to channels.
type UpdatePricingHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   support.Clock
	Logger  *slog.Logger
}

func (h *UpdatePricingHandler) Handle(ctx context.Context, cmd UpdatePricingCommand) (*dto.Property, error) {
	unit, err := support.CurrentUnit(ctx)
	if err != nil {
		return nil, err
	}
	property, err := loadOwned(ctx, unit, cmd.PropertyID, cmd.HostID)
	if err != nil {
		return nil, err
	}
	now := h.Clock.Now()
	if err := property.Reprice(cmd.BasePrice, cmd.CleaningFee, cmd.ServiceFee, now); err != nil {
		return nil, err
	}
	if err := unit.Properties().Save(ctx, property); err != nil {
		return nil, err
	}
	for _, platform := range property.Connections.Platforms() {
		if err := unit.SyncLog().Append(ctx, synclog.Entry{
			ID:         support.NewID(),
			PropertyID: property.ID,
			Platform:   platform,
			Action:     synclog.ActionPriceUpdate,
			Status:     synclog.StatusPending,
			Message:    fmt.Sprintf("pricing changed to %d/%d/%d %s", cmd.BasePrice, cmd.CleaningFee, cmd.ServiceFee, property.Pricing.Currency),
			CreatedAt:  now,
		}); err != nil {
			return nil, err
		}
	}
	if err := support.Publish(ctx, h.Outbox, h.Encoder, property); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("property repriced", "property_id", property.ID, "base_price", cmd.BasePrice)
	}
	out := dto.MapProperty(property)
	return &out, nil
}

func loadOwned(ctx context.Context, unit uow.UnitOfWork, propertyID, hostID string) (*domainproperties.Property, error) {
	if strings.TrimSpace(propertyID) == "" {
		return nil, fault.New("properties", "property id required", fault.ErrInvalidInput)
	}
	property, err := unit.Properties().ByID(ctx, domainproperties.PropertyID(propertyID))
	if err != nil {
		return nil, err
	}
	if !property.OwnedBy(hostID) {
		return nil, domainproperties.ErrNotOwner
	}
	return property, nil
}

var (
	_ commands.Handler[CreatePropertyCommand, *dto.Property] = (*CreatePropertyHandler)(nil)
	_ commands.Handler[DeletePropertyCommand, struct{}]      = (*DeletePropertyHandler)(nil)

	_ commands.Handler[TogglePropertyStatusCommand, *dto.Property] = (*TogglePropertyStatusHandler)(nil)
	_ commands.Handler[UpdatePricingCommand, *dto.Property]        = (*UpdatePricingHandler)(nil)
)
