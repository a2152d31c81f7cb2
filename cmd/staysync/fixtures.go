package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"staysync/internal/app/dto"
	"staysync/internal/app/handlers/support"
	"staysync/internal/app/uow"
	"staysync/internal/domain/channels"
	domainproperties "staysync/internal/domain/properties"
)

type propertyFixture struct {
	ID          string            `json:"id"`
	HostID      string            `json:"host_id"`
	Title       string            `json:"title"`
	Status      string            `json:"status"`
	Pricing     dto.Pricing       `json:"pricing"`
	Connections map[string]string `json:"connections"`
}

// loadFixtures seeds properties from PROPERTIES_FIXTURES (or data/properties.json).
// Invalid entries are logged and skipped.
func loadFixtures(ctx context.Context, rt *runtime, logger *slog.Logger) error {
	path := rt.cfg.PropertiesFixtures
	if path == "" {
		path = defaultFixturesPath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("property fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("property fixtures file empty", "path", path)
		return nil
	}

	var fixtures []propertyFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now()
	for _, fx := range fixtures {
		property, err := fx.property(now)
		if err != nil {
			logger.Error("fixture invalid", "property_id", fx.ID, "error", err)
			continue
		}
		err = support.InUnit(ctx, rt.factory, func(ctx context.Context, unit uow.UnitOfWork) error {
			return unit.Properties().Save(ctx, property)
		})
		if err != nil {
			logger.Error("cannot store fixture property", "property_id", fx.ID, "error", err)
			continue
		}
		logger.Info("property fixture imported", "property_id", property.ID, "connections", len(property.Connections))
	}
	return nil
}

func (fx propertyFixture) property(now time.Time) (*domainproperties.Property, error) {
	connections := channels.Connections{}
	for name, externalID := range fx.Connections {
		platform, err := channels.ParseExternal(name)
		if err != nil {
			return nil, err
		}
		connections = connections.With(platform, externalID)
	}
	return domainproperties.New(domainproperties.CreateParams{
		ID:     domainproperties.PropertyID(fx.ID),
		HostID: domainproperties.HostID(fx.HostID),
		Title:  fx.Title,
		Pricing: domainproperties.Pricing{
			BasePrice:   fx.Pricing.BasePrice,
			CleaningFee: fx.Pricing.CleaningFee,
			ServiceFee:  fx.Pricing.ServiceFee,
			Currency:    fx.Pricing.Currency,
		},
		Connections: connections,
		Status:      domainproperties.Status(fx.Status),
		Now:         now,
	})
}

func defaultFixturesPath() string {
	candidates := []string{
		filepath.Join("data", "properties.json"),
		filepath.Join("..", "data", "properties.json"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return candidates[0]
}
