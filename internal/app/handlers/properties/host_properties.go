package properties

import (
	"context"
	"log/slog"

	"staysync/internal/app/dto"
	"staysync/internal/app/handlers/support"
	"staysync/internal/app/queries"
	"staysync/internal/app/uow"
	domainproperties "staysync/internal/domain/properties"
)

const (
	listHostPropertiesKey = "host.properties.list"
	getPropertyKey        = "properties.get"
)

type ListHostPropertiesQuery struct {
	HostID string
}

func (q ListHostPropertiesQuery) Key() string   { return listHostPropertiesKey }
func (q ListHostPropertiesQuery) Actor() string { return q.HostID }

type ListHostPropertiesHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *ListHostPropertiesHandler) Handle(ctx context.Context, q ListHostPropertiesQuery) ([]dto.Property, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	items, err := unit.Properties().ListByHost(execCtx, domainproperties.HostID(q.HostID))
	if err != nil {
		return nil, err
	}
	out := make([]dto.Property, 0, len(items))
	for _, p := range items {
		out = append(out, dto.MapProperty(p))
	}
	if h.Logger != nil {
		h.Logger.Debug("host properties queried", "host_id", q.HostID, "count", len(out))
	}
	return out, nil
}

// GetPropertyQuery is public: guests need pricing before booking.
type GetPropertyQuery struct {
	PropertyID string
}

func (q GetPropertyQuery) Key() string { return getPropertyKey }

type GetPropertyHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetPropertyHandler) Handle(ctx context.Context, q GetPropertyQuery) (dto.Property, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Property{}, err
	}
	defer cleanup()

	property, err := unit.Properties().ByID(execCtx, domainproperties.PropertyID(q.PropertyID))
	if err != nil {
		return dto.Property{}, err
	}
	return dto.MapProperty(property), nil
}

var (
	_ queries.Handler[ListHostPropertiesQuery, []dto.Property] = (*ListHostPropertiesHandler)(nil)
	_ queries.Handler[GetPropertyQuery, dto.Property]          = (*GetPropertyHandler)(nil)
)
