package availability

import (
	"context"

	"staysync/internal/app/dto"
	"staysync/internal/app/handlers/support"
	"staysync/internal/app/queries"
	"staysync/internal/app/uow"
	domainproperties "staysync/internal/domain/properties"
	"staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/fault"
)

const checkAvailabilityKey = "availability.check"

type CheckAvailabilityQuery struct {
	PropertyID string
	CheckIn    string
	CheckOut   string
}

func (q CheckAvailabilityQuery) Key() string { return checkAvailabilityKey }

func (q CheckAvailabilityQuery) Validate() error {
	if q.PropertyID == "" {
		return fault.New("availability", "property id required", fault.ErrInvalidInput)
	}
	if _, err := daterange.Parse(q.CheckIn, q.CheckOut); err != nil {
		return fault.Wrap(fault.ErrInvalidInput, "availability: %v", err)
	}
	return nil
}

type CheckAvailabilityHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *CheckAvailabilityHandler) Handle(ctx context.Context, q CheckAvailabilityQuery) (dto.Availability, error) {
	r, err := daterange.Parse(q.CheckIn, q.CheckOut)
	if err != nil {
		return dto.Availability{}, fault.Wrap(fault.ErrInvalidInput, "availability: %v", err)
	}
	unit, ctx, done, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Availability{}, err
	}
	defer done()

	cal, err := unit.Availability().Calendar(ctx, domainproperties.PropertyID(q.PropertyID))
	if err != nil {
		return dto.Availability{}, err
	}
	res := cal.Check(r)
	return dto.Availability{
		PropertyID: q.PropertyID,
		CheckIn:    r.Start.Format(daterange.Layout),
		CheckOut:   r.End.Format(daterange.Layout),
		Available:  res.Available,
		Conflicts:  dto.MapBlocks(res.Conflicts),
	}, nil
}

var _ queries.Handler[CheckAvailabilityQuery, dto.Availability] = (*CheckAvailabilityHandler)(nil)
