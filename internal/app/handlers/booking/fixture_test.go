package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"staysync/internal/app/dto"
	"staysync/internal/app/handlers/support"
	"staysync/internal/app/outbox"
	"staysync/internal/app/uow"
	domainproperties "staysync/internal/domain/properties"
	"staysync/internal/infra/storage/memory"
)

var testNow = time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)

type fixture struct {
	factory memory.Factory
	box     *memory.Outbox
	locker  *memory.KeyedLocker
	clock   support.Clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		factory: memory.NewFactory(),
		box:     memory.NewOutbox(nil),
		locker:  memory.NewKeyedLocker(time.Second),
		clock:   func() time.Time { return testNow },
	}
	property, err := domainproperties.New(domainproperties.CreateParams{
		ID:      "prop-1",
		HostID:  "host-1",
		Title:   "Lake house",
		Pricing: domainproperties.Pricing{BasePrice: 5000, CleaningFee: 500, ServiceFee: 300, Currency: "USD"},
		Now:     testNow,
	})
	require.NoError(t, err)
	require.NoError(t, f.factory.PropertiesRepo.Save(context.Background(), property))
	return f
}

func (f *fixture) createHandler() *CreateBookingHandler {
	return &CreateBookingHandler{Locker: f.locker, Outbox: f.box, Encoder: outbox.JSONEventEncoder{}, Clock: f.clock}
}

func (f *fixture) confirmHandler() *ConfirmPaymentHandler {
	return &ConfirmPaymentHandler{Locker: f.locker, Outbox: f.box, Encoder: outbox.JSONEventEncoder{}, Clock: f.clock}
}

func (f *fixture) statusHandler() *UpdateBookingStatusHandler {
	return &UpdateBookingStatusHandler{Locker: f.locker, Outbox: f.box, Encoder: outbox.JSONEventEncoder{}, Clock: f.clock}
}

func inUnit[R any](f *fixture, fn func(ctx context.Context) (R, error)) (R, error) {
	var out R
	err := support.InUnit(context.Background(), f.factory, func(ctx context.Context, _ uow.UnitOfWork) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}

func createCommand(checkIn, checkOut string) CreateBookingCommand {
	return CreateBookingCommand{
		GuestID:       "guest-1",
		PropertyID:    "prop-1",
		CheckIn:       checkIn,
		CheckOut:      checkOut,
		Guests:        dto.Guests{Adults: 2},
		PaymentMethod: "card",
		PaymentType:   "full",
	}
}
