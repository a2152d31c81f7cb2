package sync

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"staysync/internal/app/handlers/support"
	"staysync/internal/app/outbox"
	"staysync/internal/app/policies"
	"staysync/internal/app/uow"
	domainbooking "staysync/internal/domain/booking"
	"staysync/internal/domain/channels"
	domainpricing "staysync/internal/domain/pricing"
	domainproperties "staysync/internal/domain/properties"
	"staysync/internal/domain/shared/daterange"
	"staysync/internal/infra/storage/memory"
)

var testNow = time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)

type fakeGateway struct {
	mu      gosync.Mutex
	failing map[channels.Platform]int
	calls   []policies.BlockDatesRequest
}

func (g *fakeGateway) BlockDates(ctx context.Context, req policies.BlockDatesRequest) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, req)
	if g.failing[req.Platform] != 0 {
		if g.failing[req.Platform] > 0 {
			g.failing[req.Platform]--
		}
		return errors.New(string(req.Platform) + " unreachable")
	}
	return nil
}

func (g *fakeGateway) callsFor(p channels.Platform) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if c.Platform == p {
			n++
		}
	}
	return n
}

type fixture struct {
	factory memory.Factory
	box     *memory.Outbox
	locker  *memory.KeyedLocker
	gateway *fakeGateway
	clock   support.Clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		factory: memory.NewFactory(),
		box:     memory.NewOutbox(nil),
		locker:  memory.NewKeyedLocker(time.Second),
		gateway: &fakeGateway{failing: map[channels.Platform]int{}},
		clock:   func() time.Time { return testNow },
	}
	p, err := domainproperties.New(domainproperties.CreateParams{
		ID:      "prop-1",
		HostID:  "host-1",
		Pricing: domainproperties.Pricing{BasePrice: 5000, CleaningFee: 500, ServiceFee: 300, Currency: "USD"},
		Connections: channels.Connections{
			channels.Airbnb:     "air-1",
			channels.Agoda:      "ago-1",
			channels.BookingCom: "bcom-1",
		},
		Now: testNow,
	})
	require.NoError(t, err)
	require.NoError(t, f.factory.PropertiesRepo.Save(context.Background(), p))
	return f
}

func (f *fixture) engine() *SyncEngine {
	return &SyncEngine{UoWFactory: f.factory, Gateway: f.gateway, Clock: f.clock}
}

func (f *fixture) ingestHandler() *IngestHandler {
	return &IngestHandler{Locker: f.locker, Outbox: f.box, Encoder: outbox.JSONEventEncoder{}, Clock: f.clock}
}

func (f *fixture) seedDirectBooking(t *testing.T, id, from, to string) *domainbooking.Booking {
	t.Helper()
	r := daterange.MustParse(from, to)
	quote, err := domainpricing.Calculate(domainproperties.Pricing{BasePrice: 5000, CleaningFee: 500, ServiceFee: 300, Currency: "USD"}, r)
	require.NoError(t, err)
	b, err := domainbooking.NewDirect(domainbooking.DirectParams{
		ID: domainbooking.BookingID(id), PropertyID: "prop-1", GuestID: "guest-1", Range: r,
		Guests: domainbooking.Guests{Adults: 2}, Price: quote, PaymentType: domainpricing.PaymentFull, Now: testNow,
	})
	require.NoError(t, err)
	require.NoError(t, f.factory.BookingsRepo.Save(context.Background(), b))
	return b
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
