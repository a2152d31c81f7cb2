package memory

import (
	"context"
	"errors"
	"sync"

	"staysync/internal/app/uow"
	domainavailability "staysync/internal/domain/availability"
	domainbooking "staysync/internal/domain/booking"
	domainproperties "staysync/internal/domain/properties"
	domainsynclog "staysync/internal/domain/synclog"
)

// Factory wires in-memory repositories into a unit-of-work boundary. The
// repositories hold committed state; units stage their writes on top of them.
type Factory struct {
	PropertiesRepo   domainproperties.Repository
	AvailabilityRepo domainavailability.Repository
	BookingsRepo     domainbooking.Repository
	SyncLogRepo      domainsynclog.Repository

	commitMu *sync.Mutex
}

var (
	// ErrFactoryMisconfigured indicates missing repositories.
	ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")
	ErrUnitFinished         = errors.New("memory: unit of work already finished")
)

// sharedCommitMu serializes commits of factories built without NewFactory.
var sharedCommitMu sync.Mutex

// NewFactory builds a factory over fresh repositories.
func NewFactory() Factory {
	return Factory{
		PropertiesRepo:   NewPropertyRepository(),
		AvailabilityRepo: NewCalendarRepository(),
		BookingsRepo:     NewBookingRepository(),
		SyncLogRepo:      NewSyncLogRepository(),
		commitMu:         &sync.Mutex{},
	}
}

// Begin starts a unit that buffers every write. Reads inside the unit see its
// own staged writes; nothing reaches the repositories before Commit.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.PropertiesRepo == nil || f.AvailabilityRepo == nil || f.BookingsRepo == nil || f.SyncLogRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	mu := f.commitMu
	if mu == nil {
		mu = &sharedCommitMu
	}
	return &Unit{
		commitMu:     mu,
		properties:   newPropertyTx(f.PropertiesRepo),
		availability: newCalendarTx(f.AvailabilityRepo),
		bookings:     newBookingTx(f.BookingsRepo),
		syncLog:      &syncLogTx{base: f.SyncLogRepo},
	}, nil
}

// Unit is a uow.UnitOfWork backed by in-memory stores.
type Unit struct {
	uow.Hooks
	commitMu *sync.Mutex
	finished bool

	properties   *propertyTx
	availability *calendarTx
	bookings     *bookingTx
	syncLog      *syncLogTx
}

func (u *Unit) Properties() domainproperties.Repository {
	return u.properties
}

func (u *Unit) Availability() domainavailability.Repository {
	return u.availability
}

func (u *Unit) Bookings() domainbooking.Repository {
	return u.bookings
}

func (u *Unit) SyncLog() domainsynclog.Repository {
	return u.syncLog
}

// Commit re-checks every staged calendar and booking against the stores and
// applies all writes only if none of them moved. A conflict discards the unit.
func (u *Unit) Commit(ctx context.Context) error {
	if u.finished {
		return ErrUnitFinished
	}
	u.finished = true
	if err := u.apply(ctx); err != nil {
		u.RunRolledBack()
		return err
	}
	u.RunCommitted(ctx)
	return nil
}

// Rollback discards staged writes. It is a no-op on a finished unit.
func (u *Unit) Rollback(ctx context.Context) error {
	if u.finished {
		return nil
	}
	u.finished = true
	u.RunRolledBack()
	return nil
}

func (u *Unit) apply(ctx context.Context) error {
	u.commitMu.Lock()
	defer u.commitMu.Unlock()
	if err := u.availability.validate(ctx); err != nil {
		return err
	}
	if err := u.bookings.validate(ctx); err != nil {
		return err
	}
	if err := u.properties.apply(ctx); err != nil {
		return err
	}
	if err := u.availability.apply(ctx); err != nil {
		return err
	}
	if err := u.bookings.apply(ctx); err != nil {
		return err
	}
	return u.syncLog.apply(ctx)
}
