package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"

	"staysync/internal/app/uow"
	domainavailability "staysync/internal/domain/availability"
	domainbooking "staysync/internal/domain/booking"
	domainproperties "staysync/internal/domain/properties"
	domainsynclog "staysync/internal/domain/synclog"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
// SyncLogRepo may live outside Mongo; its writes then do not join the
// transaction.
type Factory struct {
	DB *mongo.Database

	PropertiesRepo   domainproperties.Repository
	AvailabilityRepo domainavailability.Repository
	BookingsRepo     domainbooking.Repository
	SyncLogRepo      domainsynclog.Repository
}

var (
	ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")
	errUnitFinished            = errors.New("mongo: unit of work already finished")
)

// NewFactory builds a factory over the Mongo repositories of db.
func NewFactory(db *mongo.Database) Factory {
	return Factory{
		DB:               db,
		PropertiesRepo:   NewPropertyRepository(db),
		AvailabilityRepo: NewCalendarRepository(db),
		BookingsRepo:     NewBookingRepository(db),
		SyncLogRepo:      NewSyncLogRepository(db),
	}
}

// Begin starts a MongoDB session/transaction.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(readconcern.Snapshot()).SetWriteConcern(f.DB.WriteConcern())
	if opts.ReadOnly {
		txnOpts = options.Transaction().SetReadConcern(f.DB.ReadConcern())
	}
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		session:      session,
		properties:   f.PropertiesRepo,
		availability: f.AvailabilityRepo,
		bookings:     f.BookingsRepo,
		syncLog:      f.SyncLogRepo,
	}, nil
}

type Unit struct {
	uow.Hooks
	session  mongo.Session
	finished bool

	properties   domainproperties.Repository
	availability domainavailability.Repository
	bookings     domainbooking.Repository
	syncLog      domainsynclog.Repository
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

// Commit ends the session whatever the outcome; a later Rollback is a no-op.
func (u *Unit) Commit(ctx context.Context) error {
	if u.finished {
		return errUnitFinished
	}
	u.finished = true
	defer u.session.EndSession(ctx)
	if err := u.session.CommitTransaction(ctx); err != nil {
		u.RunRolledBack()
		return translateTxnError(err)
	}
	u.RunCommitted(ctx)
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	if u.finished {
		return nil
	}
	u.finished = true
	defer u.session.EndSession(ctx)
	defer u.RunRolledBack()
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

// translateTxnError maps write conflicts between concurrent transactions
// onto the calendar's concurrency error so callers see Unavailable.
func translateTxnError(err error) error {
	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) && serverErr.HasErrorLabel("TransientTransactionError") {
		return errors.Join(domainavailability.ErrConcurrentUpdate, err)
	}
	return err
}
