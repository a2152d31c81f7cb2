// Package uow defines the transactional boundary every booking, block and
// sync-log write runs in. Memory and mongo storage both implement it.
package uow

import (
	"context"
	"errors"

	domainavailability "staysync/internal/domain/availability"
	domainbooking "staysync/internal/domain/booking"
	domainproperties "staysync/internal/domain/properties"
	domainsynclog "staysync/internal/domain/synclog"
)

var ErrUnitOfWorkMissing = errors.New("uow: unit of work missing from context")

// UnitOfWork exposes the repositories of one transaction. Availability checks
// and the writes they guard must share a unit.
type UnitOfWork interface {
	Properties() domainproperties.Repository
	Availability() domainavailability.Repository
	Bookings() domainbooking.Repository
	SyncLog() domainsynclog.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}

// ContextInjector is implemented by units that carry driver state (e.g. a
// mongo session) in the context.
type ContextInjector interface {
	InjectContext(ctx context.Context) context.Context
}

type ctxKey struct{}

// ContextWithUnitOfWork stores unit in ctx without touching driver state.
func ContextWithUnitOfWork(ctx context.Context, unit UnitOfWork) context.Context {
	return context.WithValue(ctx, ctxKey{}, unit)
}

// Bind prepares ctx for work inside unit: driver state first, then the unit.
func Bind(ctx context.Context, unit UnitOfWork) context.Context {
	if injector, ok := unit.(ContextInjector); ok {
		ctx = injector.InjectContext(ctx)
	}
	return ContextWithUnitOfWork(ctx, unit)
}

func FromContext(ctx context.Context) (UnitOfWork, bool) {
	unit, ok := ctx.Value(ctxKey{}).(UnitOfWork)
	return unit, ok
}
