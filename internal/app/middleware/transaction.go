package middleware

import (
	"context"
	"fmt"

	"staysync/internal/app/commands"
	"staysync/internal/app/uow"
)

// TxOptionsProvider picks transaction options per command.
type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// ReadOnlyCommand marks commands that only read inside their unit.
type ReadOnlyCommand interface {
	ReadOnly() bool
}

func defaultTxOptions(cmd commands.Command) uow.TxOptions {
	if ro, ok := cmd.(ReadOnlyCommand); ok {
		return uow.TxOptions{ReadOnly: ro.ReadOnly()}
	}
	return uow.TxOptions{}
}

// Transaction runs each command in its own unit of work, committing only when
// the handler succeeds.
func Transaction(factory uow.UoWFactory, optsProvider TxOptionsProvider) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	if optsProvider == nil {
		optsProvider = defaultTxOptions
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			unit, err := factory.Begin(ctx, optsProvider(cmd))
			if err != nil {
				return nil, fmt.Errorf("begin %s: %w", cmd.Key(), err)
			}
			execCtx := uow.Bind(ctx, unit)
			res, err := next.Dispatch(execCtx, cmd)
			if err != nil {
				_ = unit.Rollback(execCtx)
				return nil, err
			}
			if err := unit.Commit(execCtx); err != nil {
				_ = unit.Rollback(execCtx)
				return nil, fmt.Errorf("commit %s: %w", cmd.Key(), err)
			}
			return res, nil
		})
	}
}
