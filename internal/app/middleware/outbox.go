package middleware

import (
	"context"
	"fmt"

	"staysync/internal/app/commands"
	"staysync/internal/app/outbox"
)

// OutboxFlush gives buffering outboxes a chance to write their records while
// the command's unit is still open. A failed flush fails the command.
func OutboxFlush(box outbox.Outbox) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := box.Flush(ctx); err != nil {
				return nil, fmt.Errorf("flush events of %s: %w", cmd.Key(), err)
			}
			return res, nil
		})
	}
}
