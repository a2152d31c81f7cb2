package middleware

import (
	"context"

	"staysync/internal/domain/shared/fault"
)

// ErrActorRequired is returned for messages that need an authenticated caller.
var ErrActorRequired = fault.New("middleware", "authenticated caller required", fault.ErrUnauthenticated)

// ActorBound is implemented by messages issued on behalf of a caller.
type ActorBound interface {
	Actor() string
}

// RequireActor rejects actor-bound messages without an actor. Ownership checks
// stay with the handlers, which know the aggregate.
type RequireActor struct{}

func (RequireActor) Authorize(_ context.Context, message any) error {
	if bound, ok := message.(ActorBound); ok && bound.Actor() == "" {
		return ErrActorRequired
	}
	return nil
}

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return guardCommands(a.Authorize)
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return guardQueries(a.Authorize)
}
