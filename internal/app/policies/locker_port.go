package policies

import (
	"context"
	"errors"
)

var ErrLockTimeout = errors.New("policies: lock not acquired in time")

// PropertyLocker serializes calendar writers of one property.
type PropertyLocker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}
