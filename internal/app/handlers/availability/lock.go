package availability

import (
	"context"

	"staysync/internal/app/policies"
	"staysync/internal/app/uow"
	domainproperties "staysync/internal/domain/properties"
)

// LockProperty takes the property lock for the rest of the current unit of
// work. Without a locker it is a no-op and the calendar version check alone
// guards concurrent writers.
func LockProperty(ctx context.Context, locker policies.PropertyLocker, id domainproperties.PropertyID) error {
	if locker == nil {
		return nil
	}
	release, err := locker.Lock(ctx, "property:"+string(id))
	if err != nil {
		return err
	}
	if !uow.OnFinish(ctx, release) {
		release()
	}
	return nil
}
