package uow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type hookedUnit struct {
	UnitOfWork
	Hooks
}

func TestHooksRunOnCommit(t *testing.T) {
	unit := &hookedUnit{}
	ctx := ContextWithUnitOfWork(context.Background(), unit)

	var order []string
	AfterCommit(ctx, func(context.Context) { order = append(order, "commit") })
	assert.True(t, OnFinish(ctx, func() { order = append(order, "finish") }))
	assert.Empty(t, order)

	unit.RunCommitted(ctx)
	assert.Equal(t, []string{"finish", "commit"}, order)

	unit.RunCommitted(ctx)
	assert.Len(t, order, 2, "hooks run once")
}

func TestHooksDropCommitCallbacksOnRollback(t *testing.T) {
	unit := &hookedUnit{}
	ctx := ContextWithUnitOfWork(context.Background(), unit)

	committed, finished := false, false
	AfterCommit(ctx, func(context.Context) { committed = true })
	OnFinish(ctx, func() { finished = true })
	unit.RunRolledBack()

	assert.False(t, committed)
	assert.True(t, finished)
}

func TestHooksWithoutUnit(t *testing.T) {
	ran := false
	AfterCommit(context.Background(), func(context.Context) { ran = true })
	assert.True(t, ran)
	assert.False(t, OnFinish(context.Background(), func() {}))
}
