package mongo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

type fakeSession struct {
	mongo.Session
	commitErr error
	commits   int
	aborts    int
	ends      int
}

func (s *fakeSession) CommitTransaction(context.Context) error {
	s.commits++
	return s.commitErr
}

func (s *fakeSession) AbortTransaction(context.Context) error {
	s.aborts++
	return nil
}

func (s *fakeSession) EndSession(context.Context) {
	s.ends++
}

func TestRollbackAfterFailedCommitIsNoop(t *testing.T) {
	ctx := context.Background()
	session := &fakeSession{commitErr: errors.New("commit failed")}
	unit := &Unit{session: session}
	finished := 0
	unit.OnFinish(func() { finished++ })

	require.Error(t, unit.Commit(ctx))
	require.NoError(t, unit.Rollback(ctx))

	assert.Equal(t, 1, session.commits)
	assert.Zero(t, session.aborts)
	assert.Equal(t, 1, session.ends)
	assert.Equal(t, 1, finished)
	assert.ErrorIs(t, unit.Commit(ctx), errUnitFinished)
}

func TestRollbackAbortsOnce(t *testing.T) {
	ctx := context.Background()
	session := &fakeSession{}
	unit := &Unit{session: session}

	require.NoError(t, unit.Rollback(ctx))
	require.NoError(t, unit.Rollback(ctx))
	assert.Equal(t, 1, session.aborts)
	assert.Equal(t, 1, session.ends)
}
