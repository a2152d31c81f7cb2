package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staysync/internal/app/commands"
	"staysync/internal/app/uow"
	"staysync/internal/domain/shared/fault"
)

type echoCommand struct {
	Value   string
	ActorID string
	IdemKey string
	Fail    error
}

func (c echoCommand) Key() string            { return "test.echo" }
func (c echoCommand) IdempotencyKey() string { return c.IdemKey }
func (c echoCommand) ResultPrototype() any   { return &echoResult{} }
func (c echoCommand) Actor() string          { return c.ActorID }
func (c echoCommand) Fingerprint() string    { return c.Value }
func (c echoCommand) Validate() error {
	if c.Value == "" {
		return fault.New("test", "value required", fault.ErrInvalidInput)
	}
	return nil
}

type echoResult struct {
	Value string `json:"value"`
	Calls int    `json:"calls"`
}

type memoryIdemStore struct {
	mu    sync.Mutex
	items map[string]IdempotencyRecord
}

func (s *memoryIdemStore) Get(_ context.Context, key string) (IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[key]
	return rec, ok, nil
}

func (s *memoryIdemStore) Save(_ context.Context, rec IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[rec.Key] = rec
	return nil
}

func newEchoBus(calls *int) *commands.InMemoryBus {
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler[echoCommand, *echoResult](bus, "test.echo", commands.HandlerFunc[echoCommand, *echoResult](
		func(ctx context.Context, cmd echoCommand) (*echoResult, error) {
			*calls++
			if cmd.Fail != nil {
				return nil, cmd.Fail
			}
			return &echoResult{Value: cmd.Value, Calls: *calls}, nil
		}))
	return bus
}

func TestIdempotencyReplaysResult(t *testing.T) {
	calls := 0
	store := &memoryIdemStore{items: map[string]IdempotencyRecord{}}
	bus := ChainCommands(newEchoBus(&calls), Idempotency(store, nil))

	first, err := commands.Dispatch[echoCommand, *echoResult](context.Background(), bus, echoCommand{Value: "a", IdemKey: "k1"})
	require.NoError(t, err)
	second, err := commands.Dispatch[echoCommand, *echoResult](context.Background(), bus, echoCommand{Value: "a", IdemKey: "k1"})
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
}

func TestIdempotencyReplaysDomainErrorsWithKind(t *testing.T) {
	calls := 0
	store := &memoryIdemStore{items: map[string]IdempotencyRecord{}}
	bus := ChainCommands(newEchoBus(&calls), Idempotency(store, nil))
	notFound := fault.New("booking", "not found", fault.ErrNotFound)

	_, err := commands.Dispatch[echoCommand, *echoResult](context.Background(), bus, echoCommand{Value: "a", IdemKey: "k2", Fail: notFound})
	require.ErrorIs(t, err, fault.ErrNotFound)
	_, err = commands.Dispatch[echoCommand, *echoResult](context.Background(), bus, echoCommand{Value: "a", IdemKey: "k2"})
	assert.ErrorIs(t, err, fault.ErrNotFound)
	assert.Equal(t, 1, calls)
}

func TestIdempotencyRejectsReusedKey(t *testing.T) {
	calls := 0
	store := &memoryIdemStore{items: map[string]IdempotencyRecord{}}
	bus := ChainCommands(newEchoBus(&calls), Idempotency(store, nil))

	_, err := commands.Dispatch[echoCommand, *echoResult](context.Background(), bus, echoCommand{Value: "a", IdemKey: "k4"})
	require.NoError(t, err)
	_, err = commands.Dispatch[echoCommand, *echoResult](context.Background(), bus, echoCommand{Value: "b", IdemKey: "k4"})
	assert.ErrorIs(t, err, ErrKeyReused)
	assert.ErrorIs(t, err, fault.ErrInvalidInput)
	assert.Equal(t, 1, calls)
	assert.NotEmpty(t, store.items["test.echo:k4"].Fingerprint)
}

func TestIdempotencySkipsTransientErrors(t *testing.T) {
	calls := 0
	store := &memoryIdemStore{items: map[string]IdempotencyRecord{}}
	bus := ChainCommands(newEchoBus(&calls), Idempotency(store, nil))

	_, err := commands.Dispatch[echoCommand, *echoResult](context.Background(), bus, echoCommand{Value: "a", IdemKey: "k3", Fail: errors.New("io timeout")})
	require.Error(t, err)
	res, err := commands.Dispatch[echoCommand, *echoResult](context.Background(), bus, echoCommand{Value: "a", IdemKey: "k3"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Calls)
}

func TestValidationAndActor(t *testing.T) {
	calls := 0
	bus := ChainCommands(newEchoBus(&calls), Authorization(RequireActor{}), Validation(SelfValidator{}))

	_, err := commands.Dispatch[echoCommand, *echoResult](context.Background(), bus, echoCommand{Value: "a"})
	assert.ErrorIs(t, err, fault.ErrUnauthenticated)

	_, err = commands.Dispatch[echoCommand, *echoResult](context.Background(), bus, echoCommand{ActorID: "u1"})
	assert.ErrorIs(t, err, fault.ErrInvalidInput)

	_, err = commands.Dispatch[echoCommand, *echoResult](context.Background(), bus, echoCommand{ActorID: "u1", Value: "a"})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

type recordingUnit struct {
	uow.UnitOfWork
	opts                  uow.TxOptions
	commitErr             error
	committed, rolledBack bool
}

func (u *recordingUnit) Commit(context.Context) error {
	if u.commitErr != nil {
		return u.commitErr
	}
	u.committed = true
	return nil
}
func (u *recordingUnit) Rollback(context.Context) error { u.rolledBack = true; return nil }

type recordingFactory struct {
	units     []*recordingUnit
	commitErr error
}

func (f *recordingFactory) Begin(_ context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	u := &recordingUnit{opts: opts, commitErr: f.commitErr}
	f.units = append(f.units, u)
	return u, nil
}

func TestTransactionCommitsOrRollsBack(t *testing.T) {
	calls := 0
	factory := &recordingFactory{}
	bus := ChainCommands(newEchoBus(&calls), Transaction(factory, nil))

	_, err := commands.Dispatch[echoCommand, *echoResult](context.Background(), bus, echoCommand{Value: "ok"})
	require.NoError(t, err)
	_, err = commands.Dispatch[echoCommand, *echoResult](context.Background(), bus, echoCommand{Value: "x", Fail: errors.New("boom")})
	require.Error(t, err)

	require.Len(t, factory.units, 2)
	assert.True(t, factory.units[0].committed)
	assert.False(t, factory.units[0].rolledBack)
	assert.False(t, factory.units[1].committed)
	assert.True(t, factory.units[1].rolledBack)
}

type lookupCommand struct{}

func (lookupCommand) Key() string    { return "test.lookup" }
func (lookupCommand) ReadOnly() bool { return true }

func TestTransactionOptionsAndCommitFailure(t *testing.T) {
	factory := &recordingFactory{}
	base := commands.NewInMemoryBus()
	commands.RegisterHandler[lookupCommand, string](base, "test.lookup", commands.HandlerFunc[lookupCommand, string](
		func(ctx context.Context, _ lookupCommand) (string, error) {
			_, bound := uow.FromContext(ctx)
			assert.True(t, bound)
			return "ok", nil
		}))
	bus := ChainCommands(base, Transaction(factory, nil))

	_, err := commands.Dispatch[lookupCommand, string](context.Background(), bus, lookupCommand{})
	require.NoError(t, err)
	require.Len(t, factory.units, 1)
	assert.True(t, factory.units[0].opts.ReadOnly)

	factory.commitErr = fault.New("availability", "calendar changed concurrently", fault.ErrUnavailable)
	_, err = commands.Dispatch[lookupCommand, string](context.Background(), bus, lookupCommand{})
	assert.ErrorIs(t, err, fault.ErrUnavailable)
	assert.ErrorContains(t, err, "commit test.lookup")
	assert.True(t, factory.units[1].rolledBack)
}
