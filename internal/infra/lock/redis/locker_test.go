package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staysync/internal/app/policies"
)

// fakeClient emulates SET NX and the compare-and-delete script.
type fakeClient struct {
	mu    sync.Mutex
	keys  map[string]string
	evals int
}

func newFakeClient() *fakeClient {
	return &fakeClient{keys: map[string]string{}}
}

func (c *fakeClient) SetNX(_ context.Context, key string, value any, _ time.Duration) *goredis.BoolCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, taken := c.keys[key]; taken {
		return goredis.NewBoolResult(false, nil)
	}
	c.keys[key] = value.(string)
	return goredis.NewBoolResult(true, nil)
}

func (c *fakeClient) Eval(_ context.Context, _ string, keys []string, args ...any) *goredis.Cmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evals++
	if c.keys[keys[0]] == args[0].(string) {
		delete(c.keys, keys[0])
		return goredis.NewCmdResult(int64(1), nil)
	}
	return goredis.NewCmdResult(int64(0), nil)
}

func TestLockerExcludesSecondHolder(t *testing.T) {
	client := newFakeClient()
	l := &Locker{Client: client, TTL: time.Second, Wait: 30 * time.Millisecond, Poll: 5 * time.Millisecond}

	release, err := l.Lock(context.Background(), "property:p1")
	require.NoError(t, err)
	assert.Contains(t, client.keys, "lock:property:p1")

	_, err = l.Lock(context.Background(), "property:p1")
	assert.ErrorIs(t, err, policies.ErrLockTimeout)

	release()
	release()
	assert.Equal(t, 1, client.evals)
	assert.NotContains(t, client.keys, "lock:property:p1")

	again, err := l.Lock(context.Background(), "property:p1")
	require.NoError(t, err)
	again()
}

func TestReleaseKeepsForeignToken(t *testing.T) {
	client := newFakeClient()
	l := NewLocker(client, time.Second)
	release, err := l.Lock(context.Background(), "property:p2")
	require.NoError(t, err)

	// lock expired and another instance took it
	client.keys["lock:property:p2"] = "someone-else"
	release()
	assert.Equal(t, "someone-else", client.keys["lock:property:p2"])
}
