// Package redis provides the per-property lock across service instances.
package redis

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"staysync/internal/app/policies"
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another instance is never released by us.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

// Client is the part of the redis client the locker needs.
type Client interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *goredis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *goredis.Cmd
}

// Locker takes "lock:<key>" with SET NX PX and polls until Wait elapses.
type Locker struct {
	Client Client
	TTL    time.Duration
	Wait   time.Duration
	Poll   time.Duration
	Logger *slog.Logger
}

func NewLocker(client Client, ttl time.Duration) *Locker {
	return &Locker{Client: client, TTL: ttl, Wait: ttl, Poll: 25 * time.Millisecond}
}

func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := "lock:" + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait())
	for {
		ok, err := l.Client.SetNX(ctx, redisKey, token, l.ttl()).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return l.releaser(redisKey, token), nil
		}
		if time.Now().After(deadline) {
			return nil, policies.ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.poll()):
		}
	}
}

func (l *Locker) releaser(key, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			err := l.Client.Eval(ctx, releaseScript, []string{key}, token).Err()
			if err != nil && !errors.Is(err, goredis.Nil) && l.Logger != nil {
				l.Logger.Warn("lock release failed", "key", key, "err", err)
			}
		})
	}
}

func (l *Locker) ttl() time.Duration {
	if l.TTL <= 0 {
		return 10 * time.Second
	}
	return l.TTL
}

func (l *Locker) wait() time.Duration {
	if l.Wait <= 0 {
		return l.ttl()
	}
	return l.Wait
}

func (l *Locker) poll() time.Duration {
	if l.Poll <= 0 {
		return 25 * time.Millisecond
	}
	return l.Poll
}

var _ policies.PropertyLocker = (*Locker)(nil)
