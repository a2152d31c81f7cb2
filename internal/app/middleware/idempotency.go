package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"reflect"
	"time"

	"staysync/internal/app/commands"
	"staysync/internal/domain/shared/fault"
)

// IdempotentCommand is implemented by commands a client may safely retry,
// such as booking creation and payment confirmation.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	// ResultPrototype returns a pointer of the handler's result type.
	ResultPrototype() any
}

// Fingerprinted commands describe the request a key was first used for.
// Reusing the key for a different request is rejected instead of replayed.
type Fingerprinted interface {
	Fingerprint() string
}

// ErrKeyReused is returned when an idempotency key arrives with a different request.
var ErrKeyReused = fault.New("idempotency", "key already used for a different request", fault.ErrInvalidInput)

type IdempotencyRecord struct {
	Key         string
	Fingerprint string
	Payload     []byte
	Error       string
	ErrorKind   string
	OccurredAt  time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error) { return json.Marshal(v) }

func (JSONResultCodec) Decode(data []byte, out any) error { return json.Unmarshal(data, out) }

var errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")

type idempotency struct {
	store IdempotencyStore
	codec ResultCodec
	now   func() time.Time
}

// Idempotency replays the stored outcome of a command whose key was seen
// before. Only successes and stable domain failures are stored.
func Idempotency(store IdempotencyStore, codec ResultCodec) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	mw := idempotency{store: store, codec: codec, now: time.Now}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok || idCmd.IdempotencyKey() == "" {
				return next.Dispatch(ctx, cmd)
			}
			key := cmd.Key() + ":" + idCmd.IdempotencyKey()
			fingerprint := fingerprintOf(cmd)

			rec, found, err := mw.store.Get(ctx, key)
			if err != nil {
				return nil, err
			}
			if found {
				return mw.replay(rec, idCmd, fingerprint)
			}
			result, err := next.Dispatch(ctx, cmd)
			if err != nil && !replayable(err) {
				return nil, err
			}
			if saveErr := mw.remember(ctx, key, fingerprint, result, err); saveErr != nil {
				return nil, errors.Join(err, saveErr)
			}
			return result, err
		})
	}
}

func (m idempotency) replay(rec IdempotencyRecord, cmd IdempotentCommand, fingerprint string) (any, error) {
	if rec.Fingerprint != "" && fingerprint != "" && rec.Fingerprint != fingerprint {
		return nil, ErrKeyReused
	}
	if rec.Error != "" {
		return nil, fault.Restore(rec.Error, rec.ErrorKind)
	}
	proto := cmd.ResultPrototype()
	if proto == nil {
		return nil, errMissingPrototype
	}
	if len(rec.Payload) == 0 {
		return nil, nil
	}
	if err := m.codec.Decode(rec.Payload, proto); err != nil {
		return nil, err
	}
	return normalizePrototype(proto), nil
}

func (m idempotency) remember(ctx context.Context, key, fingerprint string, result any, outcome error) error {
	rec := IdempotencyRecord{Key: key, Fingerprint: fingerprint, OccurredAt: m.now().UTC()}
	if outcome != nil {
		rec.Error = outcome.Error()
		rec.ErrorKind = fault.KindOf(outcome).Error()
	} else if result != nil {
		payload, err := m.codec.Encode(result)
		if err != nil {
			return err
		}
		rec.Payload = payload
	}
	return m.store.Save(ctx, rec)
}

func fingerprintOf(cmd commands.Command) string {
	f, ok := cmd.(Fingerprinted)
	if !ok {
		return ""
	}
	sum := sha256.Sum256([]byte(cmd.Key() + "\x00" + f.Fingerprint()))
	return hex.EncodeToString(sum[:])
}

// replayable reports whether a failure is a stable domain outcome worth
// replaying. Conflicts and platform outages are left for the client to retry.
func replayable(err error) bool {
	kind := fault.KindOf(err)
	return kind != nil && kind != fault.ErrUnavailable && kind != fault.ErrExternalSync
}

func normalizePrototype(proto any) any {
	rv := reflect.ValueOf(proto)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		return rv.Interface()
	}
	return proto
}
