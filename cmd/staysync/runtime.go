package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"staysync/internal/app/commands"
	holdsapp "staysync/internal/app/handlers/holds"
	syncapp "staysync/internal/app/handlers/sync"
	"staysync/internal/app/policies"
	"staysync/internal/app/schedule"
	"staysync/internal/app/tasks"
	"staysync/internal/app/uow"
	"staysync/internal/app/wiring"
	domainsynclog "staysync/internal/domain/synclog"
	"staysync/internal/infra/broker/envelope"
	"staysync/internal/infra/broker/kafka"
	"staysync/internal/infra/config"
	mongodb "staysync/internal/infra/db/mongo"
	"staysync/internal/infra/inbox"
	redislock "staysync/internal/infra/lock/redis"
	"staysync/internal/infra/obs"
	infraoutbox "staysync/internal/infra/outbox"
	"staysync/internal/infra/platforms"
	"staysync/internal/infra/security"
	"staysync/internal/infra/storage/memory"
	"staysync/internal/infra/storage/s3"
	"staysync/internal/infra/storage/scylla"
)

const (
	eventSource      = "staysync"
	channelRawTopic  = "channel.bookings.v1"
	archiveInterval  = time.Hour
	memoryLockWait   = 5 * time.Second
	dispatchWorkers  = 4
	platformBurst    = 1
	defaultJWTIssuer = "staysync"
)

// runtime is the assembled process: storage, buses and background workers
// for one configuration.
type runtime struct {
	cfg    config.Config
	logger *slog.Logger

	app     *wiring.App
	factory uow.UoWFactory

	dispatcher *memory.Dispatcher
	worker     *infraoutbox.Worker
	consumer   *kafka.Consumer
	topics     []string
	archiver   *s3.Archiver

	tokens *security.Tokens
	keys   *security.ChannelKeys

	checks  map[string]obs.Check
	closers []func(context.Context) error
}

func buildRuntime(ctx context.Context, cfg config.Config, logger *slog.Logger) (*runtime, error) {
	rt := &runtime{cfg: cfg, logger: logger, checks: map[string]obs.Check{}}
	ok := false
	defer func() {
		if !ok {
			rt.close(context.Background())
		}
	}()

	deps := wiring.Deps{
		Retry:   syncapp.RetryPolicy{Backoff: cfg.RetryBackoff, CallTimeout: cfg.PlatformCallTimeout},
		HoldTTL: cfg.HoldTTL,
		Logger:  logger,
	}
	policy, err := policies.ParseExpiredHoldPolicy(cfg.ExpiredHoldPolicy)
	if err != nil {
		return nil, err
	}
	deps.HoldPolicy = policy

	var pruner domainsynclog.Pruner
	var db *mongodb.Client
	switch cfg.Storage {
	case config.StorageMongo:
		db, err = mongodb.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}
		rt.closers = append(rt.closers, db.Close)
		rt.checks["mongo"] = db.Ping
		if err := db.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		factory := mongodb.NewFactory(db.DB)
		syncLog, p, err := rt.syncLogBackend(ctx, factory.SyncLogRepo)
		if err != nil {
			return nil, err
		}
		factory.SyncLogRepo, pruner = syncLog, p
		deps.UoW = factory

		store, err := infraoutbox.NewStore(ctx, db.DB)
		if err != nil {
			return nil, fmt.Errorf("outbox store: %w", err)
		}
		deps.Outbox = store
		if deps.Idempotency, err = mongodb.NewIdempotencyStore(ctx, db.DB, cfg.IdempotencyTTL); err != nil {
			return nil, fmt.Errorf("idempotency store: %w", err)
		}
		deps.Loyalty = mongodb.NewLoyaltyLedger(db.DB)

		producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		rt.closers = append(rt.closers, func(context.Context) error { return producer.Close() })
		rt.worker = &infraoutbox.Worker{
			Store:       store,
			Producer:    producer,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Source:      eventSource,
			Backoff:     cfg.RetryBackoff,
			Logger:      logger,
		}
	default:
		factory := memory.NewFactory()
		syncLog, p, err := rt.syncLogBackend(ctx, factory.SyncLogRepo)
		if err != nil {
			return nil, err
		}
		factory.SyncLogRepo, pruner = syncLog, p
		deps.UoW = factory
		rt.dispatcher = &memory.Dispatcher{Backoff: cfg.RetryBackoff, Logger: logger}
		deps.Outbox = memory.NewOutbox(rt.dispatcher)
		deps.Idempotency = memory.NewIdempotencyStore(cfg.IdempotencyTTL)
		deps.Loyalty = memory.NewLoyaltyLedger()
	}

	if deps.Locker, err = rt.locker(ctx); err != nil {
		return nil, err
	}
	if deps.Gateway, err = rt.gateway(); err != nil {
		return nil, err
	}

	app, err := wiring.Build(deps)
	if err != nil {
		return nil, err
	}
	rt.app = app
	rt.factory = deps.UoW

	if rt.dispatcher != nil {
		rt.dispatcher.Router = app.Router
	}
	if db != nil {
		if err := rt.wireConsumer(ctx, db); err != nil {
			return nil, err
		}
	}
	if err := rt.wireArchiver(pruner); err != nil {
		return nil, err
	}
	if err := rt.wireSecurity(); err != nil {
		return nil, err
	}
	ok = true
	return rt, nil
}

// syncLogBackend keeps the primary store's log or swaps in Scylla. Scylla
// enforces retention with a table TTL, so it offers no pruner.
func (rt *runtime) syncLogBackend(ctx context.Context, primary domainsynclog.Repository) (domainsynclog.Repository, domainsynclog.Pruner, error) {
	if rt.cfg.SyncLogBackend != config.SyncLogScylla {
		pruner, _ := primary.(domainsynclog.Pruner)
		return primary, pruner, nil
	}
	session, err := scylla.NewSession(ctx, scylla.Config{
		Hosts:     rt.cfg.ScyllaHosts,
		Keyspace:  rt.cfg.ScyllaKeyspace,
		Timeout:   rt.cfg.ScyllaTimeout,
		Retention: rt.cfg.SyncLogRetention,
	}, rt.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("scylla: %w", err)
	}
	rt.closers = append(rt.closers, func(context.Context) error { session.Close(); return nil })
	rt.checks["scylla"] = func(ctx context.Context) error {
		return session.Query("SELECT now() FROM system.local").WithContext(ctx).Exec()
	}
	return scylla.NewStore(session, rt.logger), nil, nil
}

func (rt *runtime) locker(ctx context.Context) (policies.PropertyLocker, error) {
	if rt.cfg.RedisAddr == "" {
		return memory.NewKeyedLocker(memoryLockWait), nil
	}
	client := goredis.NewClient(&goredis.Options{Addr: rt.cfg.RedisAddr})
	rt.closers = append(rt.closers, func(context.Context) error { return client.Close() })
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	rt.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	locker := redislock.NewLocker(client, rt.cfg.LockTTL)
	locker.Logger = rt.logger
	return locker, nil
}

func (rt *runtime) gateway() (policies.PlatformGateway, error) {
	var gw policies.PlatformGateway
	switch rt.cfg.PlatformMode {
	case config.PlatformGRPC:
		client, err := platforms.NewClient(platforms.Config{Addr: rt.cfg.PlatformGRPCAddr, CallTimeout: rt.cfg.PlatformCallTimeout}, rt.logger)
		if err != nil {
			return nil, fmt.Errorf("platform gateway: %w", err)
		}
		rt.closers = append(rt.closers, func(context.Context) error { return client.Close() })
		gw = client
	default:
		gw = platforms.NewSimulated(rt.cfg.PlatformFailureRate, rt.cfg.PlatformLatency, time.Now().UnixNano())
	}
	if rt.cfg.PlatformRatePerSec > 0 {
		gw = platforms.NewRateLimited(gw, rt.cfg.PlatformRatePerSec, platformBurst)
	}
	return gw, nil
}

// wireConsumer subscribes to every topic the outbox relays plus the raw
// channel topic, deduplicating deliveries through the inbox.
func (rt *runtime) wireConsumer(ctx context.Context, db *mongodb.Client) error {
	seen, err := inbox.NewStore(ctx, db.DB, rt.cfg.KafkaGroupID)
	if err != nil {
		return fmt.Errorf("inbox store: %w", err)
	}
	deliverer := &tasks.Deliverer{Router: rt.app.Router, Inbox: seen, Backoff: rt.cfg.RetryBackoff, Logger: rt.logger}
	raw := rt.cfg.KafkaTopicPrefix + channelRawTopic
	handler := kafka.TaskHandler{Deliverer: deliverer, RawTopics: map[string]string{raw: syncapp.EventChannelBooking}}
	consumer, err := kafka.NewConsumer(rt.cfg.KafkaBrokers, rt.cfg.KafkaGroupID, nil, handler, rt.logger)
	if err != nil {
		return fmt.Errorf("kafka consumer: %w", err)
	}
	rt.closers = append(rt.closers, func(context.Context) error { return consumer.Close() })
	rt.consumer = consumer

	topics := map[string]struct{}{raw: {}}
	for _, event := range rt.app.Router.Events() {
		if event == syncapp.EventChannelBooking {
			continue
		}
		topics[envelope.Topic(rt.cfg.KafkaTopicPrefix, event)] = struct{}{}
	}
	for topic := range topics {
		rt.topics = append(rt.topics, topic)
	}
	return nil
}

func (rt *runtime) wireArchiver(pruner domainsynclog.Pruner) error {
	if rt.cfg.S3Endpoint == "" || rt.cfg.SyncLogRetention <= 0 {
		return nil
	}
	if pruner == nil {
		rt.logger.Info("sync log archive disabled: backend expires entries itself", "backend", rt.cfg.SyncLogBackend)
		return nil
	}
	client, err := s3.NewClient(s3.Config{
		Endpoint:  rt.cfg.S3Endpoint,
		UseSSL:    rt.cfg.S3UseSSL,
		AccessKey: rt.cfg.S3AccessKey,
		SecretKey: rt.cfg.S3SecretKey,
		Bucket:    rt.cfg.S3Bucket,
	}, rt.logger)
	if err != nil {
		return fmt.Errorf("s3: %w", err)
	}
	rt.archiver = &s3.Archiver{Pruner: pruner, Store: client, Retention: rt.cfg.SyncLogRetention, Logger: rt.logger}
	return nil
}

func (rt *runtime) wireSecurity() error {
	if rt.cfg.JWTSecret == "" {
		rt.logger.Warn("JWT_SECRET not set: authenticated routes will reject every caller")
	} else {
		tokens, err := security.NewTokens(rt.cfg.JWTSecret)
		if err != nil {
			return err
		}
		tokens.Issuer = defaultJWTIssuer
		rt.tokens = tokens
	}
	keys, err := security.NewChannelKeys(rt.cfg.ChannelKeyHashes)
	if err != nil {
		return err
	}
	if !keys.Enabled() {
		rt.logger.Warn("CHANNEL_KEY_HASHES not set: channel webhooks are disabled")
	}
	rt.keys = keys
	return nil
}

// schedule registers the periodic jobs: the hold reaper and, when
// configured, the sync log archive.
func (rt *runtime) schedule(runner *schedule.Runner) error {
	if err := runner.Every("hold-reaper", rt.cfg.ReaperInterval, func(ctx context.Context) error {
		_, err := rt.reap(ctx)
		return err
	}); err != nil {
		return err
	}
	if rt.archiver == nil {
		return nil
	}
	return runner.Every("synclog-archive", archiveInterval, func(ctx context.Context) error {
		n, err := rt.archiver.Run(ctx)
		if err == nil && n > 0 {
			rt.logger.Info("sync log archived", "entries", n)
		}
		return err
	})
}

func (rt *runtime) reap(ctx context.Context) (*holdsapp.ReapResult, error) {
	res, err := commands.Dispatch[holdsapp.ReapExpiredHoldsCommand, *holdsapp.ReapResult](ctx, rt.app.Background, holdsapp.ReapExpiredHoldsCommand{})
	if err != nil {
		return nil, err
	}
	if res.Released > 0 || res.Abandoned > 0 {
		rt.logger.Info("expired holds released", "properties", res.Properties, "released", res.Released, "abandoned", res.Abandoned)
	}
	return res, nil
}

// flush delivers whatever one-shot commands recorded: synchronously in
// memory mode, through one relay pass in mongo mode.
func (rt *runtime) flush(ctx context.Context) error {
	if rt.dispatcher != nil {
		rt.dispatcher.Wait()
		return nil
	}
	if rt.worker != nil {
		n, err := rt.worker.Drain(ctx)
		if err == nil {
			rt.logger.Info("outbox drained", "sent", n)
		}
		return err
	}
	return nil
}

func (rt *runtime) close(ctx context.Context) {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			rt.logger.Warn("shutdown step failed", "error", err)
		}
	}
	rt.closers = nil
}
