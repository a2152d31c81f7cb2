package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMemory = "memory"
	StorageMongo  = "mongo"

	PlatformSimulated = "simulated"
	PlatformGRPC      = "grpc"

	SyncLogPrimary = "primary"
	SyncLogScylla  = "scylla"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env      string
	LogLevel string
	HTTPAddr string
	Storage  string

	MongoURI string
	MongoDB  string

	KafkaBrokers     []string
	KafkaTopicPrefix string
	KafkaGroupID     string

	IdempotencyTTL     time.Duration
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration

	HoldTTL           time.Duration
	ReaperInterval    time.Duration
	ExpiredHoldPolicy string

	PlatformMode        string
	PlatformGRPCAddr    string
	PlatformCallTimeout time.Duration
	PlatformRatePerSec  float64
	PlatformFailureRate float64
	PlatformLatency     time.Duration

	RedisAddr string
	LockTTL   time.Duration

	JWTSecret        string
	ChannelKeyHashes map[string]string

	SyncLogBackend   string
	ScyllaHosts      []string
	ScyllaKeyspace   string
	ScyllaTimeout    time.Duration
	SyncLogRetention time.Duration

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool

	PropertiesFixtures string
}

// Load reads an optional .env file and parses configuration from the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: read .env: %w", err)
	}
	return FromEnv()
}

// FromEnv parses configuration from the current environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		Env:                getEnv("APP_ENV", "dev"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		Storage:            strings.ToLower(getEnv("STORAGE", StorageMemory)),
		MongoURI:           os.Getenv("MONGO_URI"),
		MongoDB:            getEnv("MONGO_DB", "staysync"),
		KafkaBrokers:       splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopicPrefix:   getEnv("KAFKA_TOPIC_PREFIX", ""),
		KafkaGroupID:       getEnv("KAFKA_GROUP_ID", "staysync-tasks"),
		ExpiredHoldPolicy:  getEnv("EXPIRED_HOLD_POLICY", "keep"),
		PlatformMode:       strings.ToLower(getEnv("PLATFORM_MODE", PlatformSimulated)),
		PlatformGRPCAddr:   getEnv("PLATFORM_GRPC_ADDR", "localhost:9090"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		SyncLogBackend:     strings.ToLower(getEnv("SYNCLOG_BACKEND", SyncLogPrimary)),
		ScyllaHosts:        splitList(getEnv("SCYLLA_HOSTS", "localhost:9042")),
		ScyllaKeyspace:     getEnv("SCYLLA_KEYSPACE", "staysync"),
		S3Endpoint:         os.Getenv("S3_ENDPOINT"),
		S3AccessKey:        getEnv("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:        getEnv("S3_SECRET_KEY", "minioadmin"),
		S3Bucket:           getEnv("S3_BUCKET", "staysync-synclog"),
		PropertiesFixtures: os.Getenv("PROPERTIES_FIXTURES"),
	}

	var err error
	durations := []struct {
		key  string
		def  time.Duration
		dest *time.Duration
	}{
		{"IDEMP_TTL", 168 * time.Hour, &cfg.IdempotencyTTL},
		{"OUTBOX_POLL_INTERVAL", 500 * time.Millisecond, &cfg.OutboxPollInterval},
		{"HOLD_TTL", 15 * time.Minute, &cfg.HoldTTL},
		{"REAPER_INTERVAL", 5 * time.Minute, &cfg.ReaperInterval},
		{"PLATFORM_CALL_TIMEOUT", 5 * time.Second, &cfg.PlatformCallTimeout},
		{"PLATFORM_LATENCY", 0, &cfg.PlatformLatency},
		{"LOCK_TTL", 10 * time.Second, &cfg.LockTTL},
		{"SCYLLA_TIMEOUT", 5 * time.Second, &cfg.ScyllaTimeout},
		{"SYNCLOG_RETENTION", 0, &cfg.SyncLogRetention},
	}
	for _, d := range durations {
		if *d.dest, err = parseDurationEnv(d.key, d.def); err != nil {
			return Config{}, err
		}
	}
	if cfg.RetryBackoff, err = parseDurationList("RETRY_BACKOFF", "1s,5s,30s"); err != nil {
		return Config{}, err
	}
	if cfg.PlatformRatePerSec, err = parseFloatEnv("PLATFORM_RATE_PER_SEC", 10); err != nil {
		return Config{}, err
	}
	if cfg.PlatformFailureRate, err = parseFloatEnv("PLATFORM_FAILURE_RATE", 0.1); err != nil {
		return Config{}, err
	}
	if cfg.S3UseSSL, err = parseBoolEnv("S3_USE_SSL", false); err != nil {
		return Config{}, err
	}
	if cfg.ChannelKeyHashes, err = parsePairs("CHANNEL_KEY_HASHES"); err != nil {
		return Config{}, err
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Storage {
	case StorageMemory:
	case StorageMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when STORAGE=mongo")
		}
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when STORAGE=mongo")
		}
	default:
		return fmt.Errorf("invalid STORAGE %q", c.Storage)
	}
	switch c.PlatformMode {
	case PlatformSimulated, PlatformGRPC:
	default:
		return fmt.Errorf("invalid PLATFORM_MODE %q", c.PlatformMode)
	}
	switch c.SyncLogBackend {
	case SyncLogPrimary, SyncLogScylla:
	default:
		return fmt.Errorf("invalid SYNCLOG_BACKEND %q", c.SyncLogBackend)
	}
	if c.PlatformFailureRate < 0 || c.PlatformFailureRate > 1 {
		return fmt.Errorf("PLATFORM_FAILURE_RATE must be within [0,1]")
	}
	if c.HoldTTL <= 0 {
		return fmt.Errorf("HOLD_TTL must be positive")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseDurationList(key, def string) ([]time.Duration, error) {
	var out []time.Duration
	for _, raw := range splitList(getEnv(key, def)) {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s component %q: %w", key, raw, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func parseFloatEnv(key string, def float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s number: %w", key, err)
	}
	return v, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}

// parsePairs reads "name=value;name=value" lists.
func parsePairs(key string) (map[string]string, error) {
	out := map[string]string{}
	for _, part := range strings.Split(os.Getenv(key), ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(name) == "" || strings.TrimSpace(value) == "" {
			return nil, fmt.Errorf("invalid %s entry %q", key, part)
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return out, nil
}
