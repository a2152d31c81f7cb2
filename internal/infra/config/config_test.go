package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsRunInMemory(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, PlatformSimulated, cfg.PlatformMode)
	assert.Equal(t, 15*time.Minute, cfg.HoldTTL)
	assert.Equal(t, 5*time.Minute, cfg.ReaperInterval)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
	assert.Equal(t, "keep", cfg.ExpiredHoldPolicy)
	assert.Empty(t, cfg.ChannelKeyHashes)
}

func TestMongoStorageRequiresBrokers(t *testing.T) {
	t.Setenv("STORAGE", "mongo")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	_, err := FromEnv()
	assert.ErrorContains(t, err, "KAFKA_BROKERS")

	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestInvalidValues(t *testing.T) {
	t.Setenv("RETRY_BACKOFF", "1s,soon")
	_, err := FromEnv()
	assert.ErrorContains(t, err, "RETRY_BACKOFF")

	t.Setenv("RETRY_BACKOFF", "")
	t.Setenv("PLATFORM_FAILURE_RATE", "1.5")
	_, err = FromEnv()
	assert.Error(t, err)
}

func TestChannelKeyHashes(t *testing.T) {
	t.Setenv("CHANNEL_KEY_HASHES", "airbnb=$2a$10$abc; agoda=$2a$10$def")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"airbnb": "$2a$10$abc", "agoda": "$2a$10$def"}, cfg.ChannelKeyHashes)

	t.Setenv("CHANNEL_KEY_HASHES", "airbnb")
	_, err = FromEnv()
	assert.Error(t, err)
}
