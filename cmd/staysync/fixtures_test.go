package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staysync/internal/domain/channels"
	"staysync/internal/infra/config"
	"staysync/internal/infra/obs"
	"staysync/internal/infra/storage/memory"
)

func TestLoadFixturesSkipsInvalidEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "properties.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id": "prop-1", "host_id": "host-1", "title": "Lake house",
		 "pricing": {"base_price": 5000, "cleaning_fee": 500, "service_fee": 300, "currency": "usd"},
		 "connections": {"airbnb": "air-1", "agoda": "ago-1"}},
		{"id": "prop-2", "host_id": "host-1", "connections": {"direct": "x"},
		 "pricing": {"base_price": 100, "currency": "USD"}}
	]`), 0o600))

	factory := memory.NewFactory()
	rt := &runtime{cfg: config.Config{PropertiesFixtures: path}, factory: factory}
	logger := obs.NewLogger("test", "error")
	require.NoError(t, loadFixtures(context.Background(), rt, logger))

	p, err := factory.PropertiesRepo.ByID(context.Background(), "prop-1")
	require.NoError(t, err)
	assert.True(t, p.Connections.Connected(channels.Agoda))
	assert.Equal(t, "USD", p.Pricing.Currency)

	_, err = factory.PropertiesRepo.ByID(context.Background(), "prop-2")
	assert.Error(t, err)
}

func TestLoadFixturesMissingFile(t *testing.T) {
	rt := &runtime{cfg: config.Config{PropertiesFixtures: filepath.Join(t.TempDir(), "none.json")}, factory: memory.NewFactory()}
	assert.NoError(t, loadFixtures(context.Background(), rt, obs.NewLogger("test", "error")))
}
