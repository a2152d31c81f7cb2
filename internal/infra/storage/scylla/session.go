// Package scylla keeps the sync audit log as a time series in Scylla.
package scylla

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/gocql/gocql"
)

var keyspacePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

type Config struct {
	Hosts             []string
	Keyspace          string
	Timeout           time.Duration
	ReplicationFactor int
	// Retention becomes the tables' default TTL; zero keeps entries forever.
	Retention time.Duration
}

// NewSession ensures schema exists and returns a connected Scylla session.
func NewSession(ctx context.Context, cfg Config, logger *slog.Logger) (*gocql.Session, error) {
	if !keyspacePattern.MatchString(cfg.Keyspace) {
		return nil, fmt.Errorf("invalid keyspace name: %s", cfg.Keyspace)
	}

	baseSession, err := cluster(cfg, "").CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connect to scylla: %w", err)
	}
	defer baseSession.Close()
	if err := baseSession.Query(keyspaceCQL(cfg)).WithContext(ctx).Exec(); err != nil {
		return nil, fmt.Errorf("create keyspace: %w", err)
	}

	session, err := cluster(cfg, cfg.Keyspace).CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connect to keyspace %s: %w", cfg.Keyspace, err)
	}
	for _, stmt := range tableCQL(cfg) {
		if err := session.Query(stmt).WithContext(ctx).Exec(); err != nil {
			session.Close()
			return nil, fmt.Errorf("create sync log tables: %w", err)
		}
	}
	if logger != nil {
		logger.Info("scylla connected", "hosts", cfg.Hosts, "keyspace", cfg.Keyspace)
	}
	return session, nil
}

func cluster(cfg Config, keyspace string) *gocql.ClusterConfig {
	c := gocql.NewCluster(cfg.Hosts...)
	c.Timeout = cfg.Timeout
	c.ConnectTimeout = cfg.Timeout
	c.Consistency = gocql.Quorum
	c.Keyspace = keyspace
	return c
}

func keyspaceCQL(cfg Config) string {
	rf := cfg.ReplicationFactor
	if rf < 1 {
		rf = 1
	}
	return fmt.Sprintf(
		"CREATE KEYSPACE IF NOT EXISTS %s WITH replication = {'class': 'SimpleStrategy', 'replication_factor': %d}",
		cfg.Keyspace, rf,
	)
}

func tableCQL(cfg Config) []string {
	ttl := int(cfg.Retention.Seconds())
	columns := `
	entry_id text,
	property_id text,
	booking_id text,
	platform text,
	action text,
	status text,
	message text,
	error text,
	created_at timestamp,`
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.sync_log_by_property (%s
	PRIMARY KEY (property_id, created_at, entry_id)
) WITH CLUSTERING ORDER BY (created_at DESC, entry_id ASC) AND default_time_to_live = %d;`, cfg.Keyspace, columns, ttl),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.sync_log_by_booking (%s
	PRIMARY KEY (booking_id, created_at, entry_id)
) WITH CLUSTERING ORDER BY (created_at ASC, entry_id ASC) AND default_time_to_live = %d;`, cfg.Keyspace, columns, ttl),
	}
}
