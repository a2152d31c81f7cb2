package scylla

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gocql/gocql"

	"staysync/internal/domain/channels"
	domainproperties "staysync/internal/domain/properties"
	domainsynclog "staysync/internal/domain/synclog"
)

var errNoSession = errors.New("scylla session not initialized")

// Store writes every entry to a per-property and a per-booking table so
// both log views read a single partition.
type Store struct {
	session *gocql.Session
	logger  *slog.Logger
}

// NewStore builds a Store.
func NewStore(session *gocql.Session, logger *slog.Logger) *Store {
	return &Store{session: session, logger: logger}
}

const selectColumns = `entry_id, property_id, booking_id, platform, action, status, message, error, created_at`

func (s *Store) Append(ctx context.Context, e domainsynclog.Entry) error {
	if s.session == nil {
		return errNoSession
	}
	args := []any{e.ID, string(e.PropertyID), e.BookingID, string(e.Platform), string(e.Action), string(e.Status), e.Message, e.Error, e.CreatedAt}
	batch := s.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(`INSERT INTO sync_log_by_property (`+selectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if e.BookingID != "" {
		batch.Query(`INSERT INTO sync_log_by_booking (`+selectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	}
	return s.session.ExecuteBatch(batch)
}

func (s *Store) ListByProperty(ctx context.Context, id domainproperties.PropertyID, limit int) ([]domainsynclog.Entry, error) {
	if s.session == nil {
		return nil, errNoSession
	}
	stmt := `SELECT ` + selectColumns + ` FROM sync_log_by_property WHERE property_id = ?`
	args := []any{string(id)}
	if limit > 0 {
		stmt += ` LIMIT ?`
		args = append(args, limit)
	}
	return scanEntries(s.session.Query(stmt, args...).WithContext(ctx).Iter())
}

func (s *Store) ListByBooking(ctx context.Context, bookingID string) ([]domainsynclog.Entry, error) {
	if s.session == nil {
		return nil, errNoSession
	}
	q := s.session.Query(`SELECT `+selectColumns+` FROM sync_log_by_booking WHERE booking_id = ?`, bookingID).WithContext(ctx)
	return scanEntries(q.Iter())
}

func scanEntries(iter *gocql.Iter) ([]domainsynclog.Entry, error) {
	var (
		out                                     []domainsynclog.Entry
		row                                     domainsynclog.Entry
		propertyID, platform, action, statusRaw string
	)
	for iter.Scan(&row.ID, &propertyID, &row.BookingID, &platform, &action, &statusRaw, &row.Message, &row.Error, &row.CreatedAt) {
		row.PropertyID = domainproperties.PropertyID(propertyID)
		row.Platform = channels.Platform(platform)
		row.Action = domainsynclog.Action(action)
		row.Status = domainsynclog.Status(statusRaw)
		row.CreatedAt = row.CreatedAt.UTC()
		out = append(out, row)
		row = domainsynclog.Entry{}
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

var _ domainsynclog.Repository = (*Store)(nil)
