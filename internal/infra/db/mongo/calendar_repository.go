package mongo

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainavailability "staysync/internal/domain/availability"
	domainproperties "staysync/internal/domain/properties"
)

type CalendarRepository struct {
	col *mongo.Collection
}

func NewCalendarRepository(db *mongo.Database) *CalendarRepository {
	return &CalendarRepository{col: db.Collection(colCalendars)}
}

func (r *CalendarRepository) Calendar(ctx context.Context, id domainproperties.PropertyID) (*domainavailability.Calendar, error) {
	var doc calendarDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domainavailability.NewCalendar(id), nil
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

// Save replaces the calendar only if the stored version still matches. A
// first save races on the _id unique index instead.
func (r *CalendarRepository) Save(ctx context.Context, cal *domainavailability.Calendar) error {
	doc := newCalendarDocument(cal)
	filter := bson.M{"_id": doc.ID, "version": cal.Version}
	doc.Version = cal.Version + 1
	res, err := r.col.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainavailability.ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return domainavailability.ErrConcurrentUpdate
	}
	cal.Version = doc.Version
	return nil
}

func (r *CalendarRepository) BlockByID(ctx context.Context, id domainavailability.BlockID) (*domainavailability.DateBlock, error) {
	var doc calendarDocument
	if err := r.col.FindOne(ctx, bson.M{"blocks.id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainavailability.ErrBlockNotFound
		}
		return nil, err
	}
	for _, b := range doc.Blocks {
		if b.ID == string(id) {
			block := doc.block(b)
			return &block, nil
		}
	}
	return nil, domainavailability.ErrBlockNotFound
}

func (r *CalendarRepository) PropertiesWithExpiredHolds(ctx context.Context, now time.Time) ([]domainproperties.PropertyID, error) {
	filter := bson.M{"blocks": bson.M{"$elemMatch": bson.M{
		"temporary":  true,
		"expires_at": bson.M{"$lt": now.UTC()},
	}}}
	ids, err := r.col.Distinct(ctx, "_id", filter)
	if err != nil {
		return nil, err
	}
	out := make([]domainproperties.PropertyID, 0, len(ids))
	for _, raw := range ids {
		if id, ok := raw.(string); ok {
			out = append(out, domainproperties.PropertyID(id))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

var _ domainavailability.Repository = (*CalendarRepository)(nil)
