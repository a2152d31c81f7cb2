package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainproperties "staysync/internal/domain/properties"
	domainsynclog "staysync/internal/domain/synclog"
)

type SyncLogRepository struct {
	col *mongo.Collection
}

func NewSyncLogRepository(db *mongo.Database) *SyncLogRepository {
	return &SyncLogRepository{col: db.Collection(colSyncLog)}
}

func (r *SyncLogRepository) Append(ctx context.Context, entry domainsynclog.Entry) error {
	_, err := r.col.InsertOne(ctx, newSyncLogDocument(entry))
	return err
}

func (r *SyncLogRepository) ListByProperty(ctx context.Context, id domainproperties.PropertyID, limit int) ([]domainsynclog.Entry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, bson.M{"property_id": string(id)}, opts)
}

func (r *SyncLogRepository) ListByBooking(ctx context.Context, bookingID string) ([]domainsynclog.Entry, error) {
	return r.find(ctx, bson.M{"booking_id": bookingID}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
}

// PruneBefore deletes entries older than cutoff once archive accepted them.
// Only the ids handed to archive are deleted.
func (r *SyncLogRepository) PruneBefore(ctx context.Context, cutoff time.Time, archive func(context.Context, []domainsynclog.Entry) error) (int, error) {
	filter := bson.M{"created_at": bson.M{"$lt": cutoff.UTC()}}
	entries, err := r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil || len(entries) == 0 {
		return 0, err
	}
	if archive != nil {
		if err := archive(ctx, entries); err != nil {
			return 0, err
		}
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	res, err := r.col.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, err
	}
	return int(res.DeletedCount), nil
}

func (r *SyncLogRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domainsynclog.Entry, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []syncLogDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domainsynclog.Entry, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toEntry())
	}
	return out, nil
}

var (
	_ domainsynclog.Repository = (*SyncLogRepository)(nil)
	_ domainsynclog.Pruner     = (*SyncLogRepository)(nil)
)
