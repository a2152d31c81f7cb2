package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"staysync/internal/domain/channels"
	domainproperties "staysync/internal/domain/properties"
)

type PropertyRepository struct {
	col *mongo.Collection
}

func NewPropertyRepository(db *mongo.Database) *PropertyRepository {
	return &PropertyRepository{col: db.Collection(colProperties)}
}

func (r *PropertyRepository) ByID(ctx context.Context, id domainproperties.PropertyID) (*domainproperties.Property, error) {
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r *PropertyRepository) ByPlatformID(ctx context.Context, platform channels.Platform, externalID string) (*domainproperties.Property, error) {
	return r.findOne(ctx, bson.M{
		"status": string(domainproperties.StatusActive),
		"connections": bson.M{"$elemMatch": bson.M{
			"platform":    string(platform),
			"external_id": externalID,
		}},
	})
}

func (r *PropertyRepository) ListByHost(ctx context.Context, host domainproperties.HostID) ([]*domainproperties.Property, error) {
	cur, err := r.col.Find(ctx, bson.M{"host_id": string(host)}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []propertyDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainproperties.Property, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}

func (r *PropertyRepository) Save(ctx context.Context, p *domainproperties.Property) error {
	doc := newPropertyDocument(p)
	doc.Version = p.Version + 1
	if _, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true)); err != nil {
		return err
	}
	p.Version = doc.Version
	return nil
}

func (r *PropertyRepository) Delete(ctx context.Context, id domainproperties.PropertyID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domainproperties.ErrNotFound
	}
	return nil
}

func (r *PropertyRepository) findOne(ctx context.Context, filter bson.M) (*domainproperties.Property, error) {
	var doc propertyDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainproperties.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

var _ domainproperties.Repository = (*PropertyRepository)(nil)
