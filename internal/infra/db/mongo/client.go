package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	colProperties  = "agg_property"
	colCalendars   = "agg_calendar"
	colBookings    = "agg_booking"
	colSyncLog     = "sync_log"
	colIdempotency = "app_idempotency"
	colInbox       = "app_inbox"
	colLoyalty     = "loyalty_accounts"

	platformRefIndex = "platform_ref_unique"
)

type Client struct {
	DB *mongo.Database
}

func New(uri, database string) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	opts := options.Client().ApplyURI(uri).SetRetryWrites(true)
	m, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Client{DB: m.Database(database)}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.Client().Ping(ctx, nil)
}

func (c *Client) Close(ctx context.Context) error {
	return c.DB.Client().Disconnect(ctx)
}

// EnsureIndexes creates the indexes the repositories rely on for lookups
// and uniqueness.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		colProperties: {
			{Keys: bson.D{{Key: "host_id", Value: 1}}},
			{Keys: bson.D{{Key: "connections.platform", Value: 1}, {Key: "connections.external_id", Value: 1}}},
		},
		colCalendars: {
			{Keys: bson.D{{Key: "blocks.id", Value: 1}}},
			{Keys: bson.D{{Key: "blocks.expires_at", Value: 1}}},
		},
		colBookings: {
			{Keys: bson.D{{Key: "property_id", Value: 1}}},
			{
				Keys: bson.D{{Key: "platform", Value: 1}, {Key: "platform_booking_id", Value: 1}},
				Options: options.Index().
					SetName(platformRefIndex).
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"platform_booking_id": bson.M{"$gt": ""}}),
			},
		},
		colSyncLog: {
			{Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "booking_id", Value: 1}}},
		},
	}
	for name, models := range specs {
		if _, err := c.DB.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}
