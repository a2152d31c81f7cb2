package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"staysync/internal/app/policies"
)

// LoyaltyLedger increments per-user balances atomically.
type LoyaltyLedger struct {
	col *mongo.Collection
}

func NewLoyaltyLedger(db *mongo.Database) *LoyaltyLedger {
	return &LoyaltyLedger{col: db.Collection(colLoyalty)}
}

func (l *LoyaltyLedger) AddPoints(ctx context.Context, userID string, points int64, bookingAmount int64) error {
	update := bson.M{
		"$inc": bson.M{"points": points, "total_spent": bookingAmount, "accruals": 1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	_, err := l.col.UpdateOne(ctx, bson.M{"_id": userID}, update, options.Update().SetUpsert(true))
	return err
}

var _ policies.LoyaltyLedger = (*LoyaltyLedger)(nil)
