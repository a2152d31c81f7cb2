package policies

import "context"

// LoyaltyLedger credits guests for purchases. Tier arithmetic lives with the
// ledger owner; callers only report points earned.
type LoyaltyLedger interface {
	AddPoints(ctx context.Context, userID string, points int64, bookingAmount int64) error
}
