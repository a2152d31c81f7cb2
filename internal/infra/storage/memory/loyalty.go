package memory

import (
	"context"
	"sync"

	"staysync/internal/app/policies"
)

type LoyaltyAccount struct {
	Points     int64
	TotalSpent int64
	Accruals   int
}

// LoyaltyLedger keeps point balances per user.
type LoyaltyLedger struct {
	mu       sync.RWMutex
	accounts map[string]LoyaltyAccount
}

func NewLoyaltyLedger() *LoyaltyLedger {
	return &LoyaltyLedger{accounts: make(map[string]LoyaltyAccount)}
}

func (l *LoyaltyLedger) AddPoints(ctx context.Context, userID string, points int64, bookingAmount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc := l.accounts[userID]
	acc.Points += points
	acc.TotalSpent += bookingAmount
	acc.Accruals++
	l.accounts[userID] = acc
	return nil
}

func (l *LoyaltyLedger) Account(userID string) LoyaltyAccount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.accounts[userID]
}

var _ policies.LoyaltyLedger = (*LoyaltyLedger)(nil)
