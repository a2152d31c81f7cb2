package policies

import (
	"fmt"
	"strings"
)

// ExpiredHoldPolicy decides what happens to a pending booking whose hold expired.
type ExpiredHoldPolicy string

const (
	// KeepPending leaves the booking pending; a late payment may still confirm it.
	KeepPending ExpiredHoldPolicy = "keep"
	// CancelPending cancels unpaid bookings once their hold is released.
	CancelPending ExpiredHoldPolicy = "cancel"
)

func ParseExpiredHoldPolicy(raw string) (ExpiredHoldPolicy, error) {
	switch p := ExpiredHoldPolicy(strings.ToLower(strings.TrimSpace(raw))); p {
	case "", KeepPending:
		return KeepPending, nil
	case CancelPending:
		return CancelPending, nil
	default:
		return "", fmt.Errorf("policies: unknown expired hold policy %q", raw)
	}
}
