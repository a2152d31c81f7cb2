// Package platforms adapts external booking channels to the sync engine's
// gateway port.
package platforms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"staysync/internal/app/policies"
)

var ErrSimulatedFailure = errors.New("platforms: simulated platform failure")

// Simulated stands in for real channel APIs: it waits Latency and then fails
// with probability FailureRate.
type Simulated struct {
	FailureRate float64
	Latency     time.Duration
	Logger      *slog.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewSimulated(failureRate float64, latency time.Duration, seed int64) *Simulated {
	return &Simulated{FailureRate: failureRate, Latency: latency, rnd: rand.New(rand.NewSource(seed))}
}

func (s *Simulated) BlockDates(ctx context.Context, req policies.BlockDatesRequest) error {
	if s.Latency > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.Latency):
		}
	}
	if s.roll() < s.FailureRate {
		if s.Logger != nil {
			s.Logger.Debug("simulated platform failure", "platform", req.Platform, "booking_id", req.BookingID)
		}
		return fmt.Errorf("%w: %s", ErrSimulatedFailure, req.Platform)
	}
	return nil
}

func (s *Simulated) roll() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rnd == nil {
		s.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s.rnd.Float64()
}

var _ policies.PlatformGateway = (*Simulated)(nil)
