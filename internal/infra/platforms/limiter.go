package platforms

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"staysync/internal/app/policies"
	"staysync/internal/domain/channels"
)

// RateLimited caps outbound calls per platform. Each platform gets its own
// token bucket so one slow channel does not starve the others.
type RateLimited struct {
	Next  policies.PlatformGateway
	Rate  rate.Limit
	Burst int

	mu       sync.Mutex
	limiters map[channels.Platform]*rate.Limiter
}

func NewRateLimited(next policies.PlatformGateway, perSecond float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &RateLimited{Next: next, Rate: limit, Burst: burst}
}

func (g *RateLimited) BlockDates(ctx context.Context, req policies.BlockDatesRequest) error {
	if err := g.limiter(req.Platform).Wait(ctx); err != nil {
		return err
	}
	return g.Next.BlockDates(ctx, req)
}

func (g *RateLimited) limiter(p channels.Platform) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.limiters == nil {
		g.limiters = make(map[channels.Platform]*rate.Limiter)
	}
	if l, ok := g.limiters[p]; ok {
		return l
	}
	l := rate.NewLimiter(g.Rate, g.Burst)
	g.limiters[p] = l
	return l
}

var _ policies.PlatformGateway = (*RateLimited)(nil)
