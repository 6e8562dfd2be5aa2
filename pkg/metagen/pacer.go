package metagen

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultInterval is the minimum spacing between two requests.
const DefaultInterval = 2000 * time.Millisecond

// Pacer spaces outbound requests at least a fixed interval apart.  It is
// safe for concurrent use; concurrent callers are served one at a time.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a Pacer that lets one request through per interval.  The
// first request goes through immediately.
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next request may be sent or the context is done.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
