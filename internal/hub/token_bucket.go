package hub

import (
	"sync"
	"time"
)

// tokenBucket throttles inbound frames per connection so one chatty socket
// cannot flood a room. The full burst is available up front and refills
// continuously over the refill interval.
type tokenBucket struct {
	mu     sync.Mutex
	tokens float64
	max    float64
	perSec float64
	last   time.Time
}

func newTokenBucket(burst int, refill time.Duration) *tokenBucket {
	if burst <= 0 {
		burst = 1
	}
	if refill <= 0 {
		refill = time.Second
	}
	return &tokenBucket{
		tokens: float64(burst),
		max:    float64(burst),
		perSec: float64(burst) / refill.Seconds(),
		last:   time.Now(),
	}
}

// take consumes one token, reporting false when the bucket is empty.
func (b *tokenBucket) take() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = min(b.max, b.tokens+elapsed*b.perSec)
	}
	b.last = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
