package crawler

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// newLimiter returns a strict fixed-rate limiter for hitRate requests per
// second. Burst is pinned at 1 so the interval between any two fetch
// attempts is at least 1/hitRate, even right after a resume.
func newLimiter(hitRate float64) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(hitRate), 1)
}

// rttEMAAlpha is the smoothing factor for LatencyTracker's moving average.
const rttEMAAlpha = 0.2

// LatencyTracker keeps an exponential moving average of observed fetch
// RTTs, readable through EMA; job status and logs do not include it. It
// never feeds back into newLimiter's rate: the hit_rate a job was created
// with stays fixed for its whole life.
type LatencyTracker struct {
	mu     sync.Mutex
	emaRTT time.Duration
	seeded bool
}

// NewLatencyTracker returns an empty tracker.
func NewLatencyTracker() *LatencyTracker {
	return &LatencyTracker{}
}

// Observe records one fetch's RTT.
func (t *LatencyTracker) Observe(rtt time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.seeded {
		t.emaRTT = rtt
		t.seeded = true
		return
	}
	t.emaRTT = time.Duration(rttEMAAlpha*float64(rtt) + (1-rttEMAAlpha)*float64(t.emaRTT))
}

// EMA returns the current moving average RTT.
func (t *LatencyTracker) EMA() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.emaRTT
}
