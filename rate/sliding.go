package rate

import (
	"context"
	"sync"
	"time"
)

const (
	// NVD allows 5 requests per rolling 30 seconds without an API key
	// and 50 with one.
	PublicLimit = 5
	KeyedLimit  = 50

	DefaultWindow = 30 * time.Second

	// wakeBuffer pads the computed sleep so a caller never wakes
	// exactly on the window boundary and gets re-queued.
	wakeBuffer = 100 * time.Millisecond
)

// SlidingWindow admits at most maxRequests dispatches within any
// trailing window. Dispatch timestamps are kept oldest-first and pruned
// from the front once they fall out of the window.
type SlidingWindow struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	timestamps  []time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

var _ Limiter = &SlidingWindow{}

type SlidingOption func(s *SlidingWindow)

// WithClock replaces the wall clock and the sleeper. Tests use this to
// drive the limiter deterministically.
func WithClock(
	now func() time.Time,
	sleep func(ctx context.Context, d time.Duration) error,
) SlidingOption {
	return func(s *SlidingWindow) {
		s.now = now
		s.sleep = sleep
	}
}

// NewSlidingWindow returns a limiter admitting maxRequests dispatches
// per trailing window. ForKey picks the right maxRequests for an NVD
// credential.
func NewSlidingWindow(maxRequests int, window time.Duration, opts ...SlidingOption) *SlidingWindow {
	if maxRequests < 1 {
		maxRequests = 1
	}
	if window <= 0 {
		window = DefaultWindow
	}
	s := &SlidingWindow{
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
		sleep:       sleepCtx,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ForKey returns a sliding-window limiter sized for the given NVD API
// key: 50 req / 30s when a key is present, 5 req / 30s otherwise.
func ForKey(apiKey string) *SlidingWindow {
	if apiKey != "" {
		return NewSlidingWindow(KeyedLimit, DefaultWindow)
	}
	return NewSlidingWindow(PublicLimit, DefaultWindow)
}

// Acquire blocks until fewer than maxRequests dispatches exist within
// the trailing window, records the new dispatch, and returns. Waiters
// sleep outside the lock, so concurrent lookups keep making progress.
func (s *SlidingWindow) Acquire(ctx context.Context) error {
	for {
		s.mu.Lock()
		now := s.now()
		s.prune(now)

		if len(s.timestamps) < s.maxRequests {
			s.timestamps = append(s.timestamps, now)
			s.mu.Unlock()
			return nil
		}

		wait := s.timestamps[0].Add(s.window).Sub(now) + wakeBuffer
		s.mu.Unlock()

		if err := s.sleep(ctx, wait); err != nil {
			return err
		}
		// Re-check after waking: another caller may have taken the
		// freed slot first.
	}
}

// prune drops timestamps older than the trailing window. Callers must
// hold mu.
func (s *SlidingWindow) prune(now time.Time) {
	cutoff := now.Add(-s.window)
	i := 0
	for i < len(s.timestamps) && !s.timestamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		s.timestamps = append(s.timestamps[:0], s.timestamps[i:]...)
	}
}

// inFlight reports the number of dispatches currently inside the
// window. Used by tests to assert the admission invariant.
func (s *SlidingWindow) inFlight(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune(now)
	return len(s.timestamps)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
