package throttle

import "time"

// State is the run-to-run throttle knob. It is read at the start of a
// run, adjusted once after all requests complete, and written back.
// There is no terminal state; the record ratchets indefinitely across
// invocations. A single run owns the record exclusively.
type State struct {
	Concurrency          int        `json:"concurrency"`
	DelayMs              int        `json:"delay_ms"`
	Last429At            *time.Time `json:"last_429_at,omitempty"`
	LastSuccessAt        *time.Time `json:"last_success_at,omitempty"`
	ConsecutiveSuccesses int        `json:"consecutive_successes"`
	Consecutive429s      int        `json:"consecutive_429s"`
}

// Bounds confines the state. Immutable for the process lifetime.
type Bounds struct {
	MinConcurrency   int `json:"min_concurrency"`
	MaxConcurrency   int `json:"max_concurrency"`
	MinDelayMs       int `json:"min_delay_ms"`
	MaxDelayMs       int `json:"max_delay_ms"`
	SpeedupThreshold int `json:"speedup_threshold"`
	ConcurrencyStep  int `json:"concurrency_step"`
	DelayStepMs      int `json:"delay_step_ms"`
}

func DefaultBounds() Bounds {
	return Bounds{
		MinConcurrency:   1,
		MaxConcurrency:   8,
		MinDelayMs:       0,
		MaxDelayMs:       30_000,
		SpeedupThreshold: 3,
		ConcurrencyStep:  1,
		DelayStepMs:      500,
	}
}

// DefaultState is the first-run state: modest concurrency with a small
// inter-request delay, leaving room to ratchet in both directions.
func DefaultState(b Bounds) *State {
	s := &State{
		Concurrency: 2,
		DelayMs:     500,
	}
	s.clamp(b)
	return s
}

// Backoff records a run during which at least one 429 was observed:
// drop concurrency by one step and grow the delay proportionally to
// the current 429 streak.
func (s *State) Backoff(b Bounds, now time.Time) {
	s.Consecutive429s++
	s.ConsecutiveSuccesses = 0
	t := now
	s.Last429At = &t

	s.Concurrency -= b.ConcurrencyStep
	if s.Concurrency < b.MinConcurrency {
		s.Concurrency = b.MinConcurrency
	}

	s.DelayMs += b.DelayStepMs * s.Consecutive429s
	if s.DelayMs > b.MaxDelayMs {
		s.DelayMs = b.MaxDelayMs
	}
}

// Speedup records a clean run. Only after SpeedupThreshold consecutive
// clean runs does the state actually accelerate, so a single good run
// between two rate-limited ones never speeds anything up.
func (s *State) Speedup(b Bounds, now time.Time) {
	s.ConsecutiveSuccesses++
	s.Consecutive429s = 0
	t := now
	s.LastSuccessAt = &t

	if s.ConsecutiveSuccesses < b.SpeedupThreshold {
		return
	}
	s.ConsecutiveSuccesses = 0

	s.Concurrency += b.ConcurrencyStep
	if s.Concurrency > b.MaxConcurrency {
		s.Concurrency = b.MaxConcurrency
	}

	s.DelayMs -= b.DelayStepMs
	if s.DelayMs < b.MinDelayMs {
		s.DelayMs = b.MinDelayMs
	}
}

// Validate reconciles a loaded state with the current bounds by
// clamping out-of-range fields to the nearest bound. Clamping (rather
// than discarding the whole record) keeps the success/429 streaks, so
// a bounds change does not erase the learned history. Negative
// counters reset to zero.
func (s *State) Validate(b Bounds) {
	s.clamp(b)
	if s.ConsecutiveSuccesses < 0 {
		s.ConsecutiveSuccesses = 0
	}
	if s.Consecutive429s < 0 {
		s.Consecutive429s = 0
	}
}

func (s *State) clamp(b Bounds) {
	if s.Concurrency < b.MinConcurrency {
		s.Concurrency = b.MinConcurrency
	}
	if s.Concurrency > b.MaxConcurrency {
		s.Concurrency = b.MaxConcurrency
	}
	if s.DelayMs < b.MinDelayMs {
		s.DelayMs = b.MinDelayMs
	}
	if s.DelayMs > b.MaxDelayMs {
		s.DelayMs = b.MaxDelayMs
	}
}

// Delay returns the inter-request delay as a duration.
func (s *State) Delay() time.Duration {
	return time.Duration(s.DelayMs) * time.Millisecond
}
