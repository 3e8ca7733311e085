package rate

import "context"

// Limiter controls request rates to the NVD API.
//
// The Limiter interface provides rate limiting functionality to prevent
// exceeding NVD's published API quotas. Implementations can use different
// strategies such as:
//   - Token bucket algorithm
//   - Fixed window counting
//   - Sliding window counting
//   - Leaky bucket algorithm
//
// Acquire is called before each request and blocks (cooperatively, via
// the context) until the caller is allowed to dispatch. This helps
// maintain good API citizenship and prevents rate limit errors.
type Limiter interface {
	// Acquire blocks until the caller may dispatch one request, then
	// records the dispatch and returns nil. It returns the context's
	// error if ctx is cancelled while waiting.
	Acquire(ctx context.Context) error
}
