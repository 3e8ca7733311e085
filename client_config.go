package kevwatch

import (
	"net/http"
	"time"

	"github.com/killrazor/kevwatch/logger"
	"github.com/killrazor/kevwatch/rate"
	"github.com/killrazor/kevwatch/retry"
	"github.com/killrazor/kevwatch/store"
	"github.com/killrazor/kevwatch/throttle"
)

type config struct {
	// apiKey is the optional NVD API credential. With a key the
	// sliding window admits 50 requests per 30s instead of 5.
	// default: "" (keyless)
	apiKey string

	// transport specifies the HTTP transport mechanism
	// for making requests.
	// It's useful for mocking or if users
	// want to add extra logging, headers, etc.
	// default: http.DefaultTransport
	transport http.RoundTripper

	// timeout caps the KEV catalog download. NVD calls carry their own
	// per-request deadlines (30s single, 60s bulk).
	// default: 30 seconds
	timeout time.Duration

	// logger provides logging functionality for all internal
	// checker operations
	// default: logger.Noop
	logger logger.Logger

	// limiter gates NVD dispatches. When nil, a sliding-window
	// limiter sized for the apiKey is constructed.
	limiter rate.Limiter

	// retry overrides the NVD 429 backoff strategy. Mostly for tests;
	// the default is exponential from 5s.
	retry retry.Retry

	// stateStore persists the throttle state between runs
	// default: store.FileStore at stateFile
	stateStore store.Store

	// stateFile is where the default FileStore keeps the state
	// default: kevwatch-state.json
	stateFile string

	// bounds confines the throttle state machine
	// default: throttle.DefaultBounds()
	bounds throttle.Bounds

	// nvdBaseUrl overrides the NVD endpoint (mirrors, test servers)
	nvdBaseUrl string

	// kevUrl overrides the KEV catalog feed location
	kevUrl string
}

func defaultConfig() *config {
	return &config{
		transport: http.DefaultTransport,
		timeout:   30 * time.Second,
		logger:    logger.Noop{},
		stateFile: "kevwatch-state.json",
		bounds:    throttle.DefaultBounds(),
	}
}

type ConfigOption func(c *config)

func WithApiKey(apiKey string) ConfigOption {
	return func(c *config) {
		c.apiKey = apiKey
	}
}

func WithTransport(transport http.RoundTripper) ConfigOption {
	return func(c *config) {
		c.transport = transport
	}
}

func WithTimeout(timeout time.Duration) ConfigOption {
	return func(c *config) {
		c.timeout = timeout
	}
}

func WithLogger(logger logger.Logger) ConfigOption {
	return func(c *config) {
		c.logger = logger
	}
}

func WithLimiter(limiter rate.Limiter) ConfigOption {
	return func(c *config) {
		c.limiter = limiter
	}
}

func WithRetry(r retry.Retry) ConfigOption {
	return func(c *config) {
		c.retry = r
	}
}

func WithStateStore(s store.Store) ConfigOption {
	return func(c *config) {
		c.stateStore = s
	}
}

func WithStateFile(path string) ConfigOption {
	return func(c *config) {
		c.stateFile = path
	}
}

func WithBounds(b throttle.Bounds) ConfigOption {
	return func(c *config) {
		c.bounds = b
	}
}

func WithNvdBaseUrl(baseUrl string) ConfigOption {
	return func(c *config) {
		c.nvdBaseUrl = baseUrl
	}
}

func WithKevCatalogUrl(catalogUrl string) ConfigOption {
	return func(c *config) {
		c.kevUrl = catalogUrl
	}
}
