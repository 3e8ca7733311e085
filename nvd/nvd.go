package nvd

import (
	"context"
	goerrors "errors"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/killrazor/kevwatch/errors"
	"github.com/killrazor/kevwatch/logger"
	"github.com/killrazor/kevwatch/rate"
	"github.com/killrazor/kevwatch/retry"
)

const (
	DefaultBaseUrl = "https://services.nvd.nist.gov/rest/json/cves/2.0"

	// MaxRetries is the number of retries after the first 429, so a
	// rate-limited call is attempted MaxRetries+1 times in total.
	MaxRetries = 3

	// RetryBaseDelay doubles on every retry: 5s, 10s, 20s.
	RetryBaseDelay = 5 * time.Second

	singleTimeout = 30 * time.Second
	bulkTimeout   = 60 * time.Second
)

// Client talks to an NVD-compatible CVE endpoint. Every call enters
// the rate limiter before dispatch and retries on HTTP 429 with
// exponential backoff. Any observed 429 is remembered for the
// post-run throttle adjustment.
type Client struct {
	apiKey     string
	baseUrl    string
	httpClient *http.Client
	logger     logger.Logger
	limiter    rate.Limiter
	retry      retry.Retry

	saw429 atomic.Bool
}

type Option func(c *Client)

// WithBaseUrl points the client at a different NVD-compatible
// endpoint. Mirrors and test servers use this.
func WithBaseUrl(baseUrl string) Option {
	return func(c *Client) {
		c.baseUrl = baseUrl
	}
}

func WithRetry(r retry.Retry) Option {
	return func(c *Client) {
		c.retry = r
	}
}

func NewClient(
	apiKey string,
	httpClient *http.Client,
	log logger.Logger,
	limiter rate.Limiter,
	opts ...Option,
) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseUrl:    DefaultBaseUrl,
		httpClient: httpClient,
		logger:     log,
		limiter:    limiter,
		retry: retry.NewExponentialRetry(
			retry.WithInitialDuration(RetryBaseDelay),
			retry.WithLogger(log),
		),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RateLimited reports whether any call during this client's lifetime
// saw an HTTP 429. The caller feeds this into the throttle state
// machine after the run completes.
func (c *Client) RateLimited() bool {
	return c.saw429.Load()
}

// get performs one rate-limited GET with bounded retries on 429.
// Non-429 failures are terminal on the first occurrence.
func (c *Client) get(
	ctx context.Context,
	query url.Values,
	timeout time.Duration,
	fnName string,
) ([]byte, *errors.ApiError) {
	var body []byte

	err := c.retry.Do(
		MaxRetries+1,
		fnName,
		func(attempt int) (error, retry.ExitStrategy) {
			b, apiErr := c.getOnce(ctx, query, timeout)
			if apiErr == nil {
				body = b
				return nil, retry.StopNow
			}
			if apiErr.HttpStatusCode == http.StatusTooManyRequests {
				c.saw429.Store(true)
				apiErr.Type = errors.TYPE_RATE_LIMITED
				c.logger.Warnf(
					"nvd: 429 from API on attempt %d of %d",
					attempt+1, MaxRetries+1,
				)
				return apiErr, retry.Continue
			}
			return apiErr, retry.StopNow
		},
	)
	if err != nil {
		var apiErr *errors.ApiError
		if goerrors.As(err, &apiErr) {
			return nil, apiErr
		}
		return nil, &errors.ApiError{
			Stage:     errors.STAGE_REQUEST,
			Type:      errors.TYPE_UNKNOWN,
			SourceErr: err,
		}
	}
	return body, nil
}

func (c *Client) getOnce(
	ctx context.Context,
	query url.Values,
	timeout time.Duration,
) ([]byte, *errors.ApiError) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, &errors.ApiError{
			Stage:     errors.STAGE_BEFORE_REQUEST,
			Type:      errors.TYPE_IO,
			SourceErr: err,
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := c.baseUrl + "?" + query.Encode()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &errors.ApiError{
			Stage:     errors.STAGE_BEFORE_REQUEST,
			Type:      errors.TYPE_REQUEST_PREP,
			SourceErr: err,
		}
	}

	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apiKey", c.apiKey)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &errors.ApiError{
			Stage:     errors.STAGE_REQUEST,
			Type:      errors.TYPE_IO,
			SourceErr: err,
		}
	}

	if res.StatusCode != http.StatusOK {
		var body []byte
		if res.Body != nil {
			body, _ = io.ReadAll(res.Body)
			defer func() { _ = res.Body.Close() }()
		}
		return body, &errors.ApiError{
			Stage:          errors.STAGE_AFTER_REQUEST,
			Type:           errors.TYPE_HTTP_STATUS,
			Body:           body,
			HttpStatusCode: res.StatusCode,
		}
	}

	body, err := io.ReadAll(res.Body)
	defer func() { _ = res.Body.Close() }()
	if err != nil {
		return body, &errors.ApiError{
			Stage:          errors.STAGE_AFTER_REQUEST,
			Type:           errors.TYPE_IO,
			Body:           body,
			HttpStatusCode: res.StatusCode,
			SourceErr:      err,
		}
	}

	return body, nil
}
