package kevwatch

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/killrazor/kevwatch/kev"
	"github.com/killrazor/kevwatch/nvd"
	"github.com/killrazor/kevwatch/rate"
	"github.com/killrazor/kevwatch/report"
	"github.com/killrazor/kevwatch/store"
	"github.com/killrazor/kevwatch/throttle"
	"github.com/killrazor/kevwatch/types"
)

// Checker cross-references the CISA KEV catalog against the NVD API
// and produces the data behind the static report. One Checker drives
// one run; the sliding-window limiter and the observed-429 flag are
// scoped to it, so construct a fresh Checker per invocation.
type Checker struct {
	cfg        *config
	httpClient *http.Client
	nvd        *nvd.Client
	kev        *kev.Client
	store      store.Store

	now func() time.Time
}

func New(opts ...ConfigOption) *Checker {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	// NVD calls carry per-request context deadlines, so their client
	// gets no blanket timeout; the KEV download gets the configured one.
	httpClient := &http.Client{Transport: cfg.transport}
	kevHttpClient := &http.Client{Transport: cfg.transport, Timeout: cfg.timeout}

	limiter := cfg.limiter
	if limiter == nil {
		limiter = rate.ForKey(cfg.apiKey)
	}

	var nvdOpts []nvd.Option
	if cfg.nvdBaseUrl != "" {
		nvdOpts = append(nvdOpts, nvd.WithBaseUrl(cfg.nvdBaseUrl))
	}
	if cfg.retry != nil {
		nvdOpts = append(nvdOpts, nvd.WithRetry(cfg.retry))
	}

	stateStore := cfg.stateStore
	if stateStore == nil {
		stateStore = store.NewFileStore(cfg.stateFile, cfg.logger)
	}

	return &Checker{
		cfg:        cfg,
		httpClient: httpClient,
		nvd:        nvd.NewClient(cfg.apiKey, httpClient, cfg.logger, limiter, nvdOpts...),
		kev:        kev.NewClient(cfg.kevUrl, kevHttpClient, cfg.logger),
		store:      stateStore,
		now:        time.Now,
	}
}

func (c *Checker) Nvd() *nvd.Client {
	return c.nvd
}

func (c *Checker) Kev() *kev.Client {
	return c.kev
}

// Run executes one full check: load throttle state, download the KEV
// catalog, look up every mitigation-flagged CVE through the
// rate-limited NVD client, adjust and persist the throttle state, and
// return the assembled report data.
//
// limit > 0 caps the number of CVEs checked. Individual lookups
// degrade to error results; only catalog download and state-store
// failures abort the run.
func (c *Checker) Run(ctx context.Context, limit int) (*report.Data, error) {
	state, err := c.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = throttle.DefaultState(c.cfg.bounds)
		c.cfg.logger.Infof("checker: no persisted throttle state, starting from defaults")
	} else {
		state.Validate(c.cfg.bounds)
	}

	catalog, err := c.kev.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	entries := kev.FilterMitigations(catalog)
	c.cfg.logger.Infof(
		"checker: %d of %d KEV entries flagged for mitigation check",
		len(entries), len(catalog.Vulnerabilities),
	)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	items := c.checkAll(ctx, entries, state)

	now := c.now()
	if c.nvd.RateLimited() {
		state.Backoff(c.cfg.bounds, now)
		c.cfg.logger.Warnf(
			"checker: run saw 429s; backing off to concurrency=%d delay=%dms",
			state.Concurrency, state.DelayMs,
		)
	} else {
		state.Speedup(c.cfg.bounds, now)
		c.cfg.logger.Debugf(
			"checker: clean run; streak=%d concurrency=%d delay=%dms",
			state.ConsecutiveSuccesses, state.Concurrency, state.DelayMs,
		)
	}

	if err := c.store.Save(ctx, state); err != nil {
		// The report is still worth returning; next run just starts
		// from stale state.
		c.cfg.logger.Errorf("checker: failed to persist throttle state: %v", err)
	}

	return report.Build(len(catalog.Vulnerabilities), c.nvd.RateLimited(), items, now), nil
}

// checkAll fans single-CVE lookups out through an errgroup whose limit
// is the persisted concurrency knob. The group bounds in-flight calls;
// the sliding window inside the NVD client bounds calls per time unit.
func (c *Checker) checkAll(
	ctx context.Context,
	entries []types.KevEntry,
	state *throttle.State,
) []report.Item {
	items := make([]report.Item, len(entries))
	delay := state.Delay()

	var g errgroup.Group
	g.SetLimit(state.Concurrency)

	for i, entry := range entries {
		g.Go(func() error {
			items[i] = report.Item{
				Entry:  entry,
				Result: c.nvd.CveById(ctx, entry.CveId),
			}
			if delay > 0 {
				select {
				case <-ctx.Done():
				case <-time.After(delay):
				}
			}
			return nil
		})
	}
	// Workers never return errors; per-item failures live in the
	// results.
	_ = g.Wait()

	return items
}

// FetchRange exposes the bulk paginator: every CVE published inside
// [start, end], capped at maxResults. Unlike Run, a page failure here
// is fatal and no partial results are returned.
func (c *Checker) FetchRange(
	ctx context.Context,
	start, end time.Time,
	maxResults int,
) ([]types.BulkItem, error) {
	return c.nvd.FetchRange(ctx, start, end, maxResults)
}
