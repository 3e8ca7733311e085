package kev

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/killrazor/kevwatch/errors"
	"github.com/killrazor/kevwatch/logger"
	"github.com/killrazor/kevwatch/types"
)

// DefaultCatalogUrl is CISA's published KEV catalog feed.
const DefaultCatalogUrl = "https://www.cisa.gov/sites/default/files/feeds/known_exploited_vulnerabilities.json"

const catalogTimeout = 30 * time.Second

// Client downloads the CISA KEV catalog. The catalog is a single
// unauthenticated JSON document; no rate limiting applies.
type Client struct {
	catalogUrl string
	httpClient *http.Client
	logger     logger.Logger
}

func NewClient(catalogUrl string, httpClient *http.Client, log logger.Logger) *Client {
	if catalogUrl == "" {
		catalogUrl = DefaultCatalogUrl
	}
	return &Client{
		catalogUrl: catalogUrl,
		httpClient: httpClient,
		logger:     log,
	}
}

// Catalog fetches and decodes the full KEV catalog.
func (c *Client) Catalog(ctx context.Context) (*types.KevCatalog, error) {
	reqCtx, cancel := context.WithTimeout(ctx, catalogTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.catalogUrl, nil)
	if err != nil {
		return nil, &errors.ApiError{
			Stage:     errors.STAGE_BEFORE_REQUEST,
			Type:      errors.TYPE_REQUEST_PREP,
			SourceErr: err,
		}
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &errors.ApiError{
			Stage:     errors.STAGE_REQUEST,
			Type:      errors.TYPE_IO,
			SourceErr: err,
		}
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &errors.ApiError{
			Stage:          errors.STAGE_AFTER_REQUEST,
			Type:           errors.TYPE_IO,
			HttpStatusCode: res.StatusCode,
			SourceErr:      err,
		}
	}

	if res.StatusCode != http.StatusOK {
		return nil, &errors.ApiError{
			Stage:          errors.STAGE_AFTER_REQUEST,
			Type:           errors.TYPE_HTTP_STATUS,
			Body:           body,
			HttpStatusCode: res.StatusCode,
		}
	}

	var catalog types.KevCatalog
	if err := json.Unmarshal(body, &catalog); err != nil {
		return nil, &errors.ApiError{
			Stage:     errors.STAGE_AFTER_REQUEST,
			Type:      errors.TYPE_JSON_PARSE,
			Body:      body,
			SourceErr: err,
		}
	}

	c.logger.Infof("kev: downloaded catalog with %d entries", len(catalog.Vulnerabilities))
	return &catalog, nil
}

// FilterMitigations returns the entries whose required action suggests
// no full patch exists: "apply mitigations" or "discontinue use".
func FilterMitigations(catalog *types.KevCatalog) []types.KevEntry {
	var filtered []types.KevEntry
	for _, entry := range catalog.Vulnerabilities {
		action := strings.ToLower(entry.RequiredAction)
		if strings.Contains(action, "apply mitigations") ||
			strings.Contains(action, "discontinue use") {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}
