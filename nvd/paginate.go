package nvd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/killrazor/kevwatch/errors"
	"github.com/killrazor/kevwatch/types"
)

// PageSize is the NVD API's maximum resultsPerPage.
const PageSize = 2000

// nvdTimeFormat is the ISO-8601 shape the 2.0 API expects for
// pubStartDate / pubEndDate.
const nvdTimeFormat = "2006-01-02T15:04:05.000"

// FetchRange pulls every CVE published inside [start, end], paging
// through the API until the reported total is exhausted or maxResults
// items have been collected (maxResults <= 0 means no cap).
//
// Unlike single lookups, a page failure is fatal to the whole call:
// after the executor's own retries are spent the error propagates and
// previously fetched pages are discarded.
func (c *Client) FetchRange(
	ctx context.Context,
	start, end time.Time,
	maxResults int,
) ([]types.BulkItem, error) {
	var items []types.BulkItem
	startIndex := 0

	for {
		query := url.Values{}
		query.Set("pubStartDate", start.UTC().Format(nvdTimeFormat))
		query.Set("pubEndDate", end.UTC().Format(nvdTimeFormat))
		query.Set("resultsPerPage", fmt.Sprint(PageSize))
		query.Set("startIndex", fmt.Sprint(startIndex))

		body, apiErr := c.get(ctx, query, bulkTimeout, "nvd.FetchRange")
		if apiErr != nil {
			return nil, apiErr
		}

		var res types.CveResponse
		if err := json.Unmarshal(body, &res); err != nil {
			return nil, &errors.ApiError{
				Stage:     errors.STAGE_AFTER_REQUEST,
				Type:      errors.TYPE_JSON_PARSE,
				SourceErr: err,
				Body:      body,
			}
		}

		c.logger.Debugf(
			"nvd: page startIndex=%d returned %d of %d total",
			startIndex, len(res.Vulnerabilities), res.TotalResults,
		)

		for _, v := range res.Vulnerabilities {
			items = append(items, ClassifyBulk(v.Cve))
			if maxResults > 0 && len(items) >= maxResults {
				return items, nil
			}
		}

		startIndex += len(res.Vulnerabilities)
		if len(res.Vulnerabilities) == 0 || startIndex >= res.TotalResults {
			return items, nil
		}
	}
}
