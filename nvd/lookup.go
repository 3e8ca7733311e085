package nvd

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/killrazor/kevwatch/types"
)

// CveById looks up a single CVE and classifies its patch status.
// Failures never propagate as errors: each lookup degrades
// independently to a StatusError result with the message preserved.
func (c *Client) CveById(ctx context.Context, cveId string) types.FetchResult {
	query := url.Values{}
	query.Set("cveId", cveId)

	body, apiErr := c.get(ctx, query, singleTimeout, "nvd.CveById")
	if apiErr != nil {
		return types.FetchResult{
			CveId:  cveId,
			Status: types.StatusError,
			Error:  apiErr.Error(),
		}
	}

	var res types.CveResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return types.FetchResult{
			CveId:  cveId,
			Status: types.StatusError,
			Error:  err.Error(),
		}
	}

	var cve types.Cve
	if len(res.Vulnerabilities) > 0 {
		cve = res.Vulnerabilities[0].Cve
	}
	result := Classify(cve)
	result.CveId = cveId
	return result
}
