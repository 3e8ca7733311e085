package nvd

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killrazor/kevwatch/errors"
	"github.com/killrazor/kevwatch/types"
)

func pageBody(t *testing.T, startIndex, total int, count int) []byte {
	t.Helper()
	res := types.CveResponse{
		ResultsPerPage: count,
		StartIndex:     startIndex,
		TotalResults:   total,
	}
	for i := 0; i < count; i++ {
		res.Vulnerabilities = append(res.Vulnerabilities, types.CveItem{
			Cve: types.Cve{
				Id:        fmt.Sprintf("CVE-2024-%04d", startIndex+i),
				Published: "2024-05-01T00:00:00.000",
				Descriptions: []types.CveDescription{
					{Lang: "en", Value: "A flaw in Cisco devices."},
				},
			},
		})
	}
	data, err := json.Marshal(res)
	require.NoError(t, err)
	return data
}

var (
	rangeStart = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd   = time.Date(2024, 5, 8, 0, 0, 0, 0, time.UTC)
)

func Test_FetchRange_StopsAtMaxResults(t *testing.T) {
	// API reports 25 results; caller wants 10. One page request
	// suffices because the page size covers the target.
	tr := &testTransport{replies: []reply{
		{code: 200, body: pageBody(t, 0, 25, 25)},
	}}
	c := testClient(tr)

	items, err := c.FetchRange(context.Background(), rangeStart, rangeEnd, 10)

	require.NoError(t, err)
	assert.Len(t, items, 10)
	assert.Equal(t, 1, tr.calls())
}

func Test_FetchRange_PagesUntilTotalExhausted(t *testing.T) {
	tr := &testTransport{replies: []reply{
		{code: 200, body: pageBody(t, 0, 5, 3)},
		{code: 200, body: pageBody(t, 3, 5, 2)},
	}}
	c := testClient(tr)

	items, err := c.FetchRange(context.Background(), rangeStart, rangeEnd, 0)

	require.NoError(t, err)
	assert.Len(t, items, 5)
	require.Equal(t, 2, tr.calls())

	first := tr.request(0).URL.Query()
	assert.Equal(t, "0", first.Get("startIndex"))
	assert.Equal(t, "2000", first.Get("resultsPerPage"))
	assert.Equal(t, "2024-05-01T00:00:00.000", first.Get("pubStartDate"))
	assert.Equal(t, "2024-05-08T00:00:00.000", first.Get("pubEndDate"))

	second := tr.request(1).URL.Query()
	assert.Equal(t, "3", second.Get("startIndex"))
}

func Test_FetchRange_ClassifiesItems(t *testing.T) {
	tr := &testTransport{replies: []reply{
		{code: 200, body: pageBody(t, 0, 1, 1)},
	}}
	c := testClient(tr)

	items, err := c.FetchRange(context.Background(), rangeStart, rangeEnd, 0)

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "CVE-2024-0000", items[0].CveId)
	assert.Equal(t, "Cisco", items[0].Vendor)
	assert.Equal(t, "A flaw in Cisco devices.", items[0].Description)
}

func Test_FetchRange_EmptyRange(t *testing.T) {
	tr := &testTransport{replies: []reply{
		{code: 200, body: pageBody(t, 0, 0, 0)},
	}}
	c := testClient(tr)

	items, err := c.FetchRange(context.Background(), rangeStart, rangeEnd, 0)

	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 1, tr.calls())
}

func Test_FetchRange_PageFailureIsFatal(t *testing.T) {
	// First page succeeds, second fails with a non-retriable status:
	// the whole call fails and no partial results survive.
	tr := &testTransport{replies: []reply{
		{code: 200, body: pageBody(t, 0, 5, 3)},
		{code: 503, body: []byte("unavailable")},
	}}
	c := testClient(tr)

	items, err := c.FetchRange(context.Background(), rangeStart, rangeEnd, 0)

	require.Error(t, err)
	assert.Nil(t, items)
	assert.Equal(t, 2, tr.calls())
}

func Test_FetchRange_429ExhaustionIsFatal(t *testing.T) {
	tr := &testTransport{replies: []reply{
		{code: 429, body: []byte("Too Many Requests")},
	}}
	c := testClient(tr)

	items, err := c.FetchRange(context.Background(), rangeStart, rangeEnd, 0)

	require.Error(t, err)
	assert.True(t, errors.IsRateLimited(err))
	assert.Nil(t, items)
	assert.Equal(t, MaxRetries+1, tr.calls())
	assert.True(t, c.RateLimited())
}

func Test_FetchRange_MalformedPage(t *testing.T) {
	tr := &testTransport{replies: []reply{
		{code: 200, body: []byte(`{"vulnerabilities":`)},
	}}
	c := testClient(tr)

	items, err := c.FetchRange(context.Background(), rangeStart, rangeEnd, 0)

	require.Error(t, err)
	assert.Nil(t, items)
}
