package nvd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/killrazor/kevwatch/types"
)

func Test_Classify(t *testing.T) {
	testCases := []struct {
		name         string
		refs         []types.CveReference
		expectStatus types.PatchStatus
		expectUrls   []string
	}{
		{
			name: "patch tag",
			refs: []types.CveReference{
				{Url: "https://a.example/fix", Tags: []string{"Patch"}},
			},
			expectStatus: types.StatusPatched,
			expectUrls:   []string{"https://a.example/fix"},
		},
		{
			name: "patch beats advisory",
			refs: []types.CveReference{
				{Url: "https://a.example/adv", Tags: []string{"Vendor Advisory"}},
				{Url: "https://a.example/fix", Tags: []string{"Patch"}},
			},
			expectStatus: types.StatusPatched,
			expectUrls:   []string{"https://a.example/fix"},
		},
		{
			name: "vendor advisory only",
			refs: []types.CveReference{
				{Url: "https://a.example/adv", Tags: []string{"Vendor Advisory"}},
			},
			expectStatus: types.StatusMitigationOnly,
		},
		{
			name: "mitigation only",
			refs: []types.CveReference{
				{Url: "https://a.example/workaround", Tags: []string{"Mitigation"}},
			},
			expectStatus: types.StatusMitigationOnly,
		},
		{
			name:         "no references",
			refs:         nil,
			expectStatus: types.StatusUnpatched,
		},
		{
			name: "unrelated tags",
			refs: []types.CveReference{
				{Url: "https://a.example/writeup", Tags: []string{"Exploit", "Third Party Advisory"}},
			},
			expectStatus: types.StatusUnpatched,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := Classify(types.Cve{References: tt.refs})
			assert.Equal(t, tt.expectStatus, result.Status)
			assert.Equal(t, tt.expectUrls, result.PatchUrls)
		})
	}
}

func Test_ExtractCvss(t *testing.T) {
	v31 := []types.CvssMetric{{CvssData: types.CvssData{BaseScore: 9.8, BaseSeverity: "CRITICAL"}}}
	v30 := []types.CvssMetric{{CvssData: types.CvssData{BaseScore: 8.1, BaseSeverity: "HIGH"}}}
	v2 := []types.CvssMetric{{CvssData: types.CvssData{BaseScore: 7.5}, BaseSeverity: "HIGH"}}

	testCases := []struct {
		name           string
		metrics        types.CveMetrics
		expectScore    float64
		expectSeverity string
	}{
		{
			name:           "v3.1 preferred",
			metrics:        types.CveMetrics{CvssMetricV31: v31, CvssMetricV30: v30, CvssMetricV2: v2},
			expectScore:    9.8,
			expectSeverity: "CRITICAL",
		},
		{
			name:           "v3.0 fallback",
			metrics:        types.CveMetrics{CvssMetricV30: v30, CvssMetricV2: v2},
			expectScore:    8.1,
			expectSeverity: "HIGH",
		},
		{
			name:           "v2 severity sits next to cvssData",
			metrics:        types.CveMetrics{CvssMetricV2: v2},
			expectScore:    7.5,
			expectSeverity: "HIGH",
		},
		{
			name:    "no metrics",
			metrics: types.CveMetrics{},
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			score, severity := ExtractCvss(tt.metrics)
			assert.Equal(t, tt.expectScore, score)
			assert.Equal(t, tt.expectSeverity, severity)
		})
	}
}

func Test_ExtractDescription(t *testing.T) {
	long := strings.Repeat("x", 250)

	testCases := []struct {
		name   string
		descs  []types.CveDescription
		expect string
	}{
		{
			name: "english preferred",
			descs: []types.CveDescription{
				{Lang: "es", Value: "descripción"},
				{Lang: "en", Value: "description"},
			},
			expect: "description",
		},
		{
			name: "first available fallback",
			descs: []types.CveDescription{
				{Lang: "es", Value: "descripción"},
			},
			expect: "descripción",
		},
		{
			name:   "empty",
			descs:  nil,
			expect: "",
		},
		{
			name: "truncated with marker",
			descs: []types.CveDescription{
				{Lang: "en", Value: long},
			},
			expect: strings.Repeat("x", 200) + "...",
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expect, ExtractDescription(tt.descs))
		})
	}
}

func Test_VendorProduct(t *testing.T) {
	testCases := []struct {
		name          string
		cve           types.Cve
		expectVendor  string
		expectProduct string
	}{
		{
			name: "from cpe",
			cve: types.Cve{
				Configurations: []types.CveConfig{{
					Nodes: []types.CveConfigNode{{
						CpeMatch: []types.CpeMatch{{
							Criteria: "cpe:2.3:o:fortinet:fortios:7.2.1:*:*:*:*:*:*:*",
						}},
					}},
				}},
			},
			expectVendor:  "fortinet",
			expectProduct: "fortios",
		},
		{
			name: "cpe underscores become spaces",
			cve: types.Cve{
				Configurations: []types.CveConfig{{
					Nodes: []types.CveConfigNode{{
						CpeMatch: []types.CpeMatch{{
							Criteria: "cpe:2.3:a:palo_alto_networks:pan-os:*:*:*:*:*:*:*:*",
						}},
					}},
				}},
			},
			expectVendor:  "palo alto networks",
			expectProduct: "pan-os",
		},
		{
			name: "rule table fallback",
			cve: types.Cve{
				Descriptions: []types.CveDescription{
					{Lang: "en", Value: "A flaw in Cisco IOS XE allows remote code execution."},
				},
			},
			expectVendor: "Cisco",
		},
		{
			name: "first rule wins",
			cve: types.Cve{
				Descriptions: []types.CveDescription{
					{Lang: "en", Value: "Palo Alto Networks PAN-OS, as used with Microsoft Windows agents."},
				},
			},
			expectVendor: "Palo Alto Networks",
		},
		{
			name: "no match",
			cve: types.Cve{
				Descriptions: []types.CveDescription{
					{Lang: "en", Value: "An obscure bug in an unnamed device."},
				},
			},
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			vendor, product := VendorProduct(tt.cve)
			assert.Equal(t, tt.expectVendor, vendor)
			assert.Equal(t, tt.expectProduct, product)
		})
	}
}

func Test_parseCpe(t *testing.T) {
	testCases := []struct {
		name     string
		criteria string
		expectOk bool
	}{
		{"valid", "cpe:2.3:a:vendor:product:1.0:*:*:*:*:*:*:*", true},
		{"wildcard vendor", "cpe:2.3:a:*:product:1.0:*:*:*:*:*:*:*", false},
		{"not a cpe", "urn:uuid:1234", false},
		{"too short", "cpe:2.3:a", false},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, ok := parseCpe(tt.criteria)
			assert.Equal(t, tt.expectOk, ok)
		})
	}
}
