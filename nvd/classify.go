package nvd

import (
	"strings"

	"github.com/killrazor/kevwatch/types"
)

const (
	tagPatch          = "Patch"
	tagVendorAdvisory = "Vendor Advisory"
	tagMitigation     = "Mitigation"

	// descriptions longer than this are cut and suffixed with "...".
	maxDescriptionLen = 200
)

// Classify derives the patch status of a CVE from its reference tags.
// A "Patch" tag wins; otherwise a vendor advisory or mitigation
// downgrades to MITIGATION_ONLY; with neither the CVE counts as
// UNPATCHED.
func Classify(cve types.Cve) types.FetchResult {
	result := types.FetchResult{}

	for _, ref := range cve.References {
		for _, tag := range ref.Tags {
			switch tag {
			case tagPatch:
				result.HasPatch = true
				result.PatchUrls = append(result.PatchUrls, ref.Url)
			case tagVendorAdvisory:
				result.HasVendorAdvisory = true
			case tagMitigation:
				result.HasMitigation = true
			}
		}
	}

	switch {
	case result.HasPatch:
		result.Status = types.StatusPatched
	case result.HasVendorAdvisory || result.HasMitigation:
		result.Status = types.StatusMitigationOnly
	default:
		result.Status = types.StatusUnpatched
	}

	result.CvssScore, result.CvssSeverity = ExtractCvss(cve.Metrics)
	result.Description = ExtractDescription(cve.Descriptions)
	return result
}

// ClassifyBulk produces the lighter-weight record used by the bulk
// paginator.
func ClassifyBulk(cve types.Cve) types.BulkItem {
	item := types.BulkItem{
		CveId:       cve.Id,
		Published:   cve.Published,
		Description: ExtractDescription(cve.Descriptions),
	}
	item.CvssScore, item.CvssSeverity = ExtractCvss(cve.Metrics)
	item.Vendor, item.Product = VendorProduct(cve)
	return item
}

// ExtractCvss returns the base score and severity, preferring v3.1,
// then v3.0, then v2.0. The first metric of the first non-empty
// version wins.
func ExtractCvss(m types.CveMetrics) (float64, string) {
	for _, metrics := range [][]types.CvssMetric{
		m.CvssMetricV31, m.CvssMetricV30, m.CvssMetricV2,
	} {
		if len(metrics) == 0 {
			continue
		}
		metric := metrics[0]
		severity := metric.CvssData.BaseSeverity
		if severity == "" {
			// CVSS v2 carries severity next to cvssData.
			severity = metric.BaseSeverity
		}
		return metric.CvssData.BaseScore, severity
	}
	return 0, ""
}

// ExtractDescription picks the first English description, falling back
// to the first available one regardless of language, truncated to
// maxDescriptionLen runes.
func ExtractDescription(descs []types.CveDescription) string {
	var picked string
	for _, d := range descs {
		if d.Lang == "en" {
			picked = d.Value
			break
		}
	}
	if picked == "" && len(descs) > 0 {
		picked = descs[0].Value
	}

	runes := []rune(picked)
	if len(runes) > maxDescriptionLen {
		return string(runes[:maxDescriptionLen]) + "..."
	}
	return picked
}

// VendorProduct extracts the vendor and product, first from the CPE
// criteria in configurations, then by matching the description against
// the known-vendor rule table.
func VendorProduct(cve types.Cve) (string, string) {
	for _, cfg := range cve.Configurations {
		for _, node := range cfg.Nodes {
			for _, match := range node.CpeMatch {
				if vendor, product, ok := parseCpe(match.Criteria); ok {
					return vendor, product
				}
			}
		}
	}

	desc := ExtractDescription(cve.Descriptions)
	if vendor, ok := matchVendor(desc); ok {
		return vendor, ""
	}
	return "", ""
}

// parseCpe pulls vendor and product out of a CPE 2.3 identifier:
// cpe:2.3:part:vendor:product:version:...
func parseCpe(criteria string) (string, string, bool) {
	parts := strings.Split(criteria, ":")
	if len(parts) < 5 || parts[0] != "cpe" {
		return "", "", false
	}
	vendor := strings.ReplaceAll(parts[3], "_", " ")
	product := strings.ReplaceAll(parts[4], "_", " ")
	if vendor == "" || vendor == "*" {
		return "", "", false
	}
	if product == "*" {
		product = ""
	}
	return vendor, product, true
}
