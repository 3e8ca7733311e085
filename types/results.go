package types

// PatchStatus is the classified outcome of a single NVD lookup.
type PatchStatus string

const (
	StatusPatched        PatchStatus = "PATCHED"
	StatusMitigationOnly PatchStatus = "MITIGATION_ONLY"
	StatusUnpatched      PatchStatus = "UNPATCHED"
	StatusError          PatchStatus = "ERROR"
)

// FetchResult is the per-CVE outcome of a single lookup. It is created
// once per completed lookup and never mutated after creation.
type FetchResult struct {
	CveId  string      `json:"cve_id"`
	Status PatchStatus `json:"status"`

	HasPatch          bool     `json:"has_patch"`
	HasVendorAdvisory bool     `json:"has_vendor_advisory"`
	HasMitigation     bool     `json:"has_mitigation"`
	PatchUrls         []string `json:"patch_urls"`

	CvssScore    float64 `json:"cvss_score,omitempty"`
	CvssSeverity string  `json:"cvss_severity,omitempty"`
	Description  string  `json:"description,omitempty"`

	// Error holds the failure description for StatusError results.
	Error string `json:"error,omitempty"`
}

// BulkItem is the lighter-weight record produced by the bulk paginator.
type BulkItem struct {
	CveId        string  `json:"cve_id"`
	Published    string  `json:"published"`
	CvssScore    float64 `json:"cvss_score,omitempty"`
	CvssSeverity string  `json:"cvss_severity,omitempty"`
	Description  string  `json:"description,omitempty"`
	Vendor       string  `json:"vendor,omitempty"`
	Product      string  `json:"product,omitempty"`
}
