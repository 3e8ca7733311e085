package types

// NVD CVE API 2.0 response shapes. Only the fields the checker reads
// are mapped; the API returns far more.

type CveResponse struct {
	ResultsPerPage  int       `json:"resultsPerPage"`
	StartIndex      int       `json:"startIndex"`
	TotalResults    int       `json:"totalResults"`
	Vulnerabilities []CveItem `json:"vulnerabilities"`
}

type CveItem struct {
	Cve Cve `json:"cve"`
}

type Cve struct {
	Id             string           `json:"id"`
	Published      string           `json:"published"`
	Descriptions   []CveDescription `json:"descriptions"`
	Metrics        CveMetrics       `json:"metrics"`
	References     []CveReference   `json:"references"`
	Configurations []CveConfig      `json:"configurations"`
}

type CveDescription struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

type CveReference struct {
	Url    string   `json:"url"`
	Source string   `json:"source"`
	Tags   []string `json:"tags"`
}

type CveMetrics struct {
	CvssMetricV31 []CvssMetric `json:"cvssMetricV31"`
	CvssMetricV30 []CvssMetric `json:"cvssMetricV30"`
	CvssMetricV2  []CvssMetric `json:"cvssMetricV2"`
}

type CvssMetric struct {
	CvssData CvssData `json:"cvssData"`

	// BaseSeverity lives at the metric level for CVSS v2.
	BaseSeverity string `json:"baseSeverity"`
}

type CvssData struct {
	Version      string  `json:"version"`
	BaseScore    float64 `json:"baseScore"`
	BaseSeverity string  `json:"baseSeverity"`
}

type CveConfig struct {
	Nodes []CveConfigNode `json:"nodes"`
}

type CveConfigNode struct {
	CpeMatch []CpeMatch `json:"cpeMatch"`
}

type CpeMatch struct {
	Vulnerable bool   `json:"vulnerable"`
	Criteria   string `json:"criteria"`
}
