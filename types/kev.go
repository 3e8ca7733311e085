package types

// KevCatalog is the CISA Known Exploited Vulnerabilities catalog JSON.
type KevCatalog struct {
	Title           string     `json:"title"`
	CatalogVersion  string     `json:"catalogVersion"`
	DateReleased    string     `json:"dateReleased"`
	Count           int        `json:"count"`
	Vulnerabilities []KevEntry `json:"vulnerabilities"`
}

// KevEntry is a single catalog record.
type KevEntry struct {
	CveId                      string `json:"cveID"`
	VendorProject              string `json:"vendorProject"`
	Product                    string `json:"product"`
	VulnerabilityName          string `json:"vulnerabilityName"`
	DateAdded                  string `json:"dateAdded"`
	DueDate                    string `json:"dueDate"`
	RequiredAction             string `json:"requiredAction"`
	KnownRansomwareCampaignUse string `json:"knownRansomwareCampaignUse"`
	ShortDescription           string `json:"shortDescription"`
	Notes                      string `json:"notes"`
}
