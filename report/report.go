package report

import (
	_ "embed"
	"encoding/json"
	"html/template"
	"io"
	"sort"
	"time"

	"github.com/killrazor/kevwatch/types"
)

//go:embed report.tmpl
var reportTmpl string

// Item pairs a KEV catalog entry with its NVD lookup outcome.
type Item struct {
	Entry  types.KevEntry    `json:"entry"`
	Result types.FetchResult `json:"result"`
}

// Summary counts items per classification.
type Summary struct {
	Unpatched      int `json:"unpatched"`
	MitigationOnly int `json:"mitigation_only"`
	Patched        int `json:"patched"`
	Errors         int `json:"errors"`
}

// Data is everything the static report needs. Items are sorted worst
// first: unpatched, then mitigation-only, then errors, then patched,
// ties broken by CVE id.
type Data struct {
	GeneratedAt  time.Time `json:"last_updated"`
	TotalKev     int       `json:"total_kev"`
	TotalChecked int       `json:"total_checked"`
	RateLimited  bool      `json:"rate_limited"`
	Summary      Summary   `json:"summary"`
	Items        []Item    `json:"vulnerabilities"`
}

var statusOrder = map[types.PatchStatus]int{
	types.StatusUnpatched:      0,
	types.StatusMitigationOnly: 1,
	types.StatusError:          2,
	types.StatusPatched:        3,
}

// Build assembles report data from raw results.
func Build(totalKev int, rateLimited bool, items []Item, now time.Time) *Data {
	data := &Data{
		GeneratedAt:  now,
		TotalKev:     totalKev,
		TotalChecked: len(items),
		RateLimited:  rateLimited,
		Items:        append([]Item(nil), items...),
	}

	for _, item := range data.Items {
		switch item.Result.Status {
		case types.StatusUnpatched:
			data.Summary.Unpatched++
		case types.StatusMitigationOnly:
			data.Summary.MitigationOnly++
		case types.StatusPatched:
			data.Summary.Patched++
		default:
			data.Summary.Errors++
		}
	}

	sort.SliceStable(data.Items, func(i, j int) bool {
		a, b := data.Items[i], data.Items[j]
		oa, ob := statusOrder[a.Result.Status], statusOrder[b.Result.Status]
		if oa != ob {
			return oa < ob
		}
		return a.Entry.CveId < b.Entry.CveId
	})

	return data
}

// ByStatus returns the items carrying the given status, in report
// order.
func (d *Data) ByStatus(status types.PatchStatus) []Item {
	var out []Item
	for _, item := range d.Items {
		if item.Result.Status == status {
			out = append(out, item)
		}
	}
	return out
}

// Unpatched and MitigationOnly exist for the template, which cannot
// pass typed constants to ByStatus.
func (d *Data) Unpatched() []Item {
	return d.ByStatus(types.StatusUnpatched)
}

func (d *Data) MitigationOnly() []Item {
	return d.ByStatus(types.StatusMitigationOnly)
}

// WriteHTML renders the static report page.
func WriteHTML(w io.Writer, data *Data) error {
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"statusLabel": statusLabel,
		"statusClass": statusClass,
		"formatTime": func(t time.Time) string {
			return t.UTC().Format("2006-01-02 15:04 UTC")
		},
	}).Parse(reportTmpl)
	if err != nil {
		return err
	}
	return tmpl.Execute(w, data)
}

// WriteJSON emits the machine-readable companion to the HTML page.
func WriteJSON(w io.Writer, data *Data) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func statusLabel(s types.PatchStatus) string {
	switch s {
	case types.StatusUnpatched:
		return "Unpatched"
	case types.StatusMitigationOnly:
		return "Mitigation"
	case types.StatusPatched:
		return "Patched"
	default:
		return "Error"
	}
}

func statusClass(s types.PatchStatus) string {
	switch s {
	case types.StatusUnpatched:
		return "status-unpatched"
	case types.StatusMitigationOnly:
		return "status-mitigation"
	case types.StatusPatched:
		return "status-patched"
	default:
		return "status-error"
	}
}
