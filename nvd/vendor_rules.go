package nvd

import "strings"

// vendorRule maps a description substring to a vendor label. Rules are
// evaluated in order and the first match wins, so put the more
// specific patterns first.
type vendorRule struct {
	pattern string
	vendor  string
}

var vendorRules = []vendorRule{
	{"palo alto", "Palo Alto Networks"},
	{"pan-os", "Palo Alto Networks"},
	{"microsoft", "Microsoft"},
	{"windows", "Microsoft"},
	{"apple", "Apple"},
	{"iphone", "Apple"},
	{"ipados", "Apple"},
	{"macos", "Apple"},
	{"google", "Google"},
	{"android", "Google"},
	{"chrome", "Google"},
	{"cisco", "Cisco"},
	{"adobe", "Adobe"},
	{"oracle", "Oracle"},
	{"vmware", "VMware"},
	{"citrix", "Citrix"},
	{"fortinet", "Fortinet"},
	{"fortios", "Fortinet"},
	{"ivanti", "Ivanti"},
	{"pulse secure", "Ivanti"},
	{"apache", "Apache"},
	{"atlassian", "Atlassian"},
	{"confluence", "Atlassian"},
	{"mozilla", "Mozilla"},
	{"firefox", "Mozilla"},
	{"samsung", "Samsung"},
	{"qualcomm", "Qualcomm"},
	{"d-link", "D-Link"},
	{"qnap", "QNAP"},
	{"zyxel", "Zyxel"},
	{"sonicwall", "SonicWall"},
	{"juniper", "Juniper"},
	{"tp-link", "TP-Link"},
	{"sap ", "SAP"},
	{"ibm", "IBM"},
	{"linux kernel", "Linux"},
}

// matchVendor scans the free-text description for a known vendor name.
func matchVendor(description string) (string, bool) {
	desc := strings.ToLower(description)
	for _, rule := range vendorRules {
		if strings.Contains(desc, rule.pattern) {
			return rule.vendor, true
		}
	}
	return "", false
}
