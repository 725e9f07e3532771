package models

// ScanSnapshot is the structured result of one scan of a monitored target,
// as delivered in a scan.completed event's result_summary.
type ScanSnapshot struct {
	Technologies   TechnologySummary     `json:"technologies"`
	Performance    PerformanceSummary    `json:"performance"`
	Security       SecuritySummary       `json:"security"`
	Content        ContentSummary        `json:"content"`
	Infrastructure InfrastructureSummary `json:"infrastructure"`
	ScanTimestamp  string                `json:"scan_timestamp,omitempty"`
}

// DetectedTechnology is one technology the scanner identified.
type DetectedTechnology struct {
	Name            string   `json:"name"`
	Version         string   `json:"version,omitempty"`
	Category        string   `json:"category,omitempty"`
	Confidence      float64  `json:"confidence,omitempty"`
	DetectionMethod string   `json:"detection_method,omitempty"`
	Indicators      []string `json:"indicators,omitempty"`
}

type TechnologySummary struct {
	Detected []DetectedTechnology `json:"detected"`
}

// PerformanceSummary holds the fixed metric set the detector compares.
// Metrics the scanner did not measure are nil.
type PerformanceSummary struct {
	LoadTime        *float64 `json:"load_time,omitempty"`
	TTFB            *float64 `json:"ttfb,omitempty"`
	FCP             *float64 `json:"fcp,omitempty"`
	LCP             *float64 `json:"lcp,omitempty"`
	CLS             *float64 `json:"cls,omitempty"`
	FID             *float64 `json:"fid,omitempty"`
	LighthouseScore *float64 `json:"lighthouse_score,omitempty"`
	Issues          []string `json:"issues,omitempty"`
}

// Metric returns the named metric value and whether it was measured.
func (p *PerformanceSummary) Metric(name string) (float64, bool) {
	var v *float64

	switch name {
	case MetricLoadTime:
		v = p.LoadTime
	case MetricTTFB:
		v = p.TTFB
	case MetricFCP:
		v = p.FCP
	case MetricLCP:
		v = p.LCP
	case MetricCLS:
		v = p.CLS
	case MetricFID:
		v = p.FID
	case MetricLighthouseScore:
		v = p.LighthouseScore
	}

	if v == nil {
		return 0, false
	}

	return *v, true
}

// Performance metric names.
const (
	MetricLoadTime        = "load_time"
	MetricTTFB            = "ttfb"
	MetricFCP             = "fcp"
	MetricLCP             = "lcp"
	MetricCLS             = "cls"
	MetricFID             = "fid"
	MetricLighthouseScore = "lighthouse_score"
)

// Vulnerability is one finding in a scan's security summary.
type Vulnerability struct {
	ID          string   `json:"id,omitempty"`
	Type        string   `json:"type,omitempty"`
	Severity    string   `json:"severity,omitempty"`
	Description string   `json:"description,omitempty"`
	CVEIDs      []string `json:"cve_ids,omitempty"`
	Remediation string   `json:"remediation,omitempty"`
}

// Key identifies a vulnerability across scans: the scanner id when present,
// otherwise the finding type.
func (v *Vulnerability) Key() string {
	if v.ID != "" {
		return v.ID
	}

	return v.Type
}

type SSLInfo struct {
	Fingerprint string `json:"fingerprint,omitempty"`
	Issuer      string `json:"issuer,omitempty"`
	NotAfter    string `json:"not_after,omitempty"`
}

type SecuritySummary struct {
	Vulnerabilities []Vulnerability   `json:"vulnerabilities,omitempty"`
	SecurityHeaders map[string]string `json:"security_headers,omitempty"`
	SSLInfo         SSLInfo           `json:"ssl_info,omitempty"`
}

type ContentSummary struct {
	Title           string `json:"title,omitempty"`
	MetaDescription string `json:"meta_description,omitempty"`
	ContentHash     string `json:"content_hash,omitempty"`
}

type InfrastructureSummary struct {
	ServerSoftware string   `json:"server_software,omitempty"`
	IPAddress      string   `json:"ip_address,omitempty"`
	CDNProviders   []string `json:"cdn_providers,omitempty"`
}
