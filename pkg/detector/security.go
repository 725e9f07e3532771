// Package detector pkg/detector/security.go diffs security findings, headers
// and certificates.
package detector

import (
	"fmt"
	"strings"

	"github.com/driftwatch/driftwatch/pkg/models"
)

// compareSecurity diffs vulnerabilities, security headers and the TLS
// certificate between two snapshots.
func compareSecurity(prev, curr *models.SecuritySummary) []models.Change {
	changes := compareVulnerabilities(prev.Vulnerabilities, curr.Vulnerabilities)
	changes = append(changes, compareHeaders(prev.SecurityHeaders, curr.SecurityHeaders)...)
	changes = append(changes, compareCertificate(&prev.SSLInfo, &curr.SSLInfo)...)

	return changes
}

func compareVulnerabilities(prev, curr []models.Vulnerability) []models.Change {
	prevByKey := vulnerabilitiesByKey(prev)
	currByKey := vulnerabilitiesByKey(curr)

	var changes []models.Change

	for _, key := range sortedKeys(currByKey) {
		if _, known := prevByKey[key]; known {
			continue
		}

		vuln := currByKey[key]

		severity := vuln.Severity
		if severity == "" {
			severity = models.SeverityHigh
		}

		changes = append(changes, models.Change{
			Type:              models.ChangeSecurity,
			ChangeType:        models.SecVulnerabilityAdded,
			VulnerabilityType: vuln.Type,
			CVEIDs:            vuln.CVEIDs,
			RemediationAdvice: vuln.Remediation,
			Severity:          severity,
			Confidence:        securityConfidence,
			Description:       fmt.Sprintf("New vulnerability: %s", vulnLabel(&vuln)),
			Evidence: map[string]interface{}{
				"vulnerability": vuln,
			},
		})
	}

	for _, key := range sortedKeys(prevByKey) {
		if _, still := currByKey[key]; still {
			continue
		}

		vuln := prevByKey[key]
		changes = append(changes, models.Change{
			Type:              models.ChangeSecurity,
			ChangeType:        models.SecVulnerabilityFixed,
			VulnerabilityType: vuln.Type,
			CVEIDs:            vuln.CVEIDs,
			Severity:          models.SeverityInfo,
			Confidence:        securityConfidence,
			Description:       fmt.Sprintf("Vulnerability resolved: %s", vulnLabel(&vuln)),
		})
	}

	return changes
}

func compareHeaders(prev, curr map[string]string) []models.Change {
	names := make(map[string]bool, len(prev)+len(curr))
	for name := range prev {
		names[strings.ToLower(name)] = true
	}

	for name := range curr {
		names[strings.ToLower(name)] = true
	}

	prevLower := lowerKeys(prev)
	currLower := lowerKeys(curr)

	var changes []models.Change

	for _, name := range sortedSet(names) {
		oldVal, hadOld := prevLower[name]
		newVal, hasNew := currLower[name]

		if hadOld == hasNew && oldVal == newVal {
			continue
		}

		var verb, severity string

		switch {
		case !hadOld:
			verb = "added"
			severity = models.SeverityLow

			if criticalSecurityHeaders[name] {
				severity = models.SeverityHigh
			}
		case !hasNew:
			verb = "removed"
			severity = models.SeverityMedium

			if criticalSecurityHeaders[name] {
				severity = models.SeverityCritical
			}
		default:
			verb = "modified"
			severity = models.SeverityLow

			if criticalSecurityHeaders[name] {
				severity = models.SeverityHigh
			}
		}

		changes = append(changes, models.Change{
			Type:        models.ChangeSecurity,
			ChangeType:  models.SecHeaderChanged,
			Severity:    severity,
			Confidence:  securityConfidence,
			Description: fmt.Sprintf("Security header %s: %s", verb, name),
			Evidence: map[string]interface{}{
				"header":    name,
				"old_value": oldVal,
				"new_value": newVal,
			},
		})
	}

	return changes
}

func compareCertificate(prev, curr *models.SSLInfo) []models.Change {
	if prev.Fingerprint == "" || curr.Fingerprint == "" || prev.Fingerprint == curr.Fingerprint {
		return nil
	}

	return []models.Change{{
		Type:        models.ChangeSecurity,
		ChangeType:  models.SecCertificateChanged,
		Severity:    models.SeverityMedium,
		Confidence:  securityConfidence,
		Description: "SSL certificate changed",
		Evidence: map[string]interface{}{
			"old_fingerprint": prev.Fingerprint,
			"new_fingerprint": curr.Fingerprint,
			"old_issuer":      prev.Issuer,
			"new_issuer":      curr.Issuer,
		},
	}}
}

func vulnerabilitiesByKey(vulns []models.Vulnerability) map[string]models.Vulnerability {
	byKey := make(map[string]models.Vulnerability, len(vulns))
	for _, vuln := range vulns {
		byKey[vuln.Key()] = vuln
	}

	return byKey
}

func vulnLabel(vuln *models.Vulnerability) string {
	if vuln.Description != "" {
		return vuln.Description
	}

	return vuln.Key()
}

func lowerKeys(m map[string]string) map[string]string {
	lowered := make(map[string]string, len(m))
	for k, v := range m {
		lowered[strings.ToLower(k)] = v
	}

	return lowered
}
