// Package detector pkg/detector/infrastructure.go diffs serving
// infrastructure.
package detector

import (
	"fmt"
	"strings"

	"github.com/driftwatch/driftwatch/pkg/models"
)

// Infrastructure change subtypes.
const (
	infraServerChanged = "server_changed"
	infraIPChanged     = "ip_changed"
	infraCDNChanged    = "cdn_changed"
)

// compareInfrastructure reports server software, IP and CDN provider
// changes. IP moves rank low; hosts rotate addresses routinely.
func compareInfrastructure(prev, curr *models.InfrastructureSummary) []models.Change {
	var changes []models.Change

	if prev.ServerSoftware != "" && curr.ServerSoftware != "" &&
		!strings.EqualFold(prev.ServerSoftware, curr.ServerSoftware) {
		changes = append(changes, models.Change{
			Type:        models.ChangeInfrastructure,
			ChangeType:  infraServerChanged,
			Severity:    models.SeverityHigh,
			Confidence:  infrastructureConfidence,
			Description: fmt.Sprintf("Server changed: %s to %s", prev.ServerSoftware, curr.ServerSoftware),
			Evidence: map[string]interface{}{
				"old_server": prev.ServerSoftware,
				"new_server": curr.ServerSoftware,
			},
		})
	}

	if prev.IPAddress != "" && curr.IPAddress != "" && prev.IPAddress != curr.IPAddress {
		changes = append(changes, models.Change{
			Type:        models.ChangeInfrastructure,
			ChangeType:  infraIPChanged,
			Severity:    models.SeverityLow,
			Confidence:  infrastructureConfidence,
			Description: fmt.Sprintf("IP address changed: %s to %s", prev.IPAddress, curr.IPAddress),
			Evidence: map[string]interface{}{
				"old_ip": prev.IPAddress,
				"new_ip": curr.IPAddress,
			},
		})
	}

	if change, ok := compareCDNs(prev.CDNProviders, curr.CDNProviders); ok {
		changes = append(changes, change)
	}

	return changes
}

func compareCDNs(prev, curr []string) (models.Change, bool) {
	prevSet := make(map[string]bool, len(prev))
	for _, provider := range prev {
		prevSet[strings.ToLower(provider)] = true
	}

	currSet := make(map[string]bool, len(curr))
	for _, provider := range curr {
		currSet[strings.ToLower(provider)] = true
	}

	var added, removed []string

	for _, provider := range sortedSet(currSet) {
		if !prevSet[provider] {
			added = append(added, provider)
		}
	}

	for _, provider := range sortedSet(prevSet) {
		if !currSet[provider] {
			removed = append(removed, provider)
		}
	}

	if len(added) == 0 && len(removed) == 0 {
		return models.Change{}, false
	}

	return models.Change{
		Type:        models.ChangeInfrastructure,
		ChangeType:  infraCDNChanged,
		Severity:    models.SeverityMedium,
		Confidence:  infrastructureConfidence,
		Description: "CDN providers changed",
		Evidence: map[string]interface{}{
			"added":   added,
			"removed": removed,
		},
	}, true
}
