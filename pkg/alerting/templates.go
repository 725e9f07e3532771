// Package alerting pkg/alerting/templates.go renders alert titles and
// descriptions from changes.
package alerting

import (
	"fmt"
	"math"
	"strings"

	"github.com/driftwatch/driftwatch/pkg/models"
)

// alertTitle renders a short, human-readable headline for a change.
func alertTitle(change *models.Change) string {
	switch change.Type {
	case models.ChangeTechnology:
		verb := map[string]string{
			models.TechAdded:          "added",
			models.TechRemoved:        "removed",
			models.TechVersionChanged: "updated",
		}[change.ChangeType]
		if verb == "" {
			verb = "changed"
		}

		return fmt.Sprintf("Technology %s: %s", verb, change.TechnologyName)
	case models.ChangePerformance:
		if change.Issue != "" {
			if change.ChangeType == models.PerfIssueResolved {
				return fmt.Sprintf("Performance issue resolved: %s", change.Issue)
			}

			return fmt.Sprintf("Performance issue: %s", change.Issue)
		}

		direction := "improved"
		if change.IsDegradation {
			direction = "degraded"
		}

		name := change.MetricDisplayName
		if name == "" {
			name = change.MetricName
		}

		return fmt.Sprintf("%s %s by %.1f%%", name, direction, math.Abs(change.ChangePercent))
	case models.ChangeSecurity:
		switch change.ChangeType {
		case models.SecVulnerabilityAdded:
			return fmt.Sprintf("New %s vulnerability detected", strings.ToUpper(change.Severity))
		case models.SecVulnerabilityFixed:
			return "Vulnerability resolved"
		case models.SecHeaderChanged:
			return "Security header configuration changed"
		case models.SecCertificateChanged:
			return "SSL certificate changed"
		}
	case models.ChangeContent:
		return "Page content changed"
	case models.ChangeInfrastructure:
		return "Infrastructure changed"
	}

	if change.Description != "" {
		return change.Description
	}

	return fmt.Sprintf("Change detected: %s", change.Type)
}

// alertDescription renders the longer body. The detector's description is
// already specific, so it is used when present.
func alertDescription(change *models.Change) string {
	if change.Description != "" {
		return change.Description
	}

	return alertTitle(change)
}
