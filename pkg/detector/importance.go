// Package detector pkg/detector/importance.go assesses how much a technology
// change matters.
package detector

import (
	"strings"

	"github.com/driftwatch/driftwatch/pkg/models"
)

// Catalog maps technology names to their impact level. Lookups are case
// insensitive; unknown technologies assess as medium.
type Catalog struct {
	levels map[string]string
}

// NewCatalog builds a catalog from per-level name lists.
func NewCatalog(critical, high, medium, low []string) *Catalog {
	levels := make(map[string]string)

	add := func(names []string, level string) {
		for _, name := range names {
			levels[strings.ToLower(name)] = level
		}
	}

	add(critical, models.SeverityCritical)
	add(high, models.SeverityHigh)
	add(medium, models.SeverityMedium)
	add(low, models.SeverityLow)

	return &Catalog{levels: levels}
}

// DefaultCatalog covers the stacks most commonly seen on monitored sites.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		[]string{"apache", "nginx", "mysql", "postgresql", "redis", "mongodb"},
		[]string{"react", "vue", "angular", "node.js", "express", "django", "flask", "rails"},
		[]string{"jquery", "bootstrap", "webpack"},
		[]string{"google-analytics", "gtag", "facebook-pixel"},
	)
}

// Impact returns the impact level for a technology name.
func (c *Catalog) Impact(name string) string {
	if level, ok := c.levels[strings.ToLower(name)]; ok {
		return level
	}

	return models.SeverityMedium
}
