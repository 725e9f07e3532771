// Package detector pkg/detector/technology.go diffs detected technology sets.
package detector

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/driftwatch/driftwatch/pkg/models"
)

// compareTechnologies diffs two detected technology sets. Names are compared
// case insensitively and results are ordered by name, so the same snapshot
// pair always yields the same changes.
func compareTechnologies(prev, curr []models.DetectedTechnology, catalog *Catalog) []models.Change {
	prevByName := technologiesByName(prev)
	currByName := technologiesByName(curr)

	var changes []models.Change

	for _, name := range sortedKeys(currByName) {
		tech := currByName[name]

		old, existed := prevByName[name]
		if !existed {
			if isNoisyTechnology(name) {
				continue
			}

			impact := catalog.Impact(name)
			changes = append(changes, models.Change{
				Type:               models.ChangeTechnology,
				ChangeType:         models.TechAdded,
				TechnologyName:     tech.Name,
				TechnologyCategory: tech.Category,
				NewVersion:         tech.Version,
				ImpactAssessment:   impact,
				Severity:           impact,
				Confidence:         sightingConfidence(&tech) * technologyConfidence,
				Description:        fmt.Sprintf("Technology added: %s", tech.Name),
				Evidence: map[string]interface{}{
					"detection_method": tech.DetectionMethod,
					"new_version":      tech.Version,
				},
			})

			continue
		}

		if change, ok := versionChange(&old, &tech, catalog); ok {
			changes = append(changes, change)
		}
	}

	for _, name := range sortedKeys(prevByName) {
		if _, still := currByName[name]; still || isNoisyTechnology(name) {
			continue
		}

		old := prevByName[name]
		impact := catalog.Impact(name)
		changes = append(changes, models.Change{
			Type:               models.ChangeTechnology,
			ChangeType:         models.TechRemoved,
			TechnologyName:     old.Name,
			TechnologyCategory: old.Category,
			OldVersion:         old.Version,
			ImpactAssessment:   impact,
			Severity:           impact,
			Confidence:         sightingConfidence(&old) * technologyConfidence,
			Description:        fmt.Sprintf("Technology removed: %s", old.Name),
			Evidence: map[string]interface{}{
				"old_version": old.Version,
			},
		})
	}

	return changes
}

// versionChange reports a version difference between two sightings of the
// same technology. A major bump always surfaces; a minor bump surfaces only
// when the technology assesses above low importance; patch-only bumps never
// surface. Noisy and auto-updating technologies get the stricter filters on
// top.
func versionChange(old, curr *models.DetectedTechnology, catalog *Catalog) (models.Change, bool) {
	if old.Version == "" || curr.Version == "" || old.Version == curr.Version {
		return models.Change{}, false
	}

	name := strings.ToLower(curr.Name)
	if isNoisyTechnology(name) {
		return models.Change{}, false
	}

	major := majorChanged(old.Version, curr.Version)
	impact := catalog.Impact(name)

	if !major {
		if autoUpdatesFrequently(name) {
			return models.Change{}, false
		}

		if !minorChanged(old.Version, curr.Version) {
			return models.Change{}, false
		}

		if models.ImpactRank(impact) <= models.ImpactRank(models.SeverityLow) {
			return models.Change{}, false
		}
	} else {
		impact = models.EscalateImpact(impact)
	}

	confidence := math.Min(sightingConfidence(old), sightingConfidence(curr))

	return models.Change{
		Type:               models.ChangeTechnology,
		ChangeType:         models.TechVersionChanged,
		TechnologyName:     curr.Name,
		TechnologyCategory: curr.Category,
		OldVersion:         old.Version,
		NewVersion:         curr.Version,
		ImpactAssessment:   impact,
		Severity:           impact,
		Confidence:         confidence * technologyConfidence,
		Description:        fmt.Sprintf("Technology updated: %s %s to %s", curr.Name, old.Version, curr.Version),
		Evidence: map[string]interface{}{
			"old_version":   old.Version,
			"new_version":   curr.Version,
			"major_version": major,
		},
	}, true
}

// sightingConfidence is the scanner's own confidence in a detection; scanners
// that do not report one get full confidence.
func sightingConfidence(tech *models.DetectedTechnology) float64 {
	if tech.Confidence <= 0 {
		return 1
	}

	return tech.Confidence
}

func technologiesByName(techs []models.DetectedTechnology) map[string]models.DetectedTechnology {
	byName := make(map[string]models.DetectedTechnology, len(techs))
	for _, tech := range techs {
		byName[strings.ToLower(tech.Name)] = tech
	}

	return byName
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
