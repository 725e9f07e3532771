// Package detector pkg/detector/content.go diffs page content summaries.
package detector

import (
	"fmt"

	"github.com/driftwatch/driftwatch/pkg/models"
)

// Content change subtypes.
const (
	contentTitleChanged = "title_changed"
	contentMetaChanged  = "meta_description_changed"
	contentModified     = "content_modified"
)

// compareContent reports title and meta description drift past their
// similarity thresholds, plus wholesale content hash changes.
func compareContent(prev, curr *models.ContentSummary) []models.Change {
	var changes []models.Change

	if prev.Title != "" || curr.Title != "" {
		if ratio := similarity(prev.Title, curr.Title); ratio < titleSimilarityThreshold {
			changes = append(changes, models.Change{
				Type:        models.ChangeContent,
				ChangeType:  contentTitleChanged,
				Severity:    models.SeverityMedium,
				Confidence:  contentConfidence,
				Description: "Page title changed",
				Evidence: map[string]interface{}{
					"old_title":  prev.Title,
					"new_title":  curr.Title,
					"similarity": ratio,
				},
			})
		}
	}

	if prev.MetaDescription != "" || curr.MetaDescription != "" {
		if ratio := similarity(prev.MetaDescription, curr.MetaDescription); ratio < metaSimilarityThreshold {
			changes = append(changes, models.Change{
				Type:        models.ChangeContent,
				ChangeType:  contentMetaChanged,
				Severity:    models.SeverityLow,
				Confidence:  contentConfidence,
				Description: "Meta description changed",
				Evidence: map[string]interface{}{
					"old_meta":   prev.MetaDescription,
					"new_meta":   curr.MetaDescription,
					"similarity": ratio,
				},
			})
		}
	}

	if prev.ContentHash != "" && curr.ContentHash != "" && prev.ContentHash != curr.ContentHash {
		changes = append(changes, models.Change{
			Type:        models.ChangeContent,
			ChangeType:  contentModified,
			Severity:    models.SeverityInfo,
			Confidence:  contentConfidence,
			Description: fmt.Sprintf("Page content changed (hash %s to %s)", prev.ContentHash, curr.ContentHash),
			Evidence: map[string]interface{}{
				"old_hash": prev.ContentHash,
				"new_hash": curr.ContentHash,
			},
		})
	}

	return changes
}
