package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/AnshRaj112/moodlog-backend/internal/models"
)

const (
	maxTags      = 50
	maxTagLength = 100
)

// NormalizeTags trims every tag, drops empties and duplicates (first occurrence
// wins) and enforces the count and length limits. Nil input yields an empty slice.
func NormalizeTags(field string, tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))

	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if utf8.RuneCountInString(tag) > maxTagLength {
			return nil, models.NewValidationError(field, fmt.Sprintf("tags must be at most %d characters", maxTagLength))
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}

	if len(out) > maxTags {
		return nil, models.NewValidationError(field, fmt.Sprintf("at most %d tags allowed", maxTags))
	}
	return out, nil
}
