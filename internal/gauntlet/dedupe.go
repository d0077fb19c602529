package gauntlet

import (
	"strings"

	"github.com/groundsight/prospector/pkg/landregistry"
)

// DedupeTitles collapses the union of both land-registry queries to one
// record per title number. First occurrence wins; records without a title
// number are dropped since the title number is the natural persistence key.
// Idempotent: dedup(dedup(L)) == dedup(L).
func DedupeTitles(titles []landregistry.Title) []landregistry.Title {
	seen := make(map[string]bool, len(titles))
	out := make([]landregistry.Title, 0, len(titles))
	for _, t := range titles {
		key := strings.ToUpper(strings.TrimSpace(t.TitleNumber))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}
