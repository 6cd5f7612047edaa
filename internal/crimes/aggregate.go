package crimes

import (
	"sort"

	"streetcrime/internal/types"
)

// Aggregate counts incidents per category. Rows are ordered by descending
// total; equal totals keep first-seen order. Empty input returns
// ErrNoIncidents.
func Aggregate(incidents []types.IncidentRecord) (types.CrimeSummary, error) {
	if len(incidents) == 0 {
		return nil, ErrNoIncidents
	}

	index := make(map[types.Category]int)
	summary := make(types.CrimeSummary, 0, len(types.AllCategories()))
	for _, inc := range incidents {
		i, seen := index[inc.Category]
		if !seen {
			i = len(summary)
			index[inc.Category] = i
			summary = append(summary, types.SummaryRow{Category: inc.Category})
		}
		summary[i].Total++
	}

	sort.SliceStable(summary, func(a, b int) bool {
		return summary[a].Total > summary[b].Total
	})
	return summary, nil
}
