package crimes

import (
	"context"
	"log/slog"
	"strings"

	"streetcrime/internal/types"
)

// NormalizeStats counts how raw records were treated.
type NormalizeStats struct {
	Input           int
	Kept            int
	MissingLocation int
	UnknownCategory int
	BadMonth        int
}

// Normalizer maps raw records onto canonical IncidentRecords.
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// Normalize keeps input order. Records without coordinates or a location name
// are dropped silently; anonymised open data omits them routinely. Records
// with an unknown category or malformed month are dropped with a warning.
// When every record is dropped for those integrity reasons the feed itself is
// treated as malformed. An empty outcome returns ErrNoIncidents.
func (n *Normalizer) Normalize(ctx context.Context, raw []types.RawIncident) ([]types.IncidentRecord, error) {
	records, stats := normalize(raw)

	if stats.UnknownCategory > 0 || stats.BadMonth > 0 {
		n.logger.WarnContext(ctx, "dropped crime records failing validation",
			"unknown_category", stats.UnknownCategory,
			"bad_month", stats.BadMonth,
			"input", stats.Input,
		)
	}
	if stats.MissingLocation > 0 {
		n.logger.DebugContext(ctx, "dropped crime records without location",
			"count", stats.MissingLocation,
		)
	}

	if stats.Input > 0 && stats.UnknownCategory+stats.BadMonth == stats.Input {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamMalformed,
			"crime feed contained no valid records",
			nil,
			map[string]any{
				"input":            stats.Input,
				"unknown_category": stats.UnknownCategory,
				"bad_month":        stats.BadMonth,
			},
		)
	}

	if len(records) == 0 {
		return nil, ErrNoIncidents
	}
	return records, nil
}

func normalize(raw []types.RawIncident) ([]types.IncidentRecord, NormalizeStats) {
	stats := NormalizeStats{Input: len(raw)}
	records := make([]types.IncidentRecord, 0, len(raw))

	for _, r := range raw {
		category, ok := types.ParseCategory(r.Category)
		if !ok {
			stats.UnknownCategory++
			continue
		}
		if _, err := types.ParsePeriod(r.Month); err != nil {
			stats.BadMonth++
			continue
		}
		if r.Latitude == nil || r.Longitude == nil || r.LocationName == nil || strings.TrimSpace(*r.LocationName) == "" {
			stats.MissingLocation++
			continue
		}

		records = append(records, types.IncidentRecord{
			Month:        r.Month,
			Category:     category,
			LocationName: strings.TrimSpace(*r.LocationName),
			Latitude:     *r.Latitude,
			Longitude:    *r.Longitude,
		})
	}

	stats.Kept = len(records)
	return records, stats
}
