package directory

import (
	"sort"

	"streetcrime/internal/types"
)

// PeriodOption is a selectable month with its display label.
type PeriodOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// PeriodCatalog is the set of months the data source has published.
type PeriodCatalog struct {
	periods []string
	index   map[string]struct{}
}

// NewPeriodCatalog keeps well-formed periods only, newest first, without
// duplicates.
func NewPeriodCatalog(periods []string) *PeriodCatalog {
	pc := &PeriodCatalog{index: make(map[string]struct{}, len(periods))}
	for _, p := range periods {
		if _, err := types.ParsePeriod(p); err != nil {
			continue
		}
		if _, dup := pc.index[p]; dup {
			continue
		}
		pc.index[p] = struct{}{}
		pc.periods = append(pc.periods, p)
	}
	// "YYYY-MM" sorts chronologically as a string.
	sort.Sort(sort.Reverse(sort.StringSlice(pc.periods)))
	return pc
}

// Periods returns the periods newest first.
func (pc *PeriodCatalog) Periods() []string {
	return append([]string(nil), pc.periods...)
}

// Options returns label/value pairs such as {"May 2023", "2023-05"}.
func (pc *PeriodCatalog) Options() []PeriodOption {
	opts := make([]PeriodOption, 0, len(pc.periods))
	for _, p := range pc.periods {
		opts = append(opts, PeriodOption{Label: types.PeriodLabel(p), Value: p})
	}
	return opts
}

// Latest returns the newest period.
func (pc *PeriodCatalog) Latest() (string, bool) {
	if len(pc.periods) == 0 {
		return "", false
	}
	return pc.periods[0], true
}

// Contains reports whether p is a published period.
func (pc *PeriodCatalog) Contains(p string) bool {
	_, ok := pc.index[p]
	return ok
}

// Validate returns validation_invalid_period for malformed input and
// validation_unknown_period for a well-formed month the source has not
// published. An empty catalog accepts any well-formed period.
func (pc *PeriodCatalog) Validate(p string) error {
	if _, err := types.ParsePeriod(p); err != nil {
		return types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidPeriod,
			"period must be in YYYY-MM form",
			err,
			map[string]any{"period": p},
		)
	}
	if len(pc.periods) == 0 || pc.Contains(p) {
		return nil
	}
	details := map[string]any{"period": p}
	if latest, ok := pc.Latest(); ok {
		details["latest"] = latest
	}
	return types.NewAppErrorWithDetails(
		types.ErrCodeValidationUnknownPeriod,
		"no crime data is published for this period",
		nil,
		details,
	)
}
