package types

import (
	"fmt"
	"time"
)

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// NationalCentre returns the approximate centre of Great Britain. It is the
// default map viewport whenever a force/neighbourhood pair is not fully
// specified.
func NationalCentre() Coordinate {
	return Coordinate{Lat: 54.5, Lon: -2}
}

// Polygon is an ordered ring of coordinates bounding an area. The police data
// source returns rings that are closed or near-closed; the first point is not
// required to repeat at the end.
type Polygon []Coordinate

// Valid reports whether the polygon has enough points to bound an area.
func (p Polygon) Valid() bool {
	return len(p) >= 3
}

// PoliceForce is a policing jurisdiction. Forces are loaded once at startup
// and never mutated; ID is the identity key.
type PoliceForce struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// EngagementLink is an external link a force publishes (website, social media).
type EngagementLink struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ForceDetail is the subset of force metadata the service consumes.
type ForceDetail struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Telephone       string           `json:"telephone,omitempty"`
	URL             string           `json:"url,omitempty"`
	EngagementLinks []EngagementLink `json:"engagement_links"`
}

// NeighbourhoodStub is a list entry from a force's neighbourhood listing.
type NeighbourhoodStub struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NeighbourhoodDetail is the geometry of a single neighbourhood as reported by
// the data source.
type NeighbourhoodDetail struct {
	Boundary Polygon    `json:"boundary"`
	Centroid Coordinate `json:"centroid"`
}

// Neighbourhood is a fully resolved neighbourhood. Values are created by the
// resolver, cached with expiry and never mutated after creation.
type Neighbourhood struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	ForceID  string     `json:"force_id"`
	Boundary Polygon    `json:"boundary"`
	Centroid Coordinate `json:"centroid"`
}

// RawIncident is a street-level crime record exactly as the data source
// describes it. Coordinates and location name are optional: anonymised open
// data frequently omits them.
type RawIncident struct {
	ID           int64    `json:"id"`
	Category     string   `json:"category"`
	Month        string   `json:"month"`
	LocationName *string  `json:"location_name,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
}

// IncidentRecord is the canonical incident row. Category is always a member of
// the closed Category enumeration.
type IncidentRecord struct {
	Month        string   `json:"month"`
	Category     Category `json:"category"`
	LocationName string   `json:"location_name"`
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
}

// SummaryRow is one entry of a CrimeSummary.
type SummaryRow struct {
	Category Category `json:"category"`
	Total    int      `json:"total"`
}

// CrimeSummary is the per-category incident count, ordered by descending total.
// Categories are unique and totals sum to the size of the aggregated collection.
type CrimeSummary []SummaryRow

// Total returns the sum of all row totals.
func (s CrimeSummary) Total() int {
	n := 0
	for _, row := range s {
		n += row.Total
	}
	return n
}

// IncidentColumns returns the incident table headings, in IncidentRecord
// field order. Each call returns a fresh slice.
func IncidentColumns() []string {
	return []string{"Crime Month", "Crime Category", "Location Name", "Latitude", "Longitude"}
}

// SummaryColumns returns the summary table headings.
func SummaryColumns() []string {
	return []string{"Crime Category", "Total"}
}

// PeriodLayout is the time layout of a period string ("YYYY-MM").
const PeriodLayout = "2006-01"

// ParsePeriod validates a "YYYY-MM" period string.
func ParsePeriod(s string) (time.Time, error) {
	t, err := time.Parse(PeriodLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("period %q is not in YYYY-MM form: %w", s, err)
	}
	return t, nil
}

// PeriodLabel renders a period as "Jan 2006" for dropdown labels. Malformed
// periods are returned unchanged.
func PeriodLabel(period string) string {
	t, err := ParsePeriod(period)
	if err != nil {
		return period
	}
	return t.Format("Jan 2006")
}
