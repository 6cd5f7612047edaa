package query

import (
	"fmt"

	"streetcrime/internal/directory"
	"streetcrime/internal/types"
)

// State names which of the result variants is active. Exactly one is set per
// query.
type State string

const (
	// StateStartup is the view before the user has supplied anything.
	StateStartup State = "startup"
	// StateNoSelection means inputs are incomplete or do not resolve.
	StateNoSelection State = "no_selection"
	// StateEmpty means the area resolved and has no incidents for the period.
	StateEmpty State = "empty"
	// StatePopulated carries incidents and their summary.
	StatePopulated State = "populated"
)

// Viewport zoom levels.
const (
	ZoomNational      = 4
	ZoomNeighbourhood = 12
)

// Viewport titles and headings.
const (
	TitleWaiting      = "Waiting for all user parameters"
	TitleIncidents    = "Anonymised Crime Location"
	HeadingNoForce    = "Choose a Police Force"
	SubheadingNoNeigh = "Neighbourhood Not Selected"
)

// Point is one plotted incident.
type Point struct {
	Lat      float64        `json:"lat"`
	Lon      float64        `json:"lon"`
	Category types.Category `json:"category"`
	Colour   string         `json:"colour"`
	Text     string         `json:"text"`
}

// Viewport is the data a map widget needs to draw the result.
type Viewport struct {
	Centre       types.Coordinate   `json:"centre"`
	Zoom         int                `json:"zoom"`
	Points       []Point            `json:"points"`
	BoundaryLine []types.Coordinate `json:"boundary_line"`
	BoundaryName string             `json:"boundary_name,omitempty"`
	Title        string             `json:"title"`
}

// Result is the outcome of one pipeline run.
type Result struct {
	State         State                  `json:"state"`
	Force         string                 `json:"force,omitempty"`
	Neighbourhood string                 `json:"neighbourhood,omitempty"`
	Period        string                 `json:"period,omitempty"`
	Heading       string                 `json:"heading"`
	Subheading    string                 `json:"subheading"`
	Message       string                 `json:"message,omitempty"`
	Viewport      Viewport               `json:"viewport"`
	Incidents     []types.IncidentRecord `json:"incidents"`
	Summary       types.CrimeSummary     `json:"summary"`
}

// headings derives the page heading pair from the raw selections.
func headings(force, neighbourhood string) (string, string) {
	heading := HeadingNoForce
	if force != "" {
		heading = "Crime Data for " + force
	}
	sub := SubheadingNoNeigh
	if neighbourhood != "" {
		sub = "Neighbourhood: " + neighbourhood
	}
	return heading, sub
}

// nationalViewport is the default map: national centre, no data.
func nationalViewport() Viewport {
	return Viewport{
		Centre:       directory.FallbackCentroid(),
		Zoom:         ZoomNational,
		Points:       []Point{},
		BoundaryLine: []types.Coordinate{},
		Title:        TitleWaiting,
	}
}

// emptyViewport centres on the resolved neighbourhood without points.
func emptyViewport(nb types.Neighbourhood, period string) Viewport {
	return Viewport{
		Centre:       nb.Centroid,
		Zoom:         ZoomNeighbourhood,
		Points:       []Point{},
		BoundaryLine: boundaryLine(nb.Boundary),
		BoundaryName: nb.Name + " neighbourhood boundary",
		Title:        fmt.Sprintf("No crime in %s.", period),
	}
}

// populatedViewport plots each incident in its category colour.
func populatedViewport(nb types.Neighbourhood, incidents []types.IncidentRecord) Viewport {
	points := make([]Point, 0, len(incidents))
	for _, inc := range incidents {
		points = append(points, Point{
			Lat:      inc.Latitude,
			Lon:      inc.Longitude,
			Category: inc.Category,
			Colour:   inc.Category.Colour(),
			Text:     fmt.Sprintf("Crime Category: %s\nLocation: %s", inc.Category, inc.LocationName),
		})
	}
	return Viewport{
		Centre:       nb.Centroid,
		Zoom:         ZoomNeighbourhood,
		Points:       points,
		BoundaryLine: boundaryLine(nb.Boundary),
		BoundaryName: nb.Name + " neighbourhood boundary",
		Title:        TitleIncidents,
	}
}

func boundaryLine(p types.Polygon) []types.Coordinate {
	return append([]types.Coordinate{}, p...)
}
