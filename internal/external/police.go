package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"streetcrime/internal/types"
)

// policeAPIBase is the public data.police.uk API root.
const policeAPIBase = "https://data.police.uk/api"

// PoliceClientConfig holds the configuration for creating a PoliceClient.
type PoliceClientConfig struct {
	BaseURL string // Override for testing; defaults to policeAPIBase
	Logger  *slog.Logger
}

type streetDateResponse struct {
	Date string `json:"date"`
}

type forceDetailResponse struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Telephone         string `json:"telephone"`
	URL               string `json:"url"`
	EngagementMethods []struct {
		Type  string `json:"type"`
		Title string `json:"title"`
		URL   string `json:"url"`
	} `json:"engagement_methods"`
}

// latLng is the police API's coordinate pair; both parts are decimal strings.
type latLng struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}

type neighbourhoodResponse struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Centre *latLng `json:"centre"`
}

type crimeResponse struct {
	ID       int64  `json:"id"`
	Category string `json:"category"`
	Month    string `json:"month"`
	Location *struct {
		latLng
		Street *struct {
			Name string `json:"name"`
		} `json:"street"`
	} `json:"location"`
}

// PoliceClient implements CrimeDataSource against the data.police.uk REST
// API through BaseClient.
type PoliceClient struct {
	base    *BaseClient
	baseURL string
	logger  *slog.Logger
}

// NewPoliceClient creates a PoliceClient over an existing BaseClient.
func NewPoliceClient(base *BaseClient, cfg PoliceClientConfig) *PoliceClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = policeAPIBase
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &PoliceClient{
		base:    base,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

// BreakerOpen reports whether calls to the police API are being short-circuited.
func (c *PoliceClient) BreakerOpen() bool {
	return c.base.BreakerOpen()
}

// ListAvailablePeriods calls GET /crimes-street-dates.
func (c *PoliceClient) ListAvailablePeriods(ctx context.Context) ([]string, error) {
	var dates []streetDateResponse
	if err := c.getJSON(ctx, "ListAvailablePeriods", "/crimes-street-dates", types.ErrCodeNotFoundResource, &dates); err != nil {
		return nil, err
	}

	periods := make([]string, 0, len(dates))
	for _, d := range dates {
		if d.Date == "" {
			continue
		}
		periods = append(periods, d.Date)
	}
	return periods, nil
}

// ListForces calls GET /forces.
func (c *PoliceClient) ListForces(ctx context.Context) ([]types.PoliceForce, error) {
	var forces []types.PoliceForce
	if err := c.getJSON(ctx, "ListForces", "/forces", types.ErrCodeNotFoundResource, &forces); err != nil {
		return nil, err
	}
	return forces, nil
}

// GetForceDetail calls GET /forces/{id}.
func (c *PoliceClient) GetForceDetail(ctx context.Context, forceID string) (*types.ForceDetail, error) {
	if forceID == "" {
		return nil, types.NewAppError(types.ErrCodeValidationMissingField, "force id is required", nil)
	}

	var raw forceDetailResponse
	path := "/forces/" + url.PathEscape(forceID)
	if err := c.getJSON(ctx, "GetForceDetail", path, types.ErrCodeNotFoundForce, &raw); err != nil {
		return nil, err
	}

	detail := &types.ForceDetail{
		ID:              raw.ID,
		Name:            raw.Name,
		Telephone:       raw.Telephone,
		URL:             raw.URL,
		EngagementLinks: make([]types.EngagementLink, 0, len(raw.EngagementMethods)),
	}
	for _, m := range raw.EngagementMethods {
		if m.URL == "" {
			continue
		}
		title := m.Title
		if title == "" {
			title = m.Type
		}
		detail.EngagementLinks = append(detail.EngagementLinks, types.EngagementLink{Title: title, URL: m.URL})
	}
	return detail, nil
}

// ListNeighbourhoods calls GET /{force}/neighbourhoods.
func (c *PoliceClient) ListNeighbourhoods(ctx context.Context, forceID string) ([]types.NeighbourhoodStub, error) {
	if forceID == "" {
		return nil, types.NewAppError(types.ErrCodeValidationMissingField, "force id is required", nil)
	}

	var stubs []types.NeighbourhoodStub
	path := "/" + url.PathEscape(forceID) + "/neighbourhoods"
	if err := c.getJSON(ctx, "ListNeighbourhoods", path, types.ErrCodeNotFoundForce, &stubs); err != nil {
		return nil, err
	}
	return stubs, nil
}

// GetNeighbourhoodDetail calls GET /{force}/{neighbourhood} for the centre and
// GET /{force}/{neighbourhood}/boundary for the polygon. When the centre is
// absent the mean of the boundary vertices is used instead.
func (c *PoliceClient) GetNeighbourhoodDetail(ctx context.Context, forceID, neighbourhoodID string) (*types.NeighbourhoodDetail, error) {
	if forceID == "" || neighbourhoodID == "" {
		return nil, types.NewAppError(types.ErrCodeValidationMissingField, "force id and neighbourhood id are required", nil)
	}

	prefix := "/" + url.PathEscape(forceID) + "/" + url.PathEscape(neighbourhoodID)

	var nb neighbourhoodResponse
	if err := c.getJSON(ctx, "GetNeighbourhoodDetail", prefix, types.ErrCodeNotFoundNeighbourhood, &nb); err != nil {
		return nil, err
	}

	var points []latLng
	if err := c.getJSON(ctx, "GetNeighbourhoodBoundary", prefix+"/boundary", types.ErrCodeNotFoundNeighbourhood, &points); err != nil {
		return nil, err
	}

	boundary := make(types.Polygon, 0, len(points))
	for _, p := range points {
		lat, lon := parseCoordinate(p.Latitude), parseCoordinate(p.Longitude)
		if lat == nil || lon == nil {
			continue
		}
		boundary = append(boundary, types.Coordinate{Lat: *lat, Lon: *lon})
	}
	if !boundary.Valid() {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamMalformed,
			"neighbourhood boundary has fewer than three usable points",
			nil,
			map[string]any{"force_id": forceID, "neighbourhood_id": neighbourhoodID, "points": len(boundary)},
		)
	}

	centroid, ok := coordinateOf(nb.Centre)
	if !ok {
		centroid = meanOf(boundary)
	}

	return &types.NeighbourhoodDetail{Boundary: boundary, Centroid: centroid}, nil
}

// SearchIncidentsInArea calls POST /crimes-street/all-crime with the boundary
// encoded as "lat,lng:lat,lng". POST is used because detailed boundaries
// overflow the URL length limit.
func (c *PoliceClient) SearchIncidentsInArea(ctx context.Context, boundary types.Polygon, period string) ([]types.RawIncident, error) {
	if !boundary.Valid() {
		return nil, types.NewAppError(types.ErrCodeValidationMissingField, "search boundary needs at least three points", nil)
	}
	if _, err := types.ParsePeriod(period); err != nil {
		return nil, types.NewAppError(types.ErrCodeValidationInvalidPeriod, err.Error(), err)
	}

	form := url.Values{}
	form.Set("poly", encodePoly(boundary))
	form.Set("date", period)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/crimes-street/all-crime", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create incident search request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	c.logger.InfoContext(ctx, "searching police API for incidents",
		"period", period,
		"boundary_points", len(boundary),
	)

	var crimes []crimeResponse
	if err := c.doJSON(req, "SearchIncidentsInArea", types.ErrCodeNotFoundResource, &crimes); err != nil {
		return nil, err
	}

	incidents := make([]types.RawIncident, 0, len(crimes))
	for _, cr := range crimes {
		inc := types.RawIncident{ID: cr.ID, Category: cr.Category, Month: cr.Month}
		if cr.Location != nil {
			inc.Latitude = parseCoordinate(cr.Location.Latitude)
			inc.Longitude = parseCoordinate(cr.Location.Longitude)
			if cr.Location.Street != nil && strings.TrimSpace(cr.Location.Street.Name) != "" {
				name := cr.Location.Street.Name
				inc.LocationName = &name
			}
		}
		incidents = append(incidents, inc)
	}

	c.logger.InfoContext(ctx, "police API incident search complete",
		"period", period,
		"incidents", len(incidents),
	)

	return incidents, nil
}

func (c *PoliceClient) getJSON(ctx context.Context, operation, path string, notFound types.ErrorCode, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, fmt.Sprintf("failed to create %s request", operation), err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.DebugContext(ctx, "calling police API", "operation", operation, "path", path)

	return c.doJSON(req, operation, notFound, out)
}

func (c *PoliceClient) doJSON(req *http.Request, operation string, notFound types.ErrorCode, out any) error {
	resp, err := c.base.Do(req)
	if err != nil {
		return c.wrapError(operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.handleErrorResponse(resp, operation, notFound)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return types.NewAppError(types.ErrCodeUpstreamTimeout, fmt.Sprintf("police API %s: response read timed out", operation), err)
		}
		return types.NewAppError(
			types.ErrCodeUpstreamMalformed,
			fmt.Sprintf("failed to decode police API %s response", operation),
			err,
		)
	}
	return nil
}

// handleErrorResponse reads and logs the error body from a non-2xx response,
// then returns an appropriate AppError.
func (c *PoliceClient) handleErrorResponse(resp *http.Response, operation string, notFound types.ErrorCode) *types.AppError {
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	bodyStr := string(bodyBytes)

	if resp.StatusCode == http.StatusNotFound {
		c.logger.Info("police API resource not found",
			"operation", operation,
			"path", resp.Request.URL.Path,
		)
		return types.NewAppError(
			notFound,
			fmt.Sprintf("police API %s: resource not found", operation),
			fmt.Errorf("police API %s returned 404: %s", operation, bodyStr),
		)
	}

	c.logger.Error("police API error",
		"operation", operation,
		"status_code", resp.StatusCode,
		"response_body", bodyStr,
	)

	return types.NewAppError(
		types.ErrCodeUpstreamPoliceAPI,
		fmt.Sprintf("police API client error (%d): %s", resp.StatusCode, operation),
		fmt.Errorf("police API %s returned %d: %s", operation, resp.StatusCode, bodyStr),
	)
}

// wrapError adds the operation to BaseClient errors, preserving the code.
func (c *PoliceClient) wrapError(operation string, err error) error {
	var appErr *types.AppError
	if ok := isAppError(err, &appErr); ok {
		return types.NewAppError(
			appErr.Code,
			fmt.Sprintf("police API %s: %s", operation, appErr.Message),
			appErr.Err,
		)
	}

	return types.NewAppError(
		types.ErrCodeUpstreamPoliceAPI,
		fmt.Sprintf("police API %s failed", operation),
		err,
	)
}

// isAppError checks if err is an *types.AppError and extracts it.
func isAppError(err error, target **types.AppError) bool {
	var ae *types.AppError
	if ok := errors.As(err, &ae); ok {
		*target = ae
		return true
	}
	return false
}

// parseCoordinate parses a decimal-string coordinate. Empty or malformed
// values yield nil.
func parseCoordinate(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func coordinateOf(p *latLng) (types.Coordinate, bool) {
	if p == nil {
		return types.Coordinate{}, false
	}
	lat, lon := parseCoordinate(p.Latitude), parseCoordinate(p.Longitude)
	if lat == nil || lon == nil {
		return types.Coordinate{}, false
	}
	return types.Coordinate{Lat: *lat, Lon: *lon}, true
}

func meanOf(p types.Polygon) types.Coordinate {
	var sum types.Coordinate
	for _, c := range p {
		sum.Lat += c.Lat
		sum.Lon += c.Lon
	}
	n := float64(len(p))
	return types.Coordinate{Lat: sum.Lat / n, Lon: sum.Lon / n}
}

func encodePoly(p types.Polygon) string {
	var b strings.Builder
	for i, c := range p {
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteString(strconv.FormatFloat(c.Lat, 'f', -1, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(c.Lon, 'f', -1, 64))
	}
	return b.String()
}

// Compile-time interface compliance check.
var _ CrimeDataSource = (*PoliceClient)(nil)
