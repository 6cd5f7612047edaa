// Package query runs the force → neighbourhood → crimes → summary pipeline
// and shapes its outcome for presentation.
package query

import (
	"context"
	"errors"
	"log/slog"

	"streetcrime/internal/crimes"
	"streetcrime/internal/directory"
	"streetcrime/internal/types"
)

// ForceResolver maps a force display name to its id.
type ForceResolver interface {
	ResolveID(name string) (string, bool)
}

// NeighbourhoodResolver returns boundary and centroid for a named
// neighbourhood, or directory.ErrNotFound / directory.ErrUnresolved.
type NeighbourhoodResolver interface {
	Resolve(ctx context.Context, forceID, name string) (types.Neighbourhood, error)
}

// IncidentFetcher returns raw incidents for an area and period.
type IncidentFetcher interface {
	Fetch(ctx context.Context, boundary types.Polygon, period string) ([]types.RawIncident, error)
}

// PeriodValidator rejects malformed or unpublished periods.
type PeriodValidator interface {
	Validate(period string) error
}

// OutcomeRecorder observes the state of each completed query.
type OutcomeRecorder interface {
	RecordQueryOutcome(state string)
}

// Params are the four optional pipeline inputs.
type Params struct {
	Submitted     bool   `json:"submitted"`
	Force         string `json:"force"`
	Neighbourhood string `json:"neighbourhood"`
	Period        string `json:"period"`
}

// IsZero reports whether nothing at all was supplied.
func (p Params) IsZero() bool {
	return !p.Submitted && p.Force == "" && p.Neighbourhood == "" && p.Period == ""
}

// Complete reports whether force, neighbourhood and period are all present.
func (p Params) Complete() bool {
	return p.Force != "" && p.Neighbourhood != "" && p.Period != ""
}

// Deps are the collaborators the pipeline is built from.
type Deps struct {
	Forces         ForceResolver
	Neighbourhoods NeighbourhoodResolver
	Fetcher        IncidentFetcher
	Normalizer     *crimes.Normalizer
	Periods        PeriodValidator
	Recorder       OutcomeRecorder
	Logger         *slog.Logger
}

// Pipeline holds no state between runs other than what its collaborators
// cache.
type Pipeline struct {
	forces         ForceResolver
	neighbourhoods NeighbourhoodResolver
	fetcher        IncidentFetcher
	normalizer     *crimes.Normalizer
	periods        PeriodValidator
	recorder       OutcomeRecorder
	logger         *slog.Logger
}

// NewPipeline creates a Pipeline.
func NewPipeline(d Deps) *Pipeline {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	normalizer := d.Normalizer
	if normalizer == nil {
		normalizer = crimes.NewNormalizer(logger)
	}
	return &Pipeline{
		forces:         d.Forces,
		neighbourhoods: d.Neighbourhoods,
		fetcher:        d.Fetcher,
		normalizer:     normalizer,
		periods:        d.Periods,
		recorder:       d.Recorder,
		logger:         logger,
	}
}

// Run evaluates one query.
//
//   - nothing supplied: StateStartup, national viewport, no remote calls.
//   - any of force, neighbourhood or period missing: StateNoSelection, no
//     remote calls.
//   - force or neighbourhood unknown: StateNoSelection.
//   - resolved with zero qualifying incidents: StateEmpty centred on the
//     neighbourhood.
//   - otherwise StatePopulated.
//
// A malformed or unpublished period is a validation AppError. Remote
// failures are returned as upstream AppErrors and never reported as an
// empty result.
func (p *Pipeline) Run(ctx context.Context, params Params) (*Result, error) {
	res, err := p.run(ctx, params)
	if err == nil && p.recorder != nil {
		p.recorder.RecordQueryOutcome(string(res.State))
	}
	return res, err
}

func (p *Pipeline) run(ctx context.Context, params Params) (*Result, error) {
	heading, sub := headings(params.Force, params.Neighbourhood)
	res := &Result{
		Force:         params.Force,
		Neighbourhood: params.Neighbourhood,
		Period:        params.Period,
		Heading:       heading,
		Subheading:    sub,
		Viewport:      nationalViewport(),
		Incidents:     []types.IncidentRecord{},
		Summary:       types.CrimeSummary{},
	}

	if params.IsZero() {
		res.State = StateStartup
		return res, nil
	}
	if !params.Complete() {
		res.State = StateNoSelection
		return res, nil
	}

	if err := p.validatePeriod(params.Period); err != nil {
		return nil, err
	}

	forceID, ok := p.forces.ResolveID(params.Force)
	if !ok {
		p.logger.DebugContext(ctx, "force not found", "force", params.Force)
		res.State = StateNoSelection
		return res, nil
	}

	nb, err := p.neighbourhoods.Resolve(ctx, forceID, params.Neighbourhood)
	if errors.Is(err, directory.ErrNotFound) || errors.Is(err, directory.ErrUnresolved) {
		p.logger.DebugContext(ctx, "neighbourhood not resolved",
			"force_id", forceID,
			"neighbourhood", params.Neighbourhood,
		)
		res.State = StateNoSelection
		return res, nil
	}
	if err != nil {
		return nil, err
	}

	raw, err := p.fetcher.Fetch(ctx, nb.Boundary, params.Period)
	if err != nil {
		return nil, err
	}

	incidents, err := p.normalizer.Normalize(ctx, raw)
	if errors.Is(err, crimes.ErrNoIncidents) {
		res.State = StateEmpty
		res.Message = "No crimes for the " + params.Period + "."
		res.Viewport = emptyViewport(nb, params.Period)
		return res, nil
	}
	if err != nil {
		return nil, err
	}

	summary, err := crimes.Aggregate(incidents)
	if err != nil {
		return nil, err
	}

	p.logger.InfoContext(ctx, "crime query resolved",
		"force_id", forceID,
		"neighbourhood_id", nb.ID,
		"period", params.Period,
		"raw", len(raw),
		"incidents", len(incidents),
		"categories", len(summary),
	)

	res.State = StatePopulated
	res.Viewport = populatedViewport(nb, incidents)
	res.Incidents = incidents
	res.Summary = summary
	return res, nil
}

func (p *Pipeline) validatePeriod(period string) error {
	if p.periods != nil {
		return p.periods.Validate(period)
	}
	if _, err := types.ParsePeriod(period); err != nil {
		return types.NewAppError(types.ErrCodeValidationInvalidPeriod, "period must be in YYYY-MM form", err)
	}
	return nil
}
