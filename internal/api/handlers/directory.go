// Package handlers contains the HTTP handlers of the street-crime API.
//
// Directory endpoints feed the selection controls:
//   - GET /v1/forces
//   - GET /v1/forces/links?force=
//   - GET /v1/neighbourhoods?force=
//   - GET /v1/periods
//
// The crime query itself is served by CrimeHandler.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"streetcrime/internal/core"
	"streetcrime/internal/directory"
	"streetcrime/internal/types"
)

// ForceDirectory is the read side of directory.ForceDirectory.
type ForceDirectory interface {
	List() []types.PoliceForce
	ResolveID(name string) (string, bool)
	EngagementLinks(ctx context.Context, forceName string) ([]types.EngagementLink, error)
}

// NeighbourhoodLister lists a force's neighbourhoods.
type NeighbourhoodLister interface {
	List(ctx context.Context, forceID string) ([]types.NeighbourhoodStub, error)
}

// PeriodCatalog exposes the published periods for the period picker.
type PeriodCatalog interface {
	Options() []directory.PeriodOption
	Latest() (string, bool)
}

// DirectoryHandler serves the lookups behind the selection controls.
type DirectoryHandler struct {
	forces         ForceDirectory
	neighbourhoods NeighbourhoodLister
	periods        PeriodCatalog
	validator      *core.Validator
	logger         *slog.Logger
}

// NewDirectoryHandler creates a DirectoryHandler.
func NewDirectoryHandler(
	forces ForceDirectory,
	neighbourhoods NeighbourhoodLister,
	periods PeriodCatalog,
	val *core.Validator,
	logger *slog.Logger,
) *DirectoryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if val == nil {
		val = core.NewValidator(logger)
	}
	return &DirectoryHandler{
		forces:         forces,
		neighbourhoods: neighbourhoods,
		periods:        periods,
		validator:      val,
		logger:         logger,
	}
}

// RegisterRoutes mounts the directory endpoints on r.
func (h *DirectoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/forces", h.HandleListForces)
	r.Get("/forces/links", h.HandleForceLinks)
	r.Get("/neighbourhoods", h.HandleListNeighbourhoods)
	r.Get("/periods", h.HandleListPeriods)
}

// forceQuery is optional on the directory endpoints: a missing or unknown
// force yields an empty list, matching an unpopulated picker.
type forceQuery struct {
	Force string `query:"force" validate:"omitempty,max=128"`
}

// HandleListForces handles GET /v1/forces.
func (h *DirectoryHandler) HandleListForces(w http.ResponseWriter, r *http.Request) {
	forces := h.forces.List()
	core.Data(w, r, forces, &core.ResponseMeta{Count: len(forces)})
}

// HandleForceLinks handles GET /v1/forces/links.
func (h *DirectoryHandler) HandleForceLinks(w http.ResponseWriter, r *http.Request) {
	q := forceQuery{Force: strings.TrimSpace(r.URL.Query().Get("force"))}
	if err := h.validator.Struct(q); err != nil {
		core.Error(w, r, err)
		return
	}
	if q.Force == "" {
		core.Data(w, r, []types.EngagementLink{}, &core.ResponseMeta{Count: 0})
		return
	}

	links, err := h.forces.EngagementLinks(r.Context(), q.Force)
	if errors.Is(err, directory.ErrNotFound) {
		h.logger.DebugContext(r.Context(), "no engagement links for unknown force", "force", q.Force)
		core.Data(w, r, []types.EngagementLink{}, &core.ResponseMeta{Count: 0})
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to load engagement links",
			"force", q.Force,
			"error", err,
		)
		core.Error(w, r, err)
		return
	}
	if links == nil {
		links = []types.EngagementLink{}
	}

	core.Data(w, r, links, &core.ResponseMeta{Count: len(links)})
}

// HandleListNeighbourhoods handles GET /v1/neighbourhoods.
func (h *DirectoryHandler) HandleListNeighbourhoods(w http.ResponseWriter, r *http.Request) {
	q := forceQuery{Force: strings.TrimSpace(r.URL.Query().Get("force"))}
	if err := h.validator.Struct(q); err != nil {
		core.Error(w, r, err)
		return
	}

	forceID, ok := h.forces.ResolveID(q.Force)
	if q.Force == "" || !ok {
		core.Data(w, r, []types.NeighbourhoodStub{}, &core.ResponseMeta{Count: 0})
		return
	}

	stubs, err := h.neighbourhoods.List(r.Context(), forceID)
	if errors.Is(err, directory.ErrNotFound) {
		core.Data(w, r, []types.NeighbourhoodStub{}, &core.ResponseMeta{Count: 0})
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list neighbourhoods",
			"force_id", forceID,
			"error", err,
		)
		core.Error(w, r, err)
		return
	}
	if stubs == nil {
		stubs = []types.NeighbourhoodStub{}
	}

	core.Data(w, r, stubs, &core.ResponseMeta{Count: len(stubs)})
}

// periodsResponse lists the picker options, newest first.
type periodsResponse struct {
	Latest  string                   `json:"latest,omitempty"`
	Options []directory.PeriodOption `json:"options"`
}

// HandleListPeriods handles GET /v1/periods.
func (h *DirectoryHandler) HandleListPeriods(w http.ResponseWriter, r *http.Request) {
	opts := h.periods.Options()
	latest, _ := h.periods.Latest()
	core.Data(w, r, periodsResponse{Latest: latest, Options: opts}, &core.ResponseMeta{Count: len(opts)})
}
