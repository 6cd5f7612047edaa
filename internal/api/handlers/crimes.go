package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"streetcrime/internal/core"
	"streetcrime/internal/query"
	"streetcrime/internal/types"
)

// QueryRunner runs one crime query.
type QueryRunner interface {
	Run(ctx context.Context, params query.Params) (*query.Result, error)
}

// CrimeHandler serves GET /v1/crimes.
type CrimeHandler struct {
	runner    QueryRunner
	validator *core.Validator
	logger    *slog.Logger
}

// NewCrimeHandler creates a CrimeHandler.
func NewCrimeHandler(runner QueryRunner, val *core.Validator, logger *slog.Logger) *CrimeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if val == nil {
		val = core.NewValidator(logger)
	}
	return &CrimeHandler{runner: runner, validator: val, logger: logger}
}

// RegisterRoutes mounts the crime endpoint on r.
func (h *CrimeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/crimes", h.HandleQuery)
}

type crimesQuery struct {
	Force         string `query:"force" validate:"max=128"`
	Neighbourhood string `query:"neighbourhood" validate:"max=128"`
	Period        string `query:"period" validate:"omitempty,period"`
}

// crimesResponse flattens the result and adds the column headings table
// renderers need.
type crimesResponse struct {
	*query.Result
	IncidentColumns []string `json:"incident_columns"`
	SummaryColumns  []string `json:"summary_columns"`
}

// HandleQuery handles GET /v1/crimes?submit=&force=&neighbourhood=&period=.
//
// Every parameter is optional. Missing or unknown selections produce a 200
// with state "startup" or "no_selection". A malformed period is a 400, an
// unpublished one a 400 naming the latest period, and a failing police API a
// 502 or 504.
func (h *CrimeHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()

	submitted := false
	if raw := v.Get("submit"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			core.Error(w, r, types.NewAppErrorWithDetails(
				types.ErrCodeValidationInvalidQuery,
				"submit must be a boolean",
				err,
				map[string]any{"submit": raw},
			))
			return
		}
		submitted = b
	}

	q := crimesQuery{
		Force:         strings.TrimSpace(v.Get("force")),
		Neighbourhood: strings.TrimSpace(v.Get("neighbourhood")),
		Period:        strings.TrimSpace(v.Get("period")),
	}
	if err := h.validator.Struct(q); err != nil {
		core.Error(w, r, err)
		return
	}

	res, err := h.runner.Run(r.Context(), query.Params{
		Submitted:     submitted,
		Force:         q.Force,
		Neighbourhood: q.Neighbourhood,
		Period:        q.Period,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "crime query failed",
			"force", q.Force,
			"neighbourhood", q.Neighbourhood,
			"period", q.Period,
			"error", err,
		)
		core.Error(w, r, err)
		return
	}

	core.Data(w, r, crimesResponse{
		Result:          res,
		IncidentColumns: types.IncidentColumns(),
		SummaryColumns:  types.SummaryColumns(),
	}, &core.ResponseMeta{Count: len(res.Incidents)})
}
