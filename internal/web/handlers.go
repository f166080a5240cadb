package web

import (
	"database/sql"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hpungsan/tally/internal/config"
	"github.com/hpungsan/tally/internal/errors"
	"github.com/hpungsan/tally/internal/ops"
)

// Handlers contains HTTP route handlers for the API.
type Handlers struct {
	db      *sql.DB
	cfg     *config.Config
	version string
}

// addRequest is the body of POST /api/add.
type addRequest struct {
	Input     *string `json:"input"`
	NoHistory bool    `json:"no_history,omitempty"`
}

// purgeRequest is the body of POST /api/purge.
type purgeRequest struct {
	OlderThanDays *int `json:"older_than_days,omitempty"`
	FailedOnly    bool `json:"failed_only,omitempty"`
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": h.version})
}

// HandleAdd handles POST /api/add.
// Calculation failures still answer 200 with the error in the payload.
func (h *Handlers) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := decodeBody(r, &req); err != nil {
		renderError(w, r, err)
		return
	}
	if req.Input == nil {
		renderError(w, r, errors.NewInvalidRequest("input is required"))
		return
	}

	result, err := ops.Evaluate(r.Context(), h.db, h.cfg, ops.EvaluateInput{
		Input:     *req.Input,
		Source:    "web",
		NoHistory: req.NoHistory,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleList handles GET /api/evaluations.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	result, err := ops.List(r.Context(), h.db, ops.ListInput{
		Status: r.URL.Query().Get("status"),
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleLatest handles GET /api/evaluations/latest.
func (h *Handlers) HandleLatest(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Latest(r.Context(), h.db, ops.LatestInput{
		Status: r.URL.Query().Get("status"),
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleFetch handles GET /api/evaluations/{id}.
func (h *Handlers) HandleFetch(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Fetch(r.Context(), h.db, ops.FetchInput{ID: chi.URLParam(r, "id")})
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandlePurge handles POST /api/purge. An empty body purges everything.
func (h *Handlers) HandlePurge(w http.ResponseWriter, r *http.Request) {
	var req purgeRequest
	if err := decodeBody(r, &req); err != nil {
		renderError(w, r, err)
		return
	}

	result, err := ops.Purge(r.Context(), h.db, ops.PurgeInput{
		OlderThanDays: req.OlderThanDays,
		FailedOnly:    req.FailedOnly,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// decodeBody decodes a JSON request body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && err != io.EOF {
		return errors.NewInvalidRequest("invalid JSON body: " + err.Error())
	}
	return nil
}

// renderError writes a TallyError as JSON using its status code.
// Anything else is reported as INTERNAL and logged.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	tErr, ok := errors.As(err)
	if !ok {
		tErr = errors.NewInternal(err)
	}
	if tErr.Code == errors.ErrInternal {
		log.Printf("request %s %s failed (request_id=%s): %v",
			r.Method, r.URL.Path, middleware.GetReqID(r.Context()), tErr.Details["internal_error"])
	}

	renderJSON(w, tErr.Status, map[string]any{
		"error": map[string]any{
			"code":    string(tErr.Code),
			"message": tErr.Message,
			"status":  tErr.Status,
		},
	})
}

// renderJSON writes a JSON response with the given status code.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// errNoRoute builds the 404 for unmatched paths.
func errNoRoute(r *http.Request) *errors.TallyError {
	return &errors.TallyError{
		Code:    errors.ErrNotFound,
		Status:  http.StatusNotFound,
		Message: "no route for " + r.Method + " " + r.URL.Path,
	}
}

// errMethodNotAllowed builds the 405 for a known path hit with the wrong method.
func errMethodNotAllowed(r *http.Request) *errors.TallyError {
	return &errors.TallyError{
		Code:    errors.ErrInvalidRequest,
		Status:  http.StatusMethodNotAllowed,
		Message: "method " + r.Method + " not allowed for " + r.URL.Path,
	}
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
