package api

import (
	"net/http"
	"time"

	"github.com/edgesoc/ids2-supervisor/internal/collaborator"
	"github.com/edgesoc/ids2-supervisor/internal/config"
	"github.com/edgesoc/ids2-supervisor/internal/logging"
	"github.com/edgesoc/ids2-supervisor/internal/state"
	"github.com/goccy/go-json"
)

// controlResponse is the wire shape for the three control/config-mutating
// endpoints: {"status": "success"|"error", "message": "..."}.
type controlResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Collaborators is the minimal surface the Control API needs against the
// three managed collaborators, keyed by name.
type Collaborators interface {
	Get(name collaborator.Name) (*collaborator.Handle, bool)
}

// Handler implements the Control API's request handling, independent of
// chi routing.
type Handler struct {
	state         *state.State
	config        func() *config.Config
	collaborators Collaborators
	stopTimeout   time.Duration
}

// NewHandler constructs a Handler. configFn returns the currently active
// configuration so an in-flight Update is always reflected.
func NewHandler(st *state.State, configFn func() *config.Config, collaborators Collaborators, stopTimeout time.Duration) *Handler {
	return &Handler{state: st, config: configFn, collaborators: collaborators, stopTimeout: stopTimeout}
}

// Status implements GET /api/status: the full Shared State snapshot.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.state.All())
}

// GetConfig implements GET /api/config. Config.json tags exclude every
// secret field, so this never echoes a credential back to the operator.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.config())
}

// UpdateConfig implements POST /api/config/update: merge patch into a copy
// of the current config, validate, and persist only if valid.
func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, controlResponse{Status: "error", Message: "invalid JSON body: " + err.Error()})
		return
	}

	if _, err := h.config().Update(patch); err != nil {
		writeJSON(w, http.StatusBadRequest, controlResponse{Status: "error", Message: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, controlResponse{Status: "success", Message: "configuration updated"})
}

type controlRequest struct {
	Service string `json:"service"`
}

// Start implements POST /api/control/start.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, func(handle *collaborator.Handle) error {
		return handle.Start(r.Context())
	})
}

// Stop implements POST /api/control/stop.
func (h *Handler) Stop(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, func(handle *collaborator.Handle) error {
		return handle.Stop(r.Context())
	})
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request, action func(*collaborator.Handle) error) {
	log := logging.WithComponent("control-api")

	var req controlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, controlResponse{Status: "error", Message: "invalid JSON body: " + err.Error()})
		return
	}

	if !collaborator.Known(req.Service) {
		writeJSON(w, http.StatusBadRequest, controlResponse{Status: "error", Message: "Unknown service: " + req.Service})
		return
	}

	handle, ok := h.collaborators.Get(collaborator.Name(req.Service))
	if !ok {
		writeJSON(w, http.StatusBadRequest, controlResponse{Status: "error", Message: "Unknown service: " + req.Service})
		return
	}

	if err := action(handle); err != nil {
		log.Error().Err(err).Str("service", req.Service).Msg("control action failed")
		writeJSON(w, http.StatusInternalServerError, controlResponse{Status: "error", Message: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, controlResponse{Status: "success", Message: req.Service + " action completed"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
