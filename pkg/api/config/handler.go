package config

import (
	"encoding/json"
	"net/http"

	"econ_dashboard/pkg/api/respond"
	"econ_dashboard/pkg/core/agent"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type Response struct {
	ActiveProvider string   `json:"active_provider"`
	Available      []string `json:"available"`
}

type SwitchRequest struct {
	Provider string `json:"provider"`
}

// Handler holds dependencies for config endpoints
type Handler struct {
	AgentMgr *agent.Manager
	log      zerolog.Logger
}

// NewHandler creates a new config handler
func NewHandler(agentMgr *agent.Manager, log zerolog.Logger) *Handler {
	return &Handler{
		AgentMgr: agentMgr,
		log:      log.With().Str("handler", "config").Logger(),
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.HandleConfig)
	r.Post("/switch", h.HandleSwitch)
}

func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, h.log, http.StatusOK, Response{
		ActiveProvider: h.AgentMgr.GetActiveProvider(),
		Available:      h.AgentMgr.Available(),
	})
}

func (h *Handler) HandleSwitch(w http.ResponseWriter, r *http.Request) {
	var req SwitchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Message(w, h.log, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.AgentMgr.SetGlobalProvider(req.Provider); err != nil {
		respond.Message(w, h.log, http.StatusBadRequest, err.Error())
		return
	}

	h.HandleConfig(w, r)
}
