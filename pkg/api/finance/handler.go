package finance

import (
	"encoding/json"
	"net/http"

	"econ_dashboard/pkg/api/respond"
	"econ_dashboard/pkg/core/dashboard"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// SummaryRequest is the body of POST /summary.
type SummaryRequest struct {
	Ticker string `json:"ticker"`
	Form   string `json:"form"`
}

// Handler serves financial summaries.
type Handler struct {
	summaries dashboard.SummaryGenerator
	log       zerolog.Logger
}

func NewHandler(summaries dashboard.SummaryGenerator, log zerolog.Logger) *Handler {
	return &Handler{summaries: summaries, log: log.With().Str("handler", "finance").Logger()}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/summary", h.HandleGenerate)
	r.Get("/summary/{id}", h.HandleGet)
}

// HandleGenerate runs statement extraction and the LLM analysis synchronously.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req SummaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Message(w, h.log, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Form == "" {
		req.Form = dashboard.Forms[0]
	}

	s, err := h.summaries.Generate(r.Context(), req.Ticker, req.Form)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, h.log, http.StatusOK, s)
}

// HandleGet returns a previously generated summary.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	s, err := h.summaries.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, h.log, http.StatusOK, s)
}
