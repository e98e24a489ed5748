package worldbank

import (
	"net/http"

	"econ_dashboard/pkg/api/respond"
	"econ_dashboard/pkg/core/apperr"
	"econ_dashboard/pkg/core/dashboard"
	"econ_dashboard/pkg/core/topics"
	coreWorldBank "econ_dashboard/pkg/core/worldbank"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler serves the World Bank JSON API.
type Handler struct {
	source dashboard.WorldBankSource
	charts dashboard.ChartWriter
	topics *topics.Set
	log    zerolog.Logger
}

func NewHandler(source dashboard.WorldBankSource, charts dashboard.ChartWriter, set *topics.Set, log zerolog.Logger) *Handler {
	return &Handler{
		source: source,
		charts: charts,
		topics: set,
		log:    log.With().Str("handler", "worldbank").Logger(),
	}
}

// Routes mounts the endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/countries", h.HandleCountries)
	r.Get("/topics", h.HandleTopics)
	r.Get("/indicators", h.HandleIndicators)
	r.Get("/chart", h.HandleChart)
}

// HandleCountries returns the cached country list.
func (h *Handler) HandleCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := h.source.Countries(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, h.log, http.StatusOK, countries)
}

// HandleTopics returns the configured topics in display order.
func (h *Handler) HandleTopics(w http.ResponseWriter, r *http.Request) {
	if err := h.topics.Err(); err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, h.log, http.StatusOK, h.topics.All())
}

// HandleIndicators returns metadata for ?topic= or for explicit ?id= values,
// in the configured (or requested) order.
func (h *Handler) HandleIndicators(w http.ResponseWriter, r *http.Request) {
	const op = "api.indicators"
	q := r.URL.Query()

	ids := q["id"]
	if name := q.Get("topic"); name != "" {
		if err := h.topics.Err(); err != nil {
			respond.Error(w, h.log, err)
			return
		}
		t, ok := h.topics.Get(name)
		if !ok {
			respond.Error(w, h.log, apperr.New(apperr.KindUnknownID, op, "Unknown topic "+name+"."))
			return
		}
		ids = t.IndicatorIDs
	}
	if len(ids) == 0 {
		respond.Error(w, h.log, apperr.New(apperr.KindInvalidSelection, op, "Pass a topic or at least one indicator id."))
		return
	}

	indicators, err := h.source.Indicators(r.Context(), ids)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, h.log, http.StatusOK, indicators)
}

// HandleChart renders ?indicator= for the ?country= values, or for every
// country when none is given.
func (h *Handler) HandleChart(w http.ResponseWriter, r *http.Request) {
	const op = "api.chart"
	q := r.URL.Query()

	id := q.Get("indicator")
	if id == "" {
		respond.Error(w, h.log, apperr.New(apperr.KindInvalidSelection, op, "Please select an indicator."))
		return
	}

	countries := q["country"]
	if len(countries) == 0 {
		all, err := h.source.Countries(r.Context())
		if err != nil {
			respond.Error(w, h.log, err)
			return
		}
		countries = countryIDs(all)
	}

	title := id
	if meta, err := h.source.Indicators(r.Context(), []string{id}); err == nil && len(meta) == 1 {
		title = meta[0].Title
	} else if err != nil {
		h.log.Debug().Err(err).Str("indicator", id).Msg("No title for chart, using id")
	}

	ch, err := h.charts.Write(r.Context(), id, title, countries)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, h.log, http.StatusOK, ch)
}

func countryIDs(countries []coreWorldBank.Country) []string {
	ids := make([]string, len(countries))
	for i, c := range countries {
		ids[i] = c.ID
	}
	return ids
}
