// Package pages serves the server-rendered World Bank and finance pages.
package pages

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"econ_dashboard/pkg/core/dashboard"
	"econ_dashboard/pkg/core/edgar"
	"econ_dashboard/pkg/core/selection"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed templates/*.html
var templateFS embed.FS

// Handler renders pages from dashboard views.
type Handler struct {
	controller *dashboard.Controller
	tmpl       *template.Template
	md         goldmark.Markdown
	log        zerolog.Logger
}

func NewHandler(controller *dashboard.Controller, log zerolog.Logger) (*Handler, error) {
	h := &Handler{
		controller: controller,
		md:         goldmark.New(goldmark.WithExtensions(extension.GFM)),
		log:        log.With().Str("handler", "pages").Logger(),
	}
	tmpl, err := template.New("pages").Funcs(template.FuncMap{
		"markdown":  h.markdown,
		"chartSpec": func(raw []byte) template.JS { return template.JS(raw) },
		"contains":  contains,
		"label":     func(k edgar.StatementKind) string { return k.Label() },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	h.tmpl = tmpl
	return h, nil
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.HandleIndex)
	r.Post("/finance/run", h.HandleRunFinance)
}

type pageData struct {
	Page      string
	Pages     []string
	WorldBank *dashboard.WorldBankView
	Finance   *dashboard.FinanceView
}

// HandleIndex renders the page selected by ?page=.
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	state := selection.NewState(r.URL.Query())
	data := pageData{Page: dashboard.Page(state), Pages: dashboard.Pages}

	switch data.Page {
	case dashboard.PageFinance:
		data.Finance = h.controller.Finance(r.Context(), state, false)
	default:
		data.WorldBank = h.controller.WorldBank(r.Context(), state)
	}
	h.render(w, http.StatusOK, data)
}

// HandleRunFinance generates a summary from the posted form and redirects to
// the page state that shows it. Failures, and summaries the cache could not
// keep, are rendered in place.
func (h *Handler) HandleRunFinance(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	state := selection.NewState(r.PostForm)
	v := h.controller.Finance(r.Context(), state, true)
	if v.Err != "" || v.State.Get(dashboard.KeySummary) == "" {
		h.render(w, http.StatusOK, pageData{Page: dashboard.PageFinance, Pages: dashboard.Pages, Finance: v})
		return
	}
	http.Redirect(w, r, "/?"+v.State.Encode(), http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		h.log.Error().Err(err).Str("page", data.Page).Msg("Failed to render page")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// markdown converts LLM output to HTML. goldmark drops raw HTML from the
// input unless rendering is configured as unsafe.
func (h *Handler) markdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := h.md.Convert([]byte(src), &buf); err != nil {
		h.log.Warn().Err(err).Msg("Markdown conversion failed")
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
