// Package finance turns the latest SEC filing of a company into an LLM-written
// analysis of its three primary statements.
package finance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"econ_dashboard/pkg/core/agent"
	"econ_dashboard/pkg/core/apperr"
	"econ_dashboard/pkg/core/cache"
	"econ_dashboard/pkg/core/edgar"
	"econ_dashboard/pkg/core/prompt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrLLM marks failures of the analysis call itself.
	ErrLLM = errors.New("llm analysis failed")
	// ErrSummaryNotFound is returned by Get for unknown or expired summary IDs.
	ErrSummaryNotFound = errors.New("summary not found")
)

// StatementSource yields the latest filing of a form with its statements.
type StatementSource interface {
	FinancialStatements(ctx context.Context, ticker, form string) (*edgar.FilingStatements, error)
}

// Analyzer sends a prompt to the configured LLM and reports which provider answered.
type Analyzer interface {
	ExecutePrompt(ctx context.Context, agentType string, rawPrompt string, rawSystemPrompt string, options map[string]interface{}) (string, string, error)
}

// Summary is one generated analysis.
type Summary struct {
	ID          string            `json:"id"`
	Ticker      string            `json:"ticker"`
	Form        string            `json:"form"`
	Filing      edgar.Filing      `json:"filing"`
	Statements  []edgar.Statement `json:"statements"`
	Analysis    string            `json:"analysis"`
	Provider    string            `json:"provider"`
	GeneratedAt time.Time         `json:"generated_at"`
	// Kept reports whether the summary can be recalled later with Get.
	Kept bool `json:"kept" msgpack:"-"`
}

// Generator produces Summaries. Generated summaries are kept in the cache
// store so pages can link to them by ID.
type Generator struct {
	source   StatementSource
	analyzer Analyzer
	prompts  *prompt.Registry
	history  *cache.Accessor
	log      zerolog.Logger
	now      func() time.Time
}

// NewGenerator wires a generator. history may be nil.
func NewGenerator(source StatementSource, analyzer Analyzer, prompts *prompt.Registry, history *cache.Accessor, log zerolog.Logger) *Generator {
	if prompts == nil {
		prompts = prompt.NewRegistry()
	}
	return &Generator{
		source:   source,
		analyzer: analyzer,
		prompts:  prompts,
		history:  history,
		log:      log.With().Str("component", "finance").Logger(),
		now:      time.Now,
	}
}

// Generate fetches the cash flow, income statement and balance sheet of the
// latest filing of form for ticker and asks the LLM to analyse them.
// Filing lookup errors are returned before any LLM call is made.
func (g *Generator) Generate(ctx context.Context, ticker, form string) (*Summary, error) {
	const op = "finance.generate"

	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, apperr.New(apperr.KindInvalidSelection, op, "Please enter a company ticker.")
	}
	form, err := edgar.ValidateForm(form)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidSelection, op, "Please choose 10-K or 10-Q.", err)
	}

	log := g.log.With().Str("ticker", ticker).Str("form", form).Logger()

	fs, err := g.source.FinancialStatements(ctx, ticker, form)
	if err != nil {
		log.Warn().Err(err).Msg("Statement extraction failed")
		return nil, err
	}

	msg, err := g.prompts.Render(prompt.FinanceSummaryID, prompt.NewContext().
		Set("Statements", StatementsText(fs)).
		Set("Ticker", ticker).
		Set("Form", form))
	if err != nil {
		return nil, fmt.Errorf("render finance prompt: %w", err)
	}

	analysis, provider, err := g.analyzer.ExecutePrompt(ctx, agent.AgentFinance, msg.User, msg.System, nil)
	if err != nil {
		log.Error().Err(err).Str("provider", provider).Msg("Analysis failed")
		return nil, apperr.Wrap(apperr.KindDownstream, op,
			"Couldn't generate the financial analysis right now.", fmt.Errorf("%w: %w", ErrLLM, err))
	}
	if strings.TrimSpace(analysis) == "" {
		return nil, apperr.Wrap(apperr.KindDownstream, op,
			"The model returned an empty analysis.", fmt.Errorf("%w: empty analysis from %s", ErrLLM, provider))
	}

	s := &Summary{
		ID:          uuid.NewString(),
		Ticker:      ticker,
		Form:        form,
		Filing:      fs.Filing,
		Statements:  fs.Statements,
		Analysis:    analysis,
		Provider:    provider,
		GeneratedAt: g.now().UTC(),
	}

	if g.history != nil {
		if err := cache.Put(ctx, g.history, summaryKey(s.ID), *s); err != nil {
			log.Warn().Err(err).Str("summary_id", s.ID).Msg("Could not keep summary, returning it unsaved")
		} else {
			s.Kept = true
		}
	}
	log.Info().Str("summary_id", s.ID).Str("provider", provider).Str("accession", fs.Filing.AccessionNumber).Msg("Generated financial summary")
	return s, nil
}

// Get returns a previously generated summary.
func (g *Generator) Get(ctx context.Context, id string) (*Summary, error) {
	const op = "finance.get"
	if g.history == nil {
		return nil, apperr.Wrap(apperr.KindUnknownID, op, "Summary not found.", ErrSummaryNotFound)
	}
	s, found, err := cache.Lookup[Summary](ctx, g.history, summaryKey(id))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, op, "Couldn't load the summary.", err)
	}
	if !found {
		return nil, apperr.Wrap(apperr.KindUnknownID, op, "Summary not found.", fmt.Errorf("%w: %s", ErrSummaryNotFound, id))
	}
	s.Kept = true
	return &s, nil
}

func summaryKey(id string) string {
	return cache.Key("finance.summary", id)
}

// StatementsText renders the statements as "<Label>:<table>" blocks in
// cash flow, income statement, balance sheet order.
func StatementsText(fs *edgar.FilingStatements) string {
	var parts []string
	for _, kind := range edgar.StatementKinds {
		st, ok := fs.Get(kind)
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s:%s", kind.Label(), st.Text()))
	}
	return strings.Join(parts, "\n")
}
