// Package dashboard composes the fetchers, the chart writer and the summary
// generator into page views. Every section of a view carries its own error
// message so one failing upstream never blanks the whole page.
package dashboard

import (
	"context"

	"econ_dashboard/pkg/core/chart"
	"econ_dashboard/pkg/core/finance"
	"econ_dashboard/pkg/core/selection"
	"econ_dashboard/pkg/core/topics"
	"econ_dashboard/pkg/core/worldbank"

	"github.com/rs/zerolog"
)

// State keys persisted in the page URL.
const (
	KeyPage      = "page"
	KeyTopic     = "topic"
	KeyIndicator = "indicator"
	KeyCountry   = "country"
	KeyTicker    = "ticker"
	KeyForm      = "form"
	KeySummary   = "summary"
)

const (
	PageWorldBank = "worldbank"
	PageFinance   = "finance"
)

// Pages lists the selectable pages; the first is the default.
var Pages = []string{PageWorldBank, PageFinance}

// WorldBankSource is the World Bank client as seen by the page.
type WorldBankSource interface {
	Countries(ctx context.Context) ([]worldbank.Country, error)
	Indicators(ctx context.Context, ids []string) ([]worldbank.Indicator, error)
}

// ChartWriter renders one indicator for a set of countries.
type ChartWriter interface {
	Write(ctx context.Context, indicatorID, title string, countryIDs []string) (*chart.Chart, error)
}

// SummaryGenerator produces and recalls financial summaries.
type SummaryGenerator interface {
	Generate(ctx context.Context, ticker, form string) (*finance.Summary, error)
	Get(ctx context.Context, id string) (*finance.Summary, error)
}

// Controller builds page views.
type Controller struct {
	worldBank WorldBankSource
	charts    ChartWriter
	topics    *topics.Set
	summaries SummaryGenerator
	log       zerolog.Logger
}

func NewController(wb WorldBankSource, charts ChartWriter, set *topics.Set, summaries SummaryGenerator, log zerolog.Logger) *Controller {
	return &Controller{
		worldBank: wb,
		charts:    charts,
		topics:    set,
		summaries: summaries,
		log:       log.With().Str("component", "dashboard").Logger(),
	}
}

// Page resolves which page the state selects.
func Page(state selection.State) string {
	return selection.Resolve(state, KeyPage, Pages).Value
}
