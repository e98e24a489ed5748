package dashboard

import (
	"context"
	"strings"

	"econ_dashboard/pkg/core/apperr"
	"econ_dashboard/pkg/core/edgar"
	"econ_dashboard/pkg/core/finance"
	"econ_dashboard/pkg/core/selection"
)

// Forms are the filing types offered on the finance page; the first is the default.
var Forms = []string{edgar.FormAnnual, edgar.FormQuarterly}

// FinanceView is the financial summary page.
type FinanceView struct {
	State   selection.State
	Ticker  string
	Forms   []string
	Form    selection.Selection
	Summary *finance.Summary
	Err     string
}

// Finance resolves the form and ticker from state. With run set it generates a
// new summary; otherwise a summary id in state is loaded if present.
func (c *Controller) Finance(ctx context.Context, state selection.State, run bool) *FinanceView {
	v := &FinanceView{
		State:  state.With(KeyPage, PageFinance),
		Ticker: strings.ToUpper(strings.TrimSpace(state.Get(KeyTicker))),
		Forms:  Forms,
	}
	v.Form = selection.Resolve(state, KeyForm, Forms)
	v.State = v.State.With(KeyForm, v.Form.Value).With(KeyTicker, v.Ticker)

	switch {
	case run:
		if v.Ticker == "" {
			v.Err = "Please enter a company ticker."
			return v
		}
		s, err := c.summaries.Generate(ctx, v.Ticker, v.Form.Value)
		if err != nil {
			v.Err = apperr.UserMessage(err)
			v.State = v.State.With(KeySummary, "")
			return v
		}
		v.Summary = s
		// An unsaved summary cannot be linked to; it is only shown on this response.
		if s.Kept {
			v.State = v.State.With(KeySummary, s.ID)
		} else {
			v.State = v.State.With(KeySummary, "")
		}
	case state.Get(KeySummary) != "":
		s, err := c.summaries.Get(ctx, state.Get(KeySummary))
		if err != nil {
			v.Err = apperr.UserMessage(err)
			v.State = v.State.With(KeySummary, "")
			return v
		}
		v.Summary = s
	}
	return v
}
