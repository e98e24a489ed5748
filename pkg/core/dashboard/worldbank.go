package dashboard

import (
	"context"

	"econ_dashboard/pkg/core/apperr"
	"econ_dashboard/pkg/core/chart"
	"econ_dashboard/pkg/core/selection"
	"econ_dashboard/pkg/core/worldbank"
)

// WorldBankView is the World Bank page: countries, topic and indicator
// dropdowns, the selected indicator's metadata and its chart.
type WorldBankView struct {
	// State is the input state with every resolved selection written back.
	State selection.State

	Countries         []worldbank.Country
	SelectedCountries []string
	CountriesErr      string

	Topics []string
	Topic  selection.Selection

	Indicators    []worldbank.Indicator
	Indicator     selection.Selection
	Selected      *worldbank.Indicator
	IndicatorsErr string

	Chart    *chart.Chart
	ChartErr string
}

// WorldBank assembles the page. Each step that fails records its message and
// stops only the steps that depend on it.
func (c *Controller) WorldBank(ctx context.Context, state selection.State) *WorldBankView {
	v := &WorldBankView{State: state.With(KeyPage, PageWorldBank)}

	countries, err := c.worldBank.Countries(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("Countries unavailable")
		v.CountriesErr = apperr.UserMessage(err)
	} else {
		v.Countries = countries
		ids := make([]string, len(countries))
		for i, ct := range countries {
			ids[i] = ct.ID
		}
		v.SelectedCountries = selection.FilterValid(state, KeyCountry, ids)
		v.State = v.State.WithAll(KeyCountry, v.SelectedCountries)
		if len(v.SelectedCountries) == 0 {
			v.SelectedCountries = ids
		}
	}

	if err := c.topics.Err(); err != nil {
		v.IndicatorsErr = apperr.UserMessage(err)
		return v
	}
	v.Topics = c.topics.Names()
	v.Topic = selection.Resolve(state, KeyTopic, v.Topics)
	if v.Topic.Unset() {
		v.IndicatorsErr = "No topics are configured."
		return v
	}
	v.State = v.State.With(KeyTopic, v.Topic.Value)
	topic, _ := c.topics.Get(v.Topic.Value)

	indicators, err := c.worldBank.Indicators(ctx, topic.IndicatorIDs)
	if err != nil {
		c.log.Warn().Err(err).Str("topic", topic.Name).Msg("Indicator metadata unavailable")
		v.IndicatorsErr = apperr.UserMessage(err)
		return v
	}
	v.Indicators = indicators

	v.Indicator = selection.Resolve(state, KeyIndicator, topic.IndicatorIDs)
	if v.Indicator.Unset() || v.Indicator.Index >= len(indicators) {
		v.IndicatorsErr = "Please select an indicator."
		return v
	}
	v.State = v.State.With(KeyIndicator, v.Indicator.Value)
	v.Selected = &v.Indicators[v.Indicator.Index]

	if v.CountriesErr != "" {
		v.ChartErr = v.CountriesErr
		return v
	}
	ch, err := c.charts.Write(ctx, v.Selected.ID, v.Selected.Title, v.SelectedCountries)
	if err != nil {
		c.log.Warn().Err(err).Str("indicator", v.Selected.ID).Msg("Chart unavailable")
		v.ChartErr = apperr.UserMessage(err)
		return v
	}
	v.Chart = ch
	return v
}
