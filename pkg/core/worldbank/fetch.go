package worldbank

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"econ_dashboard/pkg/core/apperr"
	"econ_dashboard/pkg/core/cache"
	"econ_dashboard/pkg/core/fanout"
)

// Countries returns every country in upstream order, cached as one entry.
func (c *Client) Countries(ctx context.Context) ([]Country, error) {
	const op = "worldbank.countries"

	countries, err := cache.Fetch(ctx, c.cache, cache.Key(op), func(ctx context.Context) ([]Country, error) {
		wire, err := getAll[wireCountry](ctx, c, op, "/country", nil)
		if err != nil {
			return nil, err
		}
		out := make([]Country, 0, len(wire))
		for _, w := range wire {
			out = append(out, Country{
				ID:          w.ID,
				ISO2:        w.ISO2Code,
				Name:        strings.TrimSpace(w.Name),
				Region:      strings.TrimSpace(w.Region.Value),
				IncomeLevel: strings.TrimSpace(w.IncomeLevel.Value),
			})
		}
		if len(out) == 0 {
			return nil, apperr.New(apperr.KindEmpty, op, "")
		}
		return out, nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindOf(err), op,
			"Couldn't fetch and chart data right now due to World Bank API unavailability.", err)
	}

	if !c.cfg.ExcludeAggregates {
		return countries, nil
	}
	economies := make([]Country, 0, len(countries))
	for _, country := range countries {
		if !country.IsAggregate() {
			economies = append(economies, country)
		}
	}
	if len(economies) == 0 {
		return nil, apperr.New(apperr.KindEmpty, op, "No countries available.")
	}
	return economies, nil
}

// Indicator returns the metadata of one indicator, cached by id.
func (c *Client) Indicator(ctx context.Context, id string) (Indicator, error) {
	const op = "worldbank.indicator"

	if strings.TrimSpace(id) == "" {
		return Indicator{}, apperr.New(apperr.KindInvalidSelection, op, "Please select an indicator.")
	}

	return cache.Fetch(ctx, c.cache, cache.Key(op, id), func(ctx context.Context) (Indicator, error) {
		var wire []wireIndicator
		if _, err := c.getPage(ctx, op, "/indicator/"+url.PathEscape(id), nil, &wire); err != nil {
			return Indicator{}, err
		}
		if len(wire) == 0 {
			return Indicator{}, apperr.New(apperr.KindUnknownID, op, "Unknown indicator id.")
		}
		w := wire[0]
		return Indicator{
			ID:          w.ID,
			Title:       strings.TrimSpace(w.Name),
			Description: strings.TrimSpace(w.SourceNote),
			Source:      w.Source.Value,
			Unit:        w.Unit,
		}, nil
	})
}

// Indicators fetches metadata for every id with bounded concurrency. Results are
// in input order; any failed id fails the whole call.
func (c *Client) Indicators(ctx context.Context, ids []string) ([]Indicator, error) {
	const op = "worldbank.indicators"

	if len(ids) == 0 {
		return nil, apperr.New(apperr.KindEmpty, op, "No indicators configured for this topic.")
	}
	infos, err := fanout.Map(ctx, len(ids), c.cfg.MaxConcurrency, func(ctx context.Context, i int) (Indicator, error) {
		return c.Indicator(ctx, ids[i])
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindOf(err), op, "Couldn't fetch indicators' titles/descriptions.", err)
	}
	return infos, nil
}

// CountrySeries fetches one indicator's annual values for one country, cached per
// (indicator, country). Null upstream values are dropped.
func (c *Client) CountrySeries(ctx context.Context, indicatorID, countryID string) (CountrySeries, error) {
	const op = "worldbank.series"

	return cache.Fetch(ctx, c.cache, cache.Key(op, indicatorID, countryID), func(ctx context.Context) (CountrySeries, error) {
		path := "/country/" + url.PathEscape(countryID) + "/indicator/" + url.PathEscape(indicatorID)
		wire, err := getAll[wireObservation](ctx, c, op, path, nil)
		if err != nil {
			return CountrySeries{}, err
		}

		series := CountrySeries{CountryID: countryID, Points: make([]Observation, 0, len(wire))}
		for _, w := range wire {
			if w.Value == nil {
				continue
			}
			year, ok := parseYear(w.Date)
			if !ok {
				continue
			}
			id := w.CountryISO3Code
			if id == "" {
				id = countryID
			}
			series.Points = append(series.Points, Observation{
				CountryID:   id,
				CountryName: w.Country.Value,
				Year:        year,
				Value:       *w.Value,
			})
		}
		return series, nil
	})
}

// Series fetches the indicator for every country with bounded concurrency,
// returned in the order of countryIDs.
func (c *Client) Series(ctx context.Context, indicatorID string, countryIDs []string) ([]CountrySeries, error) {
	const op = "worldbank.series"

	if indicatorID == "" {
		return nil, apperr.New(apperr.KindInvalidSelection, op, "Unknown indicator id.")
	}
	if len(countryIDs) == 0 {
		return nil, apperr.New(apperr.KindInvalidSelection, op, "Please select at least one country.")
	}

	c.log.Debug().Str("indicator", indicatorID).Int("countries", len(countryIDs)).Msg("Fetching series")
	series, err := fanout.Map(ctx, len(countryIDs), c.cfg.MaxConcurrency, func(ctx context.Context, i int) (CountrySeries, error) {
		return c.CountrySeries(ctx, indicatorID, countryIDs[i])
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindOf(err), op, "Couldn't fetch the indicator's data.", err)
	}
	return series, nil
}

// parseYear reads the year of an annual ("2021") or sub-annual ("2021Q3") date.
func parseYear(date string) (int, bool) {
	if len(date) < 4 {
		return 0, false
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0, false
	}
	return y, true
}
