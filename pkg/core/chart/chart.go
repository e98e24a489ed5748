// Package chart merges per-country indicator series into one dataset and renders
// it as a Vega-Lite line chart plus a table.
package chart

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"econ_dashboard/pkg/core/apperr"
	"econ_dashboard/pkg/core/worldbank"

	"github.com/rs/zerolog"
)

// Row is one (country, year) point of the merged dataset.
type Row struct {
	CountryID   string  `json:"country_id"`
	CountryName string  `json:"country"`
	Year        int     `json:"year"`
	Value       float64 `json:"value"`
}

// Dataset is the merged, gap-preserving view over several country series.
type Dataset struct {
	Rows      []Row    `json:"rows"`
	Countries []string `json:"countries"` // ids with at least one row, input order
	MinYear   int      `json:"min_year"`
	MaxYear   int      `json:"max_year"`
}

// Empty reports whether no country had any data.
func (d Dataset) Empty() bool { return len(d.Rows) == 0 }

// Value returns the value at (country, year) if present.
func (d Dataset) Value(countryID string, year int) (float64, bool) {
	for _, r := range d.Rows {
		if r.CountryID == countryID && r.Year == year {
			return r.Value, true
		}
	}
	return 0, false
}

// Merge combines series keyed by (country, year). Missing points stay missing:
// no zero or null rows are invented. Rows are ordered by series order, then
// ascending year; a repeated (country, year) keeps its first value.
func Merge(series []worldbank.CountrySeries) Dataset {
	var ds Dataset
	type key struct {
		country string
		year    int
	}
	seen := make(map[key]bool)

	for _, s := range series {
		points := append([]worldbank.Observation(nil), s.Points...)
		sort.SliceStable(points, func(i, j int) bool { return points[i].Year < points[j].Year })

		added := false
		for _, p := range points {
			id := s.CountryID
			k := key{id, p.Year}
			if seen[k] {
				continue
			}
			seen[k] = true
			name := p.CountryName
			if name == "" {
				name = id
			}
			ds.Rows = append(ds.Rows, Row{CountryID: id, CountryName: name, Year: p.Year, Value: p.Value})
			if ds.MinYear == 0 || p.Year < ds.MinYear {
				ds.MinYear = p.Year
			}
			if p.Year > ds.MaxYear {
				ds.MaxYear = p.Year
			}
			added = true
		}
		if added {
			ds.Countries = append(ds.Countries, s.CountryID)
		}
	}
	return ds
}

// Chart is a rendered indicator chart.
type Chart struct {
	IndicatorID string          `json:"indicator_id"`
	Title       string          `json:"title"`
	Dataset     Dataset         `json:"dataset"`
	Spec        json.RawMessage `json:"spec"` // Vega-Lite v5
}

// Render builds the Vega-Lite line chart for a dataset.
func Render(indicatorID, title string, ds Dataset) (*Chart, error) {
	if title == "" {
		title = indicatorID
	}
	spec := map[string]interface{}{
		"$schema": "https://vega.github.io/schema/vega-lite/v5.json",
		"title":   title,
		"width":   "container",
		"height":  400,
		"data":    map[string]interface{}{"values": ds.Rows},
		"mark":    map[string]interface{}{"type": "line", "point": true, "tooltip": true},
		"encoding": map[string]interface{}{
			"x":     map[string]interface{}{"field": "year", "type": "ordinal", "title": "Year"},
			"y":     map[string]interface{}{"field": "value", "type": "quantitative", "title": title},
			"color": map[string]interface{}{"field": "country", "type": "nominal", "title": "Country"},
		},
	}
	raw, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chart spec: %w", err)
	}
	return &Chart{IndicatorID: indicatorID, Title: title, Dataset: ds, Spec: raw}, nil
}

// SeriesSource supplies per-country series for an indicator.
type SeriesSource interface {
	Series(ctx context.Context, indicatorID string, countryIDs []string) ([]worldbank.CountrySeries, error)
}

// Writer fetches, merges and renders one indicator for a set of countries.
type Writer struct {
	source SeriesSource
	log    zerolog.Logger
}

func NewWriter(source SeriesSource, log zerolog.Logger) *Writer {
	return &Writer{source: source, log: log.With().Str("component", "chart").Logger()}
}

// Write renders indicatorID for countryIDs. title defaults to the id.
func (w *Writer) Write(ctx context.Context, indicatorID, title string, countryIDs []string) (*Chart, error) {
	const op = "chart.write"

	if indicatorID == "" {
		return nil, apperr.New(apperr.KindUnknownID, op, "Unknown indicator id.")
	}

	series, err := w.source.Series(ctx, indicatorID, countryIDs)
	if err != nil {
		return nil, err
	}

	ds := Merge(series)
	w.log.Debug().
		Str("indicator", indicatorID).
		Int("countries_requested", len(countryIDs)).
		Int("countries_with_data", len(ds.Countries)).
		Int("rows", len(ds.Rows)).
		Msg("Merged series")

	if ds.Empty() {
		return nil, apperr.New(apperr.KindEmpty, op, "No data available for this indicator and selection.")
	}
	return Render(indicatorID, title, ds)
}
