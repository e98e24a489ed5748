package worldbank

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"econ_dashboard/pkg/core/apperr"
	"econ_dashboard/pkg/core/cache"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI serves canned World Bank responses and counts hits per path.
type fakeAPI struct {
	mu     sync.Mutex
	hits   map[string]int
	routes map[string]func(w http.ResponseWriter, r *http.Request)
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{hits: map[string]int{}, routes: map[string]func(http.ResponseWriter, *http.Request){}}
}

func (f *fakeAPI) handle(path string, fn func(w http.ResponseWriter, r *http.Request)) {
	f.routes[path] = fn
}

func (f *fakeAPI) json(path, body string) {
	f.handle(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	})
}

func (f *fakeAPI) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.hits[r.URL.Path]++
	f.mu.Unlock()
	if fn, ok := f.routes[r.URL.Path]; ok {
		fn(w, r)
		return
	}
	http.NotFound(w, r)
}

func newTestClient(t *testing.T, api http.Handler, cfg Config) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	cfg.BaseURL = srv.URL
	cfg.RequestsPerSecond = 1000
	acc := cache.NewAccessor(cache.NewMemoryStore(), time.Hour, "", cache.BypassOnStoreError, zerolog.Nop())
	return NewClient(cfg, acc, zerolog.Nop())
}

const countriesBody = `[
	{"page":1,"pages":1,"per_page":"1000","total":3},
	[
		{"id":"ARB","iso2Code":"1A","name":"Arab World","region":{"id":"NA","value":"Aggregates"},"incomeLevel":{"id":"NA","value":"Aggregates"}},
		{"id":"USA","iso2Code":"US","name":"United States","region":{"id":"NAC","value":"North America"},"incomeLevel":{"id":"HIC","value":"High income"}},
		{"id":"CHN","iso2Code":"CN","name":"China","region":{"id":"EAS","value":"East Asia & Pacific "},"incomeLevel":{"id":"UMC","value":"Upper middle income"}}
	]
]`

func TestCountries_ParsesAndCaches(t *testing.T) {
	api := newFakeAPI()
	api.json("/country", countriesBody)
	c := newTestClient(t, api, Config{})

	countries, err := c.Countries(context.Background())
	require.NoError(t, err)
	require.Len(t, countries, 3)
	assert.Equal(t, "ARB", countries[0].ID)
	assert.True(t, countries[0].IsAggregate())
	assert.Equal(t, "East Asia & Pacific", countries[2].Region)

	_, err = c.Countries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, api.count("/country"))
}

func TestCountries_ExcludeAggregates(t *testing.T) {
	api := newFakeAPI()
	api.json("/country", countriesBody)
	c := newTestClient(t, api, Config{ExcludeAggregates: true})

	countries, err := c.Countries(context.Background())
	require.NoError(t, err)
	require.Len(t, countries, 2)
	assert.Equal(t, []string{"USA", "CHN"}, []string{countries[0].ID, countries[1].ID})
}

func TestCountries_UpstreamDown(t *testing.T) {
	api := newFakeAPI()
	api.handle("/country", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	c := newTestClient(t, api, Config{})

	_, err := c.Countries(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUnavailable))
	assert.Contains(t, apperr.UserMessage(err), "World Bank API unavailability")
}

func TestCountries_EmptyIsNotCached(t *testing.T) {
	api := newFakeAPI()
	api.json("/country", `[{"page":0,"pages":0,"per_page":"1000","total":0}, null]`)
	c := newTestClient(t, api, Config{})

	_, err := c.Countries(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindEmpty))

	_, _ = c.Countries(context.Background())
	assert.Equal(t, 2, api.count("/country"))
}

func indicatorBody(id, name string) string {
	return fmt.Sprintf(`[{"page":1,"pages":1,"per_page":"50","total":1},[{"id":%q,"name":%q,"unit":"","source":{"id":"2","value":"World Development Indicators"},"sourceNote":"Description of %s.","sourceOrganization":"World Bank"}]]`, id, name, id)
}

func TestIndicators_PreservesInputOrder(t *testing.T) {
	api := newFakeAPI()
	ids := []string{"NY.GDP.MKTP.CD", "FP.CPI.TOTL.ZG", "SL.UEM.TOTL.ZS", "NE.EXP.GNFS.ZS"}
	for i, id := range ids {
		id, delay := id, time.Duration(len(ids)-i)*10*time.Millisecond
		api.handle("/indicator/"+id, func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(delay)
			fmt.Fprint(w, indicatorBody(id, "Title "+id))
		})
	}
	c := newTestClient(t, api, Config{MaxConcurrency: 4})

	infos, err := c.Indicators(context.Background(), ids)
	require.NoError(t, err)
	require.Len(t, infos, len(ids))
	for i, id := range ids {
		assert.Equal(t, id, infos[i].ID)
		assert.Equal(t, "Title "+id, infos[i].Title)
		assert.Equal(t, "Description of "+id+".", infos[i].Description)
	}
}

func TestIndicators_AnyFailureFailsAll(t *testing.T) {
	api := newFakeAPI()
	api.json("/indicator/NY.GDP.MKTP.CD", indicatorBody("NY.GDP.MKTP.CD", "GDP (current US$)"))
	api.json("/indicator/BAD.ID", `[{"message":[{"id":"120","key":"Invalid value","value":"The provided parameter value is not valid"}]}]`)
	c := newTestClient(t, api, Config{})

	infos, err := c.Indicators(context.Background(), []string{"NY.GDP.MKTP.CD", "BAD.ID"})
	require.Error(t, err)
	assert.Nil(t, infos)
	assert.True(t, apperr.Is(err, apperr.KindUnknownID))
	assert.Equal(t, "Couldn't fetch indicators' titles/descriptions.", apperr.UserMessage(err))
}

func TestIndicators_CachedPerID(t *testing.T) {
	api := newFakeAPI()
	api.json("/indicator/NY.GDP.MKTP.CD", indicatorBody("NY.GDP.MKTP.CD", "GDP (current US$)"))
	api.json("/indicator/FP.CPI.TOTL.ZG", indicatorBody("FP.CPI.TOTL.ZG", "Inflation"))
	c := newTestClient(t, api, Config{})

	_, err := c.Indicators(context.Background(), []string{"NY.GDP.MKTP.CD"})
	require.NoError(t, err)
	_, err = c.Indicators(context.Background(), []string{"NY.GDP.MKTP.CD", "FP.CPI.TOTL.ZG"})
	require.NoError(t, err)

	assert.Equal(t, 1, api.count("/indicator/NY.GDP.MKTP.CD"))
	assert.Equal(t, 1, api.count("/indicator/FP.CPI.TOTL.ZG"))
}

func TestSeries_DropsNullsAndFollowsPages(t *testing.T) {
	api := newFakeAPI()
	api.handle("/country/USA/indicator/NY.GDP.MKTP.CD", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "1":
			fmt.Fprint(w, `[{"page":1,"pages":2,"per_page":2,"total":3},[
				{"indicator":{"id":"NY.GDP.MKTP.CD","value":"GDP"},"country":{"id":"US","value":"United States"},"countryiso3code":"USA","date":"2023","value":null},
				{"indicator":{"id":"NY.GDP.MKTP.CD","value":"GDP"},"country":{"id":"US","value":"United States"},"countryiso3code":"USA","date":"2022","value":25744108000000}
			]]`)
		default:
			fmt.Fprint(w, `[{"page":2,"pages":2,"per_page":2,"total":3},[
				{"indicator":{"id":"NY.GDP.MKTP.CD","value":"GDP"},"country":{"id":"US","value":"United States"},"countryiso3code":"USA","date":"2021","value":23594031000000}
			]]`)
		}
	})
	c := newTestClient(t, api, Config{})

	series, err := c.Series(context.Background(), "NY.GDP.MKTP.CD", []string{"USA"})
	require.NoError(t, err)
	require.Len(t, series, 1)
	require.Len(t, series[0].Points, 2)
	assert.Equal(t, 2022, series[0].Points[0].Year)
	assert.Equal(t, 2021, series[0].Points[1].Year)
	assert.Equal(t, "United States", series[0].Points[0].CountryName)
	assert.Equal(t, 2, api.count("/country/USA/indicator/NY.GDP.MKTP.CD"))
}

func TestSeries_EveryCountryFetchedOnceInOrder(t *testing.T) {
	api := newFakeAPI()
	countries := []string{"USA", "CHN", "DEU", "JPN"}
	for _, id := range countries {
		id := id
		api.handle("/country/"+id+"/indicator/NY.GDP.MKTP.CD", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `[{"page":1,"pages":1,"per_page":1000,"total":1},[{"indicator":{"id":"NY.GDP.MKTP.CD","value":"GDP"},"country":{"id":"XX","value":%q},"countryiso3code":%q,"date":"2020","value":1}]]`, strings.ToLower(id), id)
		})
	}
	c := newTestClient(t, api, Config{MaxConcurrency: 2})

	series, err := c.Series(context.Background(), "NY.GDP.MKTP.CD", countries)
	require.NoError(t, err)
	_, err = c.Series(context.Background(), "NY.GDP.MKTP.CD", countries)
	require.NoError(t, err)

	for i, id := range countries {
		assert.Equal(t, id, series[i].CountryID)
		assert.Equal(t, 1, api.count("/country/"+id+"/indicator/NY.GDP.MKTP.CD"))
	}
}

func TestSeries_RequiresSelection(t *testing.T) {
	c := newTestClient(t, newFakeAPI(), Config{})

	_, err := c.Series(context.Background(), "NY.GDP.MKTP.CD", nil)
	assert.True(t, apperr.Is(err, apperr.KindInvalidSelection))
	_, err = c.Series(context.Background(), "", []string{"USA"})
	assert.True(t, apperr.Is(err, apperr.KindInvalidSelection))
}

func TestParseYear(t *testing.T) {
	y, ok := parseYear("2021Q3")
	assert.True(t, ok)
	assert.Equal(t, 2021, y)
	_, ok = parseYear("n/a")
	assert.False(t, ok)
}
