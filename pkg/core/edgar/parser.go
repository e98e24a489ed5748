// Package edgar fetches the primary financial statements of a company's latest
// SEC filing.
//
// The statements come from the filing's own rendered report pages: the
// FilingSummary.xml of a filing lists every R-page EDGAR generated from the
// XBRL, and the balance sheet, income statement and cash flow pages are parsed
// with github.com/PuerkitoBio/goquery.
package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"econ_dashboard/pkg/core/apperr"
	"econ_dashboard/pkg/core/cache"
	"econ_dashboard/pkg/core/fanout"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	DefaultUserAgent    = "EconDashboard/1.0 (contact@example.com)"
	defaultDataURL      = "https://data.sec.gov"
	defaultArchivesURL  = "https://www.sec.gov/Archives/edgar/data"
	defaultTickersURL   = "https://www.sec.gov/files/company_tickers.json"
	submissionsPathTmpl = "/submissions/CIK%s.json"
)

// Config tunes the EDGAR client. SEC asks for a descriptive User-Agent and at
// most 10 requests per second.
type Config struct {
	UserAgent         string        `yaml:"user_agent"`
	DataURL           string        `yaml:"data_url"`
	ArchivesURL       string        `yaml:"archives_url"`
	TickersURL        string        `yaml:"tickers_url"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

func (c *Config) applyDefaults() {
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.DataURL == "" {
		c.DataURL = defaultDataURL
	}
	if c.ArchivesURL == "" {
		c.ArchivesURL = defaultArchivesURL
	}
	if c.TickersURL == "" {
		c.TickersURL = defaultTickersURL
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	if c.RequestsPerSecond <= 0 || c.RequestsPerSecond > 10 {
		c.RequestsPerSecond = 10
	}
}

// Client handles SEC EDGAR requests.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	cache   *cache.Accessor
	log     zerolog.Logger
}

// NewClient creates an EDGAR client backed by the given cache accessor.
func NewClient(cfg Config, acc *cache.Accessor, log zerolog.Logger) *Client {
	cfg.applyDefaults()
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		cache:   acc,
		log:     log.With().Str("component", "edgar").Logger(),
	}
}

// submissionsResponse from data.sec.gov (parallel arrays, newest first).
type submissionsResponse struct {
	CIK     string   `json:"cik"`
	Name    string   `json:"name"`
	Tickers []string `json:"tickers"`
	Filings struct {
		Recent struct {
			AccessionNumber []string `json:"accessionNumber"`
			FilingDate      []string `json:"filingDate"`
			ReportDate      []string `json:"reportDate"`
			Form            []string `json:"form"`
			PrimaryDocument []string `json:"primaryDocument"`
		} `json:"recent"`
	} `json:"filings"`
}

// LookupCIK resolves a ticker to a 10-digit CIK. The SEC ticker map is cached
// as one entry.
func (c *Client) LookupCIK(ctx context.Context, ticker string) (string, error) {
	const op = "edgar.lookup_cik"
	normalized := strings.ToUpper(strings.TrimSpace(ticker))
	if normalized == "" {
		return "", apperr.New(apperr.KindInvalidSelection, op, "Please enter a company ticker.")
	}

	tickers, err := cache.Fetch(ctx, c.cache, cache.Key("edgar.tickers"), c.loadTickers)
	if err != nil {
		return "", apperr.Wrap(apperr.KindOf(err), op, "Couldn't reach SEC EDGAR right now.", err)
	}

	cik, ok := tickers[normalized]
	if !ok {
		return "", apperr.Wrap(apperr.KindUnknownID, op,
			fmt.Sprintf("Ticker %s was not found in the SEC database.", normalized),
			fmt.Errorf("%w: %s", ErrTickerNotFound, normalized))
	}
	return cik, nil
}

// loadTickers fetches company_tickers.json.
// Format: {"0": {"cik_str": 320193, "ticker": "AAPL", "title": "Apple Inc."}, ...}
func (c *Client) loadTickers(ctx context.Context) (map[string]string, error) {
	c.log.Info().Msg("Loading ticker->CIK map from SEC")
	body, err := c.fetchURL(ctx, c.cfg.TickersURL)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "edgar.tickers", "", fmt.Errorf("failed to fetch company tickers: %w", err))
	}

	var resp map[string]struct {
		CIK    int    `json:"cik_str"`
		Ticker string `json:"ticker"`
		Title  string `json:"title"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "edgar.tickers", "", fmt.Errorf("failed to parse ticker JSON: %w", err))
	}

	out := make(map[string]string, len(resp))
	for _, entry := range resp {
		out[strings.ToUpper(entry.Ticker)] = fmt.Sprintf("%010d", entry.CIK)
	}
	if len(out) == 0 {
		return nil, apperr.New(apperr.KindEmpty, "edgar.tickers", "")
	}
	c.log.Info().Int("tickers", len(out)).Msg("Loaded tickers from SEC")
	return out, nil
}

// LatestFiling returns the most recent original (non-amended) filing of form.
func (c *Client) LatestFiling(ctx context.Context, cik, form string) (*Filing, error) {
	const op = "edgar.latest_filing"

	form, err := ValidateForm(form)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidSelection, op, "Please choose 10-K or 10-Q.", err)
	}
	cik = padCIK(cik)

	filing, err := cache.Fetch(ctx, c.cache, cache.Key(op, cik, form), func(ctx context.Context) (Filing, error) {
		body, err := c.fetchURL(ctx, c.cfg.DataURL+fmt.Sprintf(submissionsPathTmpl, cik))
		if err != nil {
			return Filing{}, apperr.Wrap(apperr.KindUnavailable, op, "", fmt.Errorf("failed to fetch submissions: %w", err))
		}
		var sub submissionsResponse
		if err := json.Unmarshal(body, &sub); err != nil {
			return Filing{}, apperr.Wrap(apperr.KindUnavailable, op, "", fmt.Errorf("failed to parse submissions: %w", err))
		}

		recent := sub.Filings.Recent
		for i := range recent.Form {
			if recent.Form[i] != form || i >= len(recent.AccessionNumber) {
				continue
			}
			f := Filing{
				CIK:             cik,
				CompanyName:     sub.Name,
				Form:            form,
				AccessionNumber: recent.AccessionNumber[i],
				FilingDate:      at(recent.FilingDate, i),
				ReportDate:      at(recent.ReportDate, i),
				PrimaryDocument: at(recent.PrimaryDocument, i),
			}
			if len(sub.Tickers) > 0 {
				f.Ticker = sub.Tickers[0]
			}
			return f, nil
		}
		return Filing{}, fmt.Errorf("%w: no %s filings for CIK %s", ErrNoFilings, form, cik)
	})
	if err != nil {
		if isNoFilings(err) {
			return nil, apperr.Wrap(apperr.KindEmpty, op, fmt.Sprintf("No %s filings found.", form), err)
		}
		return nil, apperr.Wrap(apperr.KindOf(err), op, "Couldn't fetch the company's filings from SEC EDGAR.", err)
	}
	return &filing, nil
}

// Statements fetches the three primary statements of a filing concurrently.
func (c *Client) Statements(ctx context.Context, filing *Filing) ([]Statement, error) {
	const op = "edgar.statements"

	reports, err := cache.Fetch(ctx, c.cache, cache.Key("edgar.filing_summary", filing.AccessionNumber),
		func(ctx context.Context) (map[StatementKind]Report, error) {
			summary, err := c.fetchFilingSummary(ctx, filing.CIK, filing.AccessionNumber)
			if err != nil {
				return nil, err
			}
			return selectStatementReports(summary), nil
		})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindOf(err), op, "Couldn't read the filing's report index.", err)
	}

	for _, kind := range StatementKinds {
		if _, ok := reports[kind]; !ok {
			return nil, apperr.Wrap(apperr.KindDownstream, op,
				fmt.Sprintf("The filing has no %s statement.", strings.ToLower(kind.Label())),
				fmt.Errorf("%w: %s in %s", ErrStatementNotFound, kind, filing.AccessionNumber))
		}
	}

	return fanout.Map(ctx, len(StatementKinds), len(StatementKinds), func(ctx context.Context, i int) (Statement, error) {
		kind := StatementKinds[i]
		report := reports[kind]
		url := c.archiveURL(filing.CIK, filing.AccessionNumber, report.HtmlFileName)

		return cache.Fetch(ctx, c.cache, cache.Key("edgar.statement", filing.AccessionNumber, report.HtmlFileName),
			func(ctx context.Context) (Statement, error) {
				body, err := c.fetchURL(ctx, url)
				if err != nil {
					return Statement{}, apperr.Wrap(apperr.KindUnavailable, op, "Couldn't download a statement from SEC EDGAR.", err)
				}
				st, err := ParseStatement(string(body))
				if err != nil {
					return Statement{}, apperr.Wrap(apperr.KindDownstream, op,
						fmt.Sprintf("Couldn't read the %s statement.", strings.ToLower(kind.Label())), err)
				}
				st.Kind = kind
				st.SourceURL = url
				return st, nil
			})
	})
}

// FinancialStatements resolves ticker and form to the latest filing and its statements.
func (c *Client) FinancialStatements(ctx context.Context, ticker, form string) (*FilingStatements, error) {
	cik, err := c.LookupCIK(ctx, ticker)
	if err != nil {
		return nil, err
	}
	filing, err := c.LatestFiling(ctx, cik, form)
	if err != nil {
		return nil, err
	}
	if filing.Ticker == "" {
		filing.Ticker = strings.ToUpper(strings.TrimSpace(ticker))
	}

	statements, err := c.Statements(ctx, filing)
	if err != nil {
		return nil, err
	}
	c.log.Info().
		Str("ticker", filing.Ticker).
		Str("form", filing.Form).
		Str("accession", filing.AccessionNumber).
		Msg("Extracted financial statements")
	return &FilingStatements{Filing: *filing, Statements: statements}, nil
}

func (c *Client) archiveURL(cik, accession, file string) string {
	return fmt.Sprintf("%s/%s/%s/%s",
		strings.TrimRight(c.cfg.ArchivesURL, "/"),
		strings.TrimLeft(cik, "0"),
		strings.ReplaceAll(accession, "-", ""),
		file)
}

func (c *Client) fetchURL(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}

	// SEC requires User-Agent header
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json, text/html, application/xml")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("SEC returned status %d for %s", resp.StatusCode, url)
	}

	return io.ReadAll(resp.Body)
}

func padCIK(cik string) string {
	// Remove leading zeros first, then pad to 10 digits
	cik = strings.TrimLeft(strings.TrimSpace(cik), "0")
	return fmt.Sprintf("%010s", cik)
}

func at(s []string, i int) string {
	if i < len(s) {
		return s[i]
	}
	return ""
}
