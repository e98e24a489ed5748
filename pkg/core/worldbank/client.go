// Package worldbank fetches countries, indicator metadata and indicator time
// series from the World Bank v2 API. Every response goes through the cache accessor.
// API Documentation: https://datahelpdesk.worldbank.org/knowledgebase/topics/125589
package worldbank

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"econ_dashboard/pkg/core/apperr"
	"econ_dashboard/pkg/core/cache"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.worldbank.org/v2"

	// DefaultMaxConcurrency caps per-request fan-out of indicator and series fetches.
	DefaultMaxConcurrency = 8
)

// Config tunes the client.
type Config struct {
	BaseURL           string        `yaml:"base_url"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	MaxConcurrency    int           `yaml:"max_concurrency"`
	ExcludeAggregates bool          `yaml:"exclude_aggregates"`
	PerPage           int           `yaml:"per_page"`
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 10
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	if c.PerPage <= 0 {
		c.PerPage = 1000
	}
}

// Client talks to the World Bank API.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	cache   *cache.Accessor
	log     zerolog.Logger
}

// NewClient creates a client. acc must not be nil.
func NewClient(cfg Config, acc *cache.Accessor, log zerolog.Logger) *Client {
	cfg.applyDefaults()
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.MaxConcurrency),
		cache:   acc,
		log:     log.With().Str("component", "worldbank").Logger(),
	}
}

// MaxConcurrency reports the fan-out bound in effect.
func (c *Client) MaxConcurrency() int { return c.cfg.MaxConcurrency }

// getPage fetches one page of a list endpoint and decodes its data element into out.
// A null data element leaves out untouched.
func (c *Client) getPage(ctx context.Context, op, path string, query url.Values, out interface{}) (pageMeta, error) {
	var meta pageMeta

	if query == nil {
		query = url.Values{}
	}
	query.Set("format", "json")
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + path + "?" + query.Encode()

	if err := c.limiter.Wait(ctx); err != nil {
		return meta, apperr.Wrap(apperr.KindUnavailable, op, "", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return meta, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return meta, apperr.Wrap(apperr.KindUnavailable, op, "", fmt.Errorf("World Bank API request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return meta, apperr.Wrap(apperr.KindUnavailable, op, "", fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return meta, apperr.Wrap(apperr.KindUnavailable, op, "",
			fmt.Errorf("World Bank API returned status %d", resp.StatusCode))
	}

	// Responses are [meta, data] or [{"message": [...]}] on errors.
	var envelope []json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return meta, apperr.Wrap(apperr.KindUnavailable, op, "", fmt.Errorf("failed to parse World Bank response: %w", err))
	}
	if len(envelope) == 0 {
		return meta, apperr.New(apperr.KindEmpty, op, "")
	}

	var msg apiMessage
	if err := json.Unmarshal(envelope[0], &msg); err == nil && len(msg.Message) > 0 {
		m := msg.Message[0]
		c.log.Debug().Str("op", op).Str("code", m.ID).Str("key", m.Key).Msg("World Bank API error message")
		// 120 = invalid value, 175 = indicator deleted or archived
		if m.ID == "120" || m.ID == "175" {
			return meta, apperr.Wrap(apperr.KindUnknownID, op, "", fmt.Errorf("%s: %s", m.Key, m.Value))
		}
		return meta, apperr.Wrap(apperr.KindUnavailable, op, "", fmt.Errorf("%s: %s", m.Key, m.Value))
	}

	if err := json.Unmarshal(envelope[0], &meta); err != nil {
		return meta, apperr.Wrap(apperr.KindUnavailable, op, "", fmt.Errorf("failed to parse page metadata: %w", err))
	}
	if len(envelope) < 2 || string(envelope[1]) == "null" {
		return meta, nil
	}
	if err := json.Unmarshal(envelope[1], out); err != nil {
		return meta, apperr.Wrap(apperr.KindUnavailable, op, "", fmt.Errorf("failed to parse data: %w", err))
	}
	return meta, nil
}

// getAll walks every page of a list endpoint.
func getAll[T any](ctx context.Context, c *Client, op, path string, query url.Values) ([]T, error) {
	var all []T
	for page := 1; ; page++ {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("per_page", strconv.Itoa(c.cfg.PerPage))
		q.Set("page", strconv.Itoa(page))

		var items []T
		meta, err := c.getPage(ctx, op, path, q, &items)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if meta.Pages <= page {
			break
		}
	}
	return all, nil
}
