package scheduler

import (
	"context"
	"fmt"

	"econ_dashboard/pkg/core/cache"
	"econ_dashboard/pkg/core/topics"
	"econ_dashboard/pkg/core/worldbank"

	"github.com/rs/zerolog"
)

// PurgeJob drops expired rows from SQL cache backends.
type PurgeJob struct {
	purger cache.Purger
	log    zerolog.Logger
}

func NewPurgeJob(p cache.Purger, log zerolog.Logger) *PurgeJob {
	return &PurgeJob{purger: p, log: log.With().Str("job", "cache_purge").Logger()}
}

func (j *PurgeJob) Name() string { return "cache_purge" }

func (j *PurgeJob) Run(ctx context.Context) error {
	n, err := j.purger.PurgeExpired(ctx)
	if err != nil {
		return fmt.Errorf("purge expired cache entries: %w", err)
	}
	if n > 0 {
		j.log.Info().Int64("removed", n).Msg("Purged expired cache entries")
	}
	return nil
}

// WarmSource is the part of the World Bank client the warm-up job needs.
type WarmSource interface {
	Countries(ctx context.Context) ([]worldbank.Country, error)
	Indicators(ctx context.Context, ids []string) ([]worldbank.Indicator, error)
}

// WarmJob refreshes the cached country list and the metadata of every
// configured indicator so the first page view after expiry is fast.
type WarmJob struct {
	source WarmSource
	topics *topics.Set
	log    zerolog.Logger
}

func NewWarmJob(source WarmSource, set *topics.Set, log zerolog.Logger) *WarmJob {
	return &WarmJob{source: source, topics: set, log: log.With().Str("job", "cache_warm").Logger()}
}

func (j *WarmJob) Name() string { return "cache_warm" }

// Run keeps going after a failing topic and reports the first error.
func (j *WarmJob) Run(ctx context.Context) error {
	countries, err := j.source.Countries(ctx)
	if err != nil {
		return fmt.Errorf("warm countries: %w", err)
	}

	var firstErr error
	indicators := 0
	for _, t := range j.topics.All() {
		got, err := j.source.Indicators(ctx, t.IndicatorIDs)
		if err != nil {
			j.log.Warn().Err(err).Str("topic", t.Name).Msg("Could not warm topic indicators")
			if firstErr == nil {
				firstErr = fmt.Errorf("warm topic %s: %w", t.Name, err)
			}
			continue
		}
		indicators += len(got)
	}

	j.log.Info().Int("countries", len(countries)).Int("indicators", indicators).Msg("Cache warmed")
	return firstErr
}
