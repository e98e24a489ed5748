package cache

import (
	"context"
	"fmt"
	"time"

	"econ_dashboard/pkg/core/apperr"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/singleflight"
)

// sharedFetchTimeout bounds a collapsed fetch once it no longer follows the
// context of the caller that started it.
const sharedFetchTimeout = 2 * time.Minute

// ErrStoreUnavailable is returned in FailOnStoreError mode when the store
// cannot be read or written. It carries apperr.KindUnavailable so pages show
// it like any other unreachable upstream.
var ErrStoreUnavailable error = apperr.New(apperr.KindUnavailable, "cache", "The cache store is unavailable right now.")

// FailureMode decides what Fetch does when the store errors.
type FailureMode string

const (
	// BypassOnStoreError runs the fetch uncached and logs a warning.
	BypassOnStoreError FailureMode = "bypass"
	// FailOnStoreError fails the call with ErrStoreUnavailable.
	FailOnStoreError FailureMode = "fail"
)

// ParseFailureMode validates a configured mode.
func ParseFailureMode(s string) (FailureMode, error) {
	switch FailureMode(s) {
	case BypassOnStoreError, FailOnStoreError:
		return FailureMode(s), nil
	}
	return "", fmt.Errorf("unknown cache failure mode %q (want %q or %q)", s, BypassOnStoreError, FailOnStoreError)
}

// Accessor wraps a Store with a fixed TTL, a key prefix and a failure mode.
type Accessor struct {
	store  Store
	ttl    time.Duration
	prefix string
	mode   FailureMode
	log    zerolog.Logger
	group  singleflight.Group
}

// NewAccessor creates an accessor. The store is owned by the caller.
func NewAccessor(store Store, ttl time.Duration, prefix string, mode FailureMode, log zerolog.Logger) *Accessor {
	if mode == "" {
		mode = BypassOnStoreError
	}
	return &Accessor{
		store:  store,
		ttl:    ttl,
		prefix: prefix,
		mode:   mode,
		log:    log.With().Str("component", "cache").Logger(),
	}
}

// Store returns the underlying store.
func (a *Accessor) Store() Store { return a.store }

// TTL returns the time-to-live applied to every entry.
func (a *Accessor) TTL() time.Duration { return a.ttl }

// Invalidate removes a single key.
func (a *Accessor) Invalidate(ctx context.Context, key string) error {
	return a.store.Delete(ctx, a.prefix+key)
}

// Fetch returns the cached value for key or calls fetch, stores its result with
// the accessor's TTL and returns it. Errors from fetch are never cached.
// Concurrent misses for the same key within this process share one fetch.
func Fetch[T any](ctx context.Context, a *Accessor, key string, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	fullKey := a.prefix + key

	raw, found, err := a.store.Get(ctx, fullKey)
	if err != nil {
		if a.mode == FailOnStoreError {
			return zero, fmt.Errorf("%w: get %s: %v", ErrStoreUnavailable, key, err)
		}
		a.log.Warn().Err(err).Str("key", key).Msg("Cache read failed, fetching uncached")
		return fetch(ctx)
	}
	if found {
		var v T
		if err := msgpack.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		a.log.Warn().Str("key", key).Msg("Undecodable cache entry, refetching")
	}

	ch := a.group.DoChan(fullKey, func() (interface{}, error) {
		// The fetch outlives any single caller; waiters leave on their own ctx.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()

		v, err := fetch(fctx)
		if err != nil {
			return nil, err
		}
		payload, err := msgpack.Marshal(v)
		if err != nil {
			a.log.Warn().Err(err).Str("key", key).Msg("Cannot encode value, not caching")
			return v, nil
		}
		if err := a.store.Set(fctx, fullKey, payload, a.ttl); err != nil {
			if a.mode == FailOnStoreError {
				return nil, fmt.Errorf("%w: set %s: %v", ErrStoreUnavailable, key, err)
			}
			a.log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// Put encodes v and stores it under key with the accessor's TTL.
func Put[T any](ctx context.Context, a *Accessor, key string, v T) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := a.store.Set(ctx, a.prefix+key, payload, a.ttl); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrStoreUnavailable, key, err)
	}
	return nil
}

// Lookup returns the value stored under key without fetching on a miss.
func Lookup[T any](ctx context.Context, a *Accessor, key string) (T, bool, error) {
	var v T
	raw, found, err := a.store.Get(ctx, a.prefix+key)
	if err != nil {
		return v, false, fmt.Errorf("%w: get %s: %v", ErrStoreUnavailable, key, err)
	}
	if !found {
		return v, false, nil
	}
	if err := msgpack.Unmarshal(raw, &v); err != nil {
		return v, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, true, nil
}
