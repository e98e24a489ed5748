package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"econ_dashboard/pkg/core/apperr"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID    string
	Title string
}

// brokenStore returns the configured errors from Get and Set.
type brokenStore struct {
	getErr error
	setErr error
	sets   int32
}

func (s *brokenStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, s.getErr
}

func (s *brokenStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	atomic.AddInt32(&s.sets, 1)
	return s.setErr
}

func (s *brokenStore) Delete(ctx context.Context, key string) error { return nil }
func (s *brokenStore) Ping(ctx context.Context) error               { return s.getErr }
func (s *brokenStore) Close() error                                 { return nil }

func TestFetch_SecondCallWithinTTLHitsCache(t *testing.T) {
	acc := NewAccessor(NewMemoryStore(), time.Hour, "test:", BypassOnStoreError, zerolog.Nop())
	ctx := context.Background()

	var calls int32
	fetch := func(ctx context.Context) ([]record, error) {
		atomic.AddInt32(&calls, 1)
		return []record{{ID: "NY.GDP.MKTP.CD", Title: "GDP (current US$)"}}, nil
	}

	key := Key("worldbank.indicator", "NY.GDP.MKTP.CD")
	first, err := Fetch(ctx, acc, key, fetch)
	require.NoError(t, err)
	second, err := Fetch(ctx, acc, key, fetch)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, first, second)
	assert.Equal(t, "GDP (current US$)", second[0].Title)
}

func TestFetch_ExpiredEntryRefetches(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	acc := NewAccessor(store, time.Minute, "", BypassOnStoreError, zerolog.Nop())

	calls := 0
	fetch := func(ctx context.Context) (string, error) {
		calls++
		return "v", nil
	}

	_, err := Fetch(context.Background(), acc, "k", fetch)
	require.NoError(t, err)
	now = now.Add(2 * time.Minute)
	_, err = Fetch(context.Background(), acc, "k", fetch)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}

func TestFetch_DifferentArgumentsAreDifferentEntries(t *testing.T) {
	acc := NewAccessor(NewMemoryStore(), time.Hour, "", BypassOnStoreError, zerolog.Nop())
	ctx := context.Background()

	a, err := Fetch(ctx, acc, Key("series", "GDP", "USA"), func(ctx context.Context) (string, error) { return "usa", nil })
	require.NoError(t, err)
	b, err := Fetch(ctx, acc, Key("series", "GDP", "CHN"), func(ctx context.Context) (string, error) { return "chn", nil })
	require.NoError(t, err)

	assert.Equal(t, "usa", a)
	assert.Equal(t, "chn", b)
}

func TestFetch_ErrorsAreNotCached(t *testing.T) {
	store := NewMemoryStore()
	acc := NewAccessor(store, time.Hour, "", BypassOnStoreError, zerolog.Nop())
	boom := errors.New("upstream down")

	_, err := Fetch(context.Background(), acc, "k", func(ctx context.Context) (int, error) { return 0, boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.Len())

	v, err := Fetch(context.Background(), acc, "k", func(ctx context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestFetch_BypassModeFetchesUncachedWhenStoreIsDown(t *testing.T) {
	store := &brokenStore{getErr: errors.New("connection refused")}
	acc := NewAccessor(store, time.Hour, "", BypassOnStoreError, zerolog.Nop())

	v, err := Fetch(context.Background(), acc, "k", func(ctx context.Context) (string, error) { return "fresh", nil })
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
	assert.Equal(t, int32(0), atomic.LoadInt32(&store.sets))
}

func TestFetch_FailModeReturnsStoreUnavailable(t *testing.T) {
	store := &brokenStore{getErr: errors.New("connection refused")}
	acc := NewAccessor(store, time.Hour, "", FailOnStoreError, zerolog.Nop())

	called := false
	_, err := Fetch(context.Background(), acc, "k", func(ctx context.Context) (string, error) {
		called = true
		return "fresh", nil
	})
	require.ErrorIs(t, err, ErrStoreUnavailable)
	assert.False(t, called)
}

func TestFetch_FailModeReportsWriteFailure(t *testing.T) {
	store := &brokenStore{setErr: errors.New("READONLY")}
	acc := NewAccessor(store, time.Hour, "", FailOnStoreError, zerolog.Nop())

	_, err := Fetch(context.Background(), acc, "k", func(ctx context.Context) (string, error) { return "v", nil })
	require.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestFetch_ConcurrentMissesShareOneFetch(t *testing.T) {
	acc := NewAccessor(NewMemoryStore(), time.Hour, "", BypassOnStoreError, zerolog.Nop())

	var calls int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "v", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := Fetch(context.Background(), acc, "k", fetch)
			assert.NoError(t, err)
			assert.Equal(t, "v", v)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "worldbank.series:NY.GDP.MKTP.CD:USA", Key("worldbank.series", "NY.GDP.MKTP.CD", "USA"))
	assert.NotEqual(t, Key("f", "a:b", "c"), Key("f", "a", "b:c"))

	long := make([]string, 100)
	for i := range long {
		long[i] = "COUNTRY"
	}
	k := Key("worldbank.series", long...)
	assert.LessOrEqual(t, len(k), maxKeyLen)
	assert.Equal(t, k, Key("worldbank.series", long...))
}

func TestParseFailureMode(t *testing.T) {
	m, err := ParseFailureMode("fail")
	require.NoError(t, err)
	assert.Equal(t, FailOnStoreError, m)

	_, err = ParseFailureMode("retry")
	assert.Error(t, err)
}

func TestPutLookup(t *testing.T) {
	acc := NewAccessor(NewMemoryStore(), time.Hour, "app:", BypassOnStoreError, zerolog.Nop())
	ctx := context.Background()

	_, found, err := Lookup[[]string](ctx, acc, "k")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, Put(ctx, acc, "k", []string{"a", "b"}))
	got, found, err := Lookup[[]string](ctx, acc, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"a", "b"}, got)

	broken := NewAccessor(&brokenStore{getErr: errors.New("down"), setErr: errors.New("down")}, time.Hour, "", BypassOnStoreError, zerolog.Nop())
	assert.ErrorIs(t, Put(ctx, broken, "k", 1), ErrStoreUnavailable)
	_, _, err = Lookup[int](ctx, broken, "k")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestFetch_StoreUnavailableIsUserFacing(t *testing.T) {
	acc := NewAccessor(&brokenStore{getErr: errors.New("connection refused")}, time.Hour, "", FailOnStoreError, zerolog.Nop())

	_, err := Fetch(context.Background(), acc, "k", func(ctx context.Context) (string, error) { return "v", nil })
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))
	assert.Equal(t, "The cache store is unavailable right now.", apperr.UserMessage(err))
}

func TestFetch_CancelledCallerDoesNotFailOthers(t *testing.T) {
	acc := NewAccessor(NewMemoryStore(), time.Hour, "", BypassOnStoreError, zerolog.Nop())

	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	fetch := func(ctx context.Context) (string, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		select {
		case <-release:
			return "v", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := Fetch(ctxA, acc, "k", fetch)
		errA <- err
	}()
	<-started

	type result struct {
		v   string
		err error
	}
	resB := make(chan result, 1)
	go func() {
		v, err := Fetch(context.Background(), acc, "k", fetch)
		resB <- result{v, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(release)
	b := <-resB
	require.NoError(t, b.err)
	assert.Equal(t, "v", b.v)

	cached, found, err := Lookup[string](context.Background(), acc, "k")
	require.NoError(t, err)
	assert.True(t, found, "the shared fetch completed and was stored")
	assert.Equal(t, "v", cached)
}
