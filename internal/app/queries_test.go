package app_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"netflixo/internal/app"
	"netflixo/internal/domain"
	"netflixo/internal/storage/memory"
)

// ---- fakes ----

type fakeCache struct {
	mu    sync.Mutex
	store map[string]any
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *domain.Movie:
		*d = v.(domain.Movie)
	case *[]domain.Movie:
		*d = v.([]domain.Movie)
	}
	return true, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	return nil
}

func (c *fakeCache) Del(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.store, k)
	}
	return nil
}

func (c *fakeCache) DelPrefix(ctx context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.store {
		if strings.HasPrefix(k, prefix) {
			delete(c.store, k)
		}
	}
	return nil
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.store[key]
	return ok
}

// countingRepo counts TopRated calls on top of the memory store.
type countingRepo struct {
	*memory.Store
	topCalls int32
}

func (r *countingRepo) TopRated(ctx context.Context) ([]domain.Movie, error) {
	atomic.AddInt32(&r.topCalls, 1)
	return r.Store.TopRated(ctx)
}

// blockingRepo holds TopRated until released, honouring its ctx.
type blockingRepo struct {
	*memory.Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (r *blockingRepo) TopRated(ctx context.Context) ([]domain.Movie, error) {
	r.once.Do(func() { close(r.entered) })
	select {
	case <-r.release:
		return r.Store.TopRated(ctx)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// corruptCache reports a hit it cannot decode.
type corruptCache struct {
	*fakeCache
}

func (c corruptCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	return true, errors.New("cache: invalid character 'x' looking for beginning of value")
}

func ptr[T any](v T) *T { return &v }

func seedStore(t *testing.T, n int) (*memory.Store, []domain.Movie) {
	t.Helper()
	s := memory.New()
	in := make([]domain.Movie, 0, n)
	for i := 0; i < n; i++ {
		in = append(in, domain.Movie{
			Name:     fmt.Sprintf("Movie %d", i),
			Category: []string{"Action", "Comedy"}[i%2],
			Language: "English",
			Year:     2010 + i%3,
			Time:     120,
		})
	}
	out, err := s.ReplaceAll(context.Background(), in)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return s, out
}

// ---- tests ----

func TestListMovies_PaginationExample(t *testing.T) {
	store, _ := seedStore(t, 5)
	q := app.NewQueryService(store, nil, time.Minute, 2)

	p, err := q.ListMovies(context.Background(), domain.MovieFilter{}, 3)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(p.Movies) != 1 || p.Page != 3 || p.Pages != 3 || p.TotalMovies != 5 {
		t.Fatalf("unexpected page: len=%d page=%d pages=%d total=%d", len(p.Movies), p.Page, p.Pages, p.TotalMovies)
	}
}

func TestListMovies_ConcatenatedPagesEqualFullResult(t *testing.T) {
	store, _ := seedStore(t, 7)
	q := app.NewQueryService(store, nil, time.Minute, 3)
	ctx := context.Background()

	first, _ := q.ListMovies(ctx, domain.MovieFilter{}, 1)
	seen := map[string]bool{}
	for page := 1; page <= first.Pages; page++ {
		p, err := q.ListMovies(ctx, domain.MovieFilter{}, page)
		if err != nil {
			t.Fatalf("page %d: %v", page, err)
		}
		if len(p.Movies) < 1 || len(p.Movies) > 3 {
			t.Fatalf("page %d has %d movies", page, len(p.Movies))
		}
		for _, m := range p.Movies {
			if seen[m.ID] {
				t.Fatalf("duplicate %s on page %d", m.Name, page)
			}
			seen[m.ID] = true
		}
	}
	if len(seen) != 7 || first.Pages != 3 {
		t.Fatalf("covered %d movies over %d pages", len(seen), first.Pages)
	}
}

func TestListMovies_EmptyAndDefaultPage(t *testing.T) {
	q := app.NewQueryService(memory.New(), nil, time.Minute, 2)
	p, err := q.ListMovies(context.Background(), domain.MovieFilter{}, 0)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if p.Page != 1 || p.Pages != 0 || p.TotalMovies != 0 || p.Movies == nil || len(p.Movies) != 0 {
		t.Fatalf("unexpected empty page: %+v", p)
	}
}

func TestListMovies_FiltersIntersect(t *testing.T) {
	store, all := seedStore(t, 9)
	q := app.NewQueryService(store, nil, time.Minute, 100)
	f := domain.MovieFilter{Category: ptr("Action"), Year: ptr(2010)}

	p, err := q.ListMovies(context.Background(), f, 1)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	want := 0
	for _, m := range all {
		if m.Category == "Action" && m.Year == 2010 {
			want++
		}
	}
	if p.TotalMovies != want || len(p.Movies) != want {
		t.Fatalf("got %d movies, want %d", p.TotalMovies, want)
	}
	for _, m := range p.Movies {
		if m.Category != "Action" || m.Year != 2010 {
			t.Fatalf("movie outside filter: %+v", m)
		}
	}
}

func TestGetMovie_CacheMissThenHit(t *testing.T) {
	store, movies := seedStore(t, 1)
	cache := &fakeCache{}
	q := app.NewQueryService(store, cache, 10*time.Minute, 2)
	id := movies[0].ID

	m, err := q.GetMovie(context.Background(), id)
	if err != nil || m.Name != "Movie 0" {
		t.Fatalf("GetMovie: %+v %v", m, err)
	}
	if !cache.has("movie:" + id) {
		t.Fatalf("expected movie to be cached")
	}

	// Replace the catalog underneath; the cached copy is still served.
	_, _ = store.ReplaceAll(context.Background(), nil)
	m2, err := q.GetMovie(context.Background(), id)
	if err != nil || m2.Name != "Movie 0" {
		t.Fatalf("expected cached movie, got %+v %v", m2, err)
	}
}

func TestGetMovie_NotFound(t *testing.T) {
	q := app.NewQueryService(memory.New(), nil, time.Minute, 2)
	for _, id := range []string{"not-a-uuid", "7c9e6679-7425-40de-944b-e07fc1f90ae7"} {
		if _, err := q.GetMovie(context.Background(), id); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("GetMovie(%q): expected ErrNotFound, got %v", id, err)
		}
	}
}

func TestTopRated_CachedAndCollapsed(t *testing.T) {
	store, _ := seedStore(t, 4)
	repo := &countingRepo{Store: store}
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, time.Minute, 2)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := q.TopRated(context.Background()); err != nil {
				t.Errorf("TopRated: %v", err)
			}
		}()
	}
	wg.Wait()
	calls := atomic.LoadInt32(&repo.topCalls)
	if calls < 1 || calls > 10 {
		t.Fatalf("unexpected store calls: %d", calls)
	}

	_, _ = q.TopRated(context.Background())
	if atomic.LoadInt32(&repo.topCalls) != calls {
		t.Fatalf("expected cached result on later call")
	}
}

func TestRandomSample(t *testing.T) {
	store, _ := seedStore(t, 5)
	q := app.NewQueryService(store, nil, time.Minute, 2)
	ctx := context.Background()

	got, err := q.RandomSample(ctx, 8)
	if err != nil || len(got) != 5 {
		t.Fatalf("RandomSample(8) = %d, %v", len(got), err)
	}
	got, err = q.RandomSample(ctx, 2)
	if err != nil || len(got) != 2 || got[0].ID == got[1].ID {
		t.Fatalf("RandomSample(2) = %+v, %v", got, err)
	}
	if _, err := q.RandomSample(ctx, 0); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for n=0, got %v", err)
	}
}

func TestListMovies_PageBeyondAnyOffset(t *testing.T) {
	store, _ := seedStore(t, 5)
	q := app.NewQueryService(store, nil, time.Minute, 2)

	for _, page := range []int{math.MaxInt/2 + 1, math.MaxInt} {
		p, err := q.ListMovies(context.Background(), domain.MovieFilter{}, page)
		if err != nil {
			t.Fatalf("page %d: %v", page, err)
		}
		if len(p.Movies) != 0 || p.Page != page || p.Pages != 3 || p.TotalMovies != 5 {
			t.Fatalf("page %d: unexpected result %+v", page, p)
		}
	}
}

func TestTopRated_CanceledCallerDoesNotFailOthers(t *testing.T) {
	store, _ := seedStore(t, 3)
	repo := &blockingRepo{Store: store, entered: make(chan struct{}), release: make(chan struct{})}
	q := app.NewQueryService(repo, nil, time.Minute, 2)

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := q.TopRated(first)
		firstErr <- err
	}()
	<-repo.entered

	type result struct {
		ms  []domain.Movie
		err error
	}
	second := make(chan result, 1)
	go func() {
		ms, err := q.TopRated(context.Background())
		second <- result{ms, err}
	}()

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled caller: got %v", err)
	}
	close(repo.release)

	select {
	case r := <-second:
		if r.err != nil || len(r.ms) != 3 {
			t.Fatalf("waiting caller: %d movies, err %v", len(r.ms), r.err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("waiting caller never returned")
	}
}

func TestCache_UndecodableEntryIsAMiss(t *testing.T) {
	store, movies := seedStore(t, 2)
	q := app.NewQueryService(store, corruptCache{&fakeCache{}}, time.Minute, 2)
	ctx := context.Background()

	m, err := q.GetMovie(ctx, movies[0].ID)
	if err != nil || m.ID != movies[0].ID || m.Name != "Movie 0" {
		t.Fatalf("GetMovie: %+v %v", m, err)
	}
	top, err := q.TopRated(ctx)
	if err != nil || len(top) != 2 {
		t.Fatalf("TopRated: %d movies, err %v", len(top), err)
	}
}
