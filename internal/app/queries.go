package app

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"netflixo/internal/domain"
)

const (
	movieKeyPrefix = "movie:"
	topRatedKey    = "movies:top"
	MaxSampleSize  = 100

	// bounds the shared top-rated query, which outlives any single caller
	sharedQueryTimeout = 10 * time.Second
)

func movieKey(id string) string { return movieKeyPrefix + id }

type QueryService struct {
	repo     domain.MovieRepository
	cache    domain.Cache
	cacheTTL time.Duration
	pageSize int
	top      singleflight.Group
}

// NewQueryService wires the catalog reads. cache may be nil.
func NewQueryService(r domain.MovieRepository, c domain.Cache, ttl time.Duration, pageSize int) *QueryService {
	if pageSize <= 0 {
		pageSize = 2
	}
	return &QueryService{repo: r, cache: c, cacheTTL: ttl, pageSize: pageSize}
}

func (s *QueryService) PageSize() int { return s.pageSize }

// ListMovies returns one page of the filtered catalog, newest first.
// A page below 1 is treated as 1.
func (s *QueryService) ListMovies(ctx context.Context, f domain.MovieFilter, page int) (domain.MoviesPage, error) {
	if page < 1 {
		page = 1
	}
	if page-1 > math.MaxInt/s.pageSize {
		// no store can hold that many rows; only the totals are meaningful
		total, err := s.repo.CountMovies(ctx, f)
		if err != nil {
			return domain.MoviesPage{}, err
		}
		return domain.MoviesPage{
			Movies:      []domain.Movie{},
			Page:        page,
			Pages:       domain.PageCount(total, s.pageSize),
			TotalMovies: total,
		}, nil
	}
	skip := (page - 1) * s.pageSize

	var (
		movies []domain.Movie
		total  int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		movies, err = s.repo.FindMovies(gctx, f, skip, s.pageSize)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.CountMovies(gctx, f)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.MoviesPage{}, err
	}
	if movies == nil {
		movies = []domain.Movie{}
	}
	return domain.MoviesPage{
		Movies:      movies,
		Page:        page,
		Pages:       domain.PageCount(total, s.pageSize),
		TotalMovies: total,
	}, nil
}

func (s *QueryService) GetMovie(ctx context.Context, id string) (domain.Movie, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Movie{}, fmt.Errorf("%w: malformed movie id", domain.ErrNotFound)
	}
	key := movieKey(id)
	var m domain.Movie
	if s.cache != nil {
		// a decode error counts as a miss
		if ok, err := s.cache.Get(ctx, key, &m); ok && err == nil {
			return m, nil
		}
	}
	m, err := s.repo.GetMovie(ctx, id)
	if err != nil {
		return domain.Movie{}, err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, m, int(s.cacheTTL.Seconds()))
	}
	return m, nil
}

// TopRated returns the whole catalog by rate, best first. Concurrent cache
// misses share one store query, detached from any one caller's cancellation;
// each caller still stops waiting when its own ctx is done.
func (s *QueryService) TopRated(ctx context.Context) ([]domain.Movie, error) {
	var out []domain.Movie
	if s.cache != nil {
		if ok, err := s.cache.Get(ctx, topRatedKey, &out); ok && err == nil {
			return out, nil
		}
	}
	ch := s.top.DoChan(topRatedKey, func() (any, error) {
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedQueryTimeout)
		defer cancel()
		ms, err := s.repo.TopRated(qctx)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			_ = s.cache.Set(qctx, topRatedKey, ms, int(s.cacheTTL.Seconds()))
		}
		return ms, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return cloneMovies(res.Val.([]domain.Movie)), nil
	}
}

// RandomSample picks n distinct movies; fewer when the catalog is smaller.
func (s *QueryService) RandomSample(ctx context.Context, n int) ([]domain.Movie, error) {
	if n < 1 || n > MaxSampleSize {
		return nil, fmt.Errorf("%w: sample size must be between 1 and %d", domain.ErrInvalidInput, MaxSampleSize)
	}
	return s.repo.Sample(ctx, n)
}

// cloneMovies copies a result shared between singleflight callers.
func cloneMovies(in []domain.Movie) []domain.Movie {
	out := make([]domain.Movie, len(in))
	for i, m := range in {
		out[i] = m.Clone()
	}
	return out
}
