package domain

import (
	"context"
	"strings"
	"time"
)

type MovieRepository interface {
	// Write paths
	ReplaceAll(ctx context.Context, movies []Movie) ([]Movie, error)
	// AddReview must run the duplicate check, append, recompute and write as
	// one unit per movie. It returns ErrNotFound, ErrAlreadyReviewed or
	// ErrConflict for a lost race the caller may retry.
	AddReview(ctx context.Context, movieID string, r Review) (Movie, error)

	// Read paths
	GetMovie(ctx context.Context, id string) (Movie, error)
	FindMovies(ctx context.Context, f MovieFilter, skip, limit int) ([]Movie, error)
	CountMovies(ctx context.Context, f MovieFilter) (int, error)
	TopRated(ctx context.Context) ([]Movie, error)
	Sample(ctx context.Context, n int) ([]Movie, error)
	Ping(ctx context.Context) error
}

// FavouriteRepository keeps each user's liked movies in the order they were added.
type FavouriteRepository interface {
	// AddFavourite returns ErrNotFound for an unknown movie and ErrAlreadyLiked
	// when the movie is already in the user's list.
	AddFavourite(ctx context.Context, userID, movieID string, at time.Time) error
	ListFavourites(ctx context.Context, userID string) ([]Movie, error)
	ClearFavourites(ctx context.Context, userID string) (int, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, keys ...string) error
	DelPrefix(ctx context.Context, prefix string) error
}

// SeedSource fetches raw catalog records for the importer.
type SeedSource interface {
	FetchMovies(ctx context.Context) ([]map[string]any, error)
}

// MovieFilter holds the optional listing constraints; nil or empty means unconstrained.
type MovieFilter struct {
	Category *string
	Time     *int
	Language *string
	Rate     *float64
	Year     *int
	Search   *string // case-insensitive substring of Name
}

// Matches applies every set clause, ANDed.
func (f MovieFilter) Matches(m Movie) bool {
	if f.Category != nil && m.Category != *f.Category {
		return false
	}
	if f.Time != nil && m.Time != *f.Time {
		return false
	}
	if f.Language != nil && m.Language != *f.Language {
		return false
	}
	if f.Rate != nil && m.Rate != *f.Rate {
		return false
	}
	if f.Year != nil && m.Year != *f.Year {
		return false
	}
	if f.Search != nil && !containsFold(m.Name, *f.Search) {
		return false
	}
	return true
}

type MoviesPage struct {
	Movies      []Movie `json:"movies"`
	Page        int     `json:"page"`
	Pages       int     `json:"pages"`
	TotalMovies int     `json:"totalMovies"`
}

// PageCount is ceil(total/size), 0 for an empty result.
func PageCount(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
