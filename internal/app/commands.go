package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"netflixo/internal/adapters/observability"
	"netflixo/internal/domain"
	"netflixo/internal/shared"
)

const reviewBackoffBase = 20 * time.Millisecond

type ReviewService struct {
	repo        domain.MovieRepository
	cache       domain.Cache
	maxAttempts int
	now         func() time.Time
	backoff     func(int) time.Duration
}

// NewReviewService wires review submission. cache may be nil.
func NewReviewService(r domain.MovieRepository, c domain.Cache, maxAttempts int) *ReviewService {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &ReviewService{repo: r, cache: c, maxAttempts: maxAttempts, now: time.Now, backoff: reviewBackoff}
}

// SubmitReview records the caller's single review for a movie and refreshes
// its aggregate rating. A second submission by the same user fails with
// domain.ErrAlreadyReviewed, whatever the interleaving.
func (s *ReviewService) SubmitReview(ctx context.Context, movieID string, who domain.Identity, rating int, comment string) (err error) {
	defer func() { observability.ObserveReview(reviewResult(err)) }()

	if who.UserID == "" {
		return domain.ErrUnauthorized
	}
	if _, perr := uuid.Parse(movieID); perr != nil {
		return fmt.Errorf("%w: malformed movie id", domain.ErrNotFound)
	}
	rv, err := domain.NewReview(who, rating, comment, s.now())
	if err != nil {
		return err
	}

	var m domain.Movie
	for attempt := 0; ; attempt++ {
		m, err = s.repo.AddReview(ctx, movieID, rv)
		if !errors.Is(err, domain.ErrConflict) || attempt+1 >= s.maxAttempts {
			break
		}
		observability.ObserveReviewRetry()
		log.Debug().Str("movie", movieID).Int("attempt", attempt+1).Err(err).Msg("review write conflict, retrying")
		if !shared.SleepCtx(ctx, s.backoff(attempt)) {
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}

	if s.cache != nil {
		if cerr := s.cache.Del(ctx, movieKey(movieID), topRatedKey); cerr != nil {
			log.Warn().Err(cerr).Str("movie", movieID).Msg("cache invalidation failed")
		}
	}
	log.Info().
		Str("movie", movieID).
		Str("user", who.UserID).
		Int("rating", rating).
		Float64("rate", m.Rate).
		Int("reviews", m.NumberOfReviews).
		Msg("review added")
	return nil
}

func reviewBackoff(i int) time.Duration { return shared.Backoff(reviewBackoffBase, i) }

func reviewResult(err error) string {
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, domain.ErrAlreadyReviewed):
		return "already_reviewed"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	}
	return "error"
}

type ImportService struct {
	repo  domain.MovieRepository
	cache domain.Cache
}

func NewImportService(r domain.MovieRepository, c domain.Cache) *ImportService {
	return &ImportService{repo: r, cache: c}
}

// ImportMovies replaces the whole catalog. Only admins may call it.
func (s *ImportService) ImportMovies(ctx context.Context, who domain.Identity, movies []domain.Movie) (out []domain.Movie, err error) {
	defer func() {
		res := "ok"
		if err != nil {
			res = "error"
		}
		observability.ObserveImport(res)
	}()

	if who.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	if !who.Admin {
		return nil, fmt.Errorf("%w: importing movies requires admin", domain.ErrForbidden)
	}
	for i := range movies {
		if err := movies[i].Validate(); err != nil {
			return nil, fmt.Errorf("movie %d: %w", i, err)
		}
	}

	out, err = s.repo.ReplaceAll(ctx, movies)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if cerr := s.cache.DelPrefix(ctx, movieKeyPrefix); cerr != nil {
			log.Warn().Err(cerr).Msg("cache invalidation failed")
		}
		if cerr := s.cache.Del(ctx, topRatedKey); cerr != nil {
			log.Warn().Err(cerr).Msg("cache invalidation failed")
		}
	}
	log.Info().Str("by", who.UserID).Int("movies", len(out)).Msg("catalog imported")
	return out, nil
}
