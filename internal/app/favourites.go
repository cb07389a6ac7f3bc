package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"netflixo/internal/domain"
)

// FavouriteService manages the caller's own liked-movies list.
type FavouriteService struct {
	repo domain.FavouriteRepository
	now  func() time.Time
}

func NewFavouriteService(r domain.FavouriteRepository) *FavouriteService {
	return &FavouriteService{repo: r, now: time.Now}
}

func (s *FavouriteService) List(ctx context.Context, who domain.Identity) ([]domain.Movie, error) {
	if err := checkCaller(who); err != nil {
		return nil, err
	}
	return s.repo.ListFavourites(ctx, who.UserID)
}

// Add likes a movie and returns the updated list. Liking the same movie
// twice fails with domain.ErrAlreadyLiked.
func (s *FavouriteService) Add(ctx context.Context, who domain.Identity, movieID string) ([]domain.Movie, error) {
	if err := checkCaller(who); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(movieID); err != nil {
		return nil, fmt.Errorf("%w: malformed movie id", domain.ErrNotFound)
	}
	if err := s.repo.AddFavourite(ctx, who.UserID, movieID, s.now()); err != nil {
		return nil, err
	}
	log.Debug().Str("user", who.UserID).Str("movie", movieID).Msg("favourite added")
	return s.repo.ListFavourites(ctx, who.UserID)
}

// Clear empties the caller's list.
func (s *FavouriteService) Clear(ctx context.Context, who domain.Identity) error {
	if err := checkCaller(who); err != nil {
		return err
	}
	n, err := s.repo.ClearFavourites(ctx, who.UserID)
	if err != nil {
		return err
	}
	log.Info().Str("user", who.UserID).Int("removed", n).Msg("favourites cleared")
	return nil
}

func checkCaller(who domain.Identity) error {
	if who.UserID == "" {
		return domain.ErrUnauthorized
	}
	return who.Validate()
}
