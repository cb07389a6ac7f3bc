package domain

import (
	"fmt"
	"strings"
	"time"
)

type Movie struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Desc            string    `json:"desc,omitempty"`
	TitleImage      string    `json:"titleImage,omitempty"`
	Image           string    `json:"image,omitempty"`
	Video           string    `json:"video,omitempty"`
	Category        string    `json:"category"`
	Language        string    `json:"language"`
	Year            int       `json:"year"`
	Time            int       `json:"time"` // runtime, minutes
	Rate            float64   `json:"rate"`
	NumberOfReviews int       `json:"numberOfReviews"`
	Reviews         []Review  `json:"reviews"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// HasReviewFrom reports whether userID already reviewed the movie.
func (m *Movie) HasReviewFrom(userID string) bool {
	for _, r := range m.Reviews {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// AddReview appends r and refreshes the derived fields. It does not persist.
func (m *Movie) AddReview(r Review) error {
	if m.HasReviewFrom(r.UserID) {
		return ErrAlreadyReviewed
	}
	m.Reviews = append(m.Reviews, r)
	m.Recompute()
	return nil
}

// Recompute derives NumberOfReviews and Rate from the full review list.
// The mean is always taken over every stored rating, never kept as a running value.
func (m *Movie) Recompute() {
	m.NumberOfReviews = len(m.Reviews)
	m.Rate = MeanRating(m.Reviews)
}

// MeanRating is the arithmetic mean of all ratings, 0 for no reviews.
func MeanRating(rs []Review) float64 {
	if len(rs) == 0 {
		return 0
	}
	sum := 0
	for _, r := range rs {
		sum += r.Rating
	}
	return float64(sum) / float64(len(rs))
}

// Validate checks an imported record before it reaches the store.
func (m *Movie) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: movie name is required", ErrInvalidInput)
	}
	if m.Year < 0 || m.Time < 0 {
		return fmt.Errorf("%w: movie %q has negative year or time", ErrInvalidInput, m.Name)
	}
	seen := make(map[string]struct{}, len(m.Reviews))
	for _, r := range m.Reviews {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("movie %q: %w", m.Name, err)
		}
		if _, dup := seen[r.UserID]; dup {
			return fmt.Errorf("%w: movie %q has more than one review from user %s", ErrInvalidInput, m.Name, r.UserID)
		}
		seen[r.UserID] = struct{}{}
	}
	return nil
}

// Clone returns a deep copy so callers never share the review backing array.
func (m Movie) Clone() Movie {
	if m.Reviews != nil {
		rs := make([]Review, len(m.Reviews))
		copy(rs, m.Reviews)
		m.Reviews = rs
	}
	return m
}
