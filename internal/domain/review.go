package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MinRating        = 1
	MaxRating        = 5
	MaxCommentLength = 2000
	// MaxUserIDLength bounds the token subject to what the stores can hold.
	MaxUserIDLength = 64
)

// Review is embedded in a Movie. UserName and UserImage are a snapshot taken
// at submission time.
type Review struct {
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	UserImage string    `json:"userImage,omitempty"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewReview builds a validated review for the given caller.
func NewReview(who Identity, rating int, comment string, now time.Time) (Review, error) {
	r := Review{
		UserID:    strings.TrimSpace(who.UserID),
		UserName:  who.Name,
		UserImage: who.Image,
		Rating:    rating,
		Comment:   strings.TrimSpace(comment),
		CreatedAt: now.UTC(),
	}
	if err := r.Validate(); err != nil {
		return Review{}, err
	}
	return r, nil
}

func (r Review) Validate() error {
	if err := validUserID(r.UserID); err != nil {
		return err
	}
	if r.Rating < MinRating || r.Rating > MaxRating {
		return fmt.Errorf("%w: rating must be between %d and %d", ErrInvalidInput, MinRating, MaxRating)
	}
	if strings.TrimSpace(r.Comment) == "" {
		return fmt.Errorf("%w: comment is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(r.Comment) > MaxCommentLength {
		return fmt.Errorf("%w: comment exceeds %d characters", ErrInvalidInput, MaxCommentLength)
	}
	return nil
}
