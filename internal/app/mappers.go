package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"netflixo/internal/domain"
)

/********** alias registries (single source of truth) **********/

var movieAliases = map[string][]string{
	"name":       {"name", "title", "original_title"},
	"desc":       {"desc", "description", "overview", "plot"},
	"titleImage": {"titleImage", "title_image", "poster", "poster_path"},
	"image":      {"image", "backdrop", "backdrop_path", "cover"},
	"video":      {"video", "trailer", "trailer_url"},
	"category":   {"category", "genre", "genres.0"},
	"language":   {"language", "lang", "original_language"},
	"year":       {"year", "releaseYear", "release_year"},
	"time":       {"time", "runtime", "duration"},
	"rate":       {"rate", "rating", "vote_average"},
	"count":      {"numberOfReviews", "number_of_reviews", "vote_count"},
	"reviews":    {"reviews"},
}

var reviewAliases = map[string][]string{
	"userId":    {"userId", "user_id", "user", "user._id", "user.id"},
	"userName":  {"userName", "user_name", "author", "user.fullName", "user.name"},
	"userImage": {"userImage", "user_image", "avatar", "user.image"},
	"rating":    {"rating", "rate", "score"},
	"comment":   {"comment", "text", "content", "body"},
	"createdAt": {"createdAt", "created_at", "date"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps; numeric parts index slices.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		switch obj := cur.(type) {
		case map[string]any:
			v, ok := obj[part]
			if !ok {
				return nil
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(obj) {
				return nil
			}
			cur = obj[i]
		default:
			return nil
		}
	}
	return cur
}

// lookupStr returns string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// firstNonEmptyAlias: first non-empty string for a named alias set.
func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) string {
	for _, p := range aliases[key] {
		if s := lookupStr(m, p); s != "" {
			return s
		}
	}
	return ""
}

// getFloatFlexible: number from several paths (float64/int/string like "8,0").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

// firstIntFlexible: int from several paths (float64/int/string, "2h 10m" style not supported).
func firstIntFlexible(m map[string]any, paths ...string) *int {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			x := int(v)
			return &x
		case int:
			x := v
			return &x
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			if n, err := strconv.Atoi(s); err == nil {
				return &n
			}
		}
	}
	return nil
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

/********** seed records -> domain **********/

// MapSeedMovies turns loosely shaped catalog records into movies ready for
// ImportMovies. Derived fields in the input are ignored; the store recomputes
// them from the reviews.
func MapSeedMovies(raw []map[string]any) ([]domain.Movie, error) {
	out := make([]domain.Movie, 0, len(raw))
	for i, rec := range raw {
		m, err := mapMovie(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, m)
	}
	return out, nil
}

func mapMovie(rec map[string]any) (domain.Movie, error) {
	m := domain.Movie{
		Name:       firstNonEmptyAlias(rec, movieAliases, "name"),
		Desc:       firstNonEmptyAlias(rec, movieAliases, "desc"),
		TitleImage: firstNonEmptyAlias(rec, movieAliases, "titleImage"),
		Image:      firstNonEmptyAlias(rec, movieAliases, "image"),
		Video:      firstNonEmptyAlias(rec, movieAliases, "video"),
		Category:   firstNonEmptyAlias(rec, movieAliases, "category"),
		Language:   firstNonEmptyAlias(rec, movieAliases, "language"),
		Year:       intOr(firstIntFlexible(rec, movieAliases["year"]...), 0),
		Time:       intOr(firstIntFlexible(rec, movieAliases["time"]...), 0),
	}
	if m.Name == "" {
		return domain.Movie{}, fmt.Errorf("%w: record has no name", domain.ErrInvalidInput)
	}

	for _, p := range movieAliases["reviews"] {
		list, ok := lookupAny(rec, p).([]any)
		if !ok {
			continue
		}
		for _, it := range list {
			obj, ok := it.(map[string]any)
			if !ok {
				continue
			}
			m.Reviews = append(m.Reviews, mapReview(obj))
		}
		break
	}

	// Derived values in the source are not trusted; warn when they disagree.
	m.Recompute()
	if r := getFloatFlexible(rec, movieAliases["rate"]...); r != nil && *r != m.Rate {
		log.Warn().Str("movie", m.Name).Float64("source_rate", *r).Float64("derived_rate", m.Rate).
			Msg("seed rate ignored; derived from reviews")
	}
	if n := firstIntFlexible(rec, movieAliases["count"]...); n != nil && *n != m.NumberOfReviews {
		log.Warn().Str("movie", m.Name).Int("source_count", *n).Int("derived_count", m.NumberOfReviews).
			Msg("seed review count ignored; derived from reviews")
	}
	return m, nil
}

func mapReview(obj map[string]any) domain.Review {
	r := domain.Review{
		UserID:    firstNonEmptyAlias(obj, reviewAliases, "userId"),
		UserName:  firstNonEmptyAlias(obj, reviewAliases, "userName"),
		UserImage: firstNonEmptyAlias(obj, reviewAliases, "userImage"),
		Rating:    intOr(firstIntFlexible(obj, reviewAliases["rating"]...), 0),
		Comment:   firstNonEmptyAlias(obj, reviewAliases, "comment"),
	}
	if ts := firstNonEmptyAlias(obj, reviewAliases, "createdAt"); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			r.CreatedAt = t.UTC()
		}
	}
	return r
}
