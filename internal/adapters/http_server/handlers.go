package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"netflixo/internal/app"
	"netflixo/internal/domain"
)

const (
	maxReviewBody = 16 << 10
	maxImportBody = 16 << 20
)

type Handlers struct {
	Q          *app.QueryService
	R          *app.ReviewService
	I          *app.ImportService
	F          *app.FavouriteService
	Auth       TokenVerifier
	Health     func(ctx context.Context) error
	SampleSize int
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", h.healthz)
	s.mux.Route("/api/movies", func(r chi.Router) {
		r.Get("/", h.listMovies)
		r.Get("/rated/top", h.topRated)
		r.Get("/random/all", h.randomMovies)
		r.Get("/{id}", h.getMovie)
		r.With(Authenticate(h.Auth)).Post("/{id}/reviews", h.createReview)
		r.With(Authenticate(h.Auth), RequireAdmin).Post("/import", h.importMovies)
	})
	s.mux.Route("/api/users/favourites", func(r chi.Router) {
		r.Use(Authenticate(h.Auth))
		r.Get("/", h.listFavourites)
		r.Post("/", h.addFavourite)
		r.Delete("/", h.clearFavourites)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps domain errors onto problem responses. Unknown errors are
// logged and reported as 500 without leaking their text.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if r.Context().Err() != nil {
		// client went away; nothing useful to send
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("request canceled")
		return
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "movie not found")
	case errors.Is(err, domain.ErrInvalidInput):
		writeProblem(w, http.StatusBadRequest, "Invalid Input", err.Error())
	case errors.Is(err, domain.ErrAlreadyReviewed):
		writeProblem(w, http.StatusConflict, "Already Reviewed", "you already reviewed this movie")
	case errors.Is(err, domain.ErrAlreadyLiked):
		writeProblem(w, http.StatusConflict, "Already Liked", "movie is already in your favourites")
	case errors.Is(err, domain.ErrUnauthorized):
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
	case errors.Is(err, domain.ErrForbidden):
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin only")
	case errors.Is(err, domain.ErrConflict):
		w.Header().Set("Retry-After", "1")
		writeProblem(w, http.StatusServiceUnavailable, "Busy", "the movie is being updated, try again")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// a shared or downstream operation gave up while this client waited
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("request aborted downstream")
		w.Header().Set("Retry-After", "1")
		writeProblem(w, http.StatusServiceUnavailable, "Unavailable", "the request could not be completed, try again")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCached writes a 200 JSON body with a weak ETag, or 304 when the
// client already holds it.
func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func (h *Handlers) healthz(w http.ResponseWriter, r *http.Request) {
	if h.Health != nil {
		if err := h.Health(r.Context()); err != nil {
			log.Warn().Err(err).Msg("health check failed")
			writeProblem(w, http.StatusServiceUnavailable, "Unavailable", "storage unreachable")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handlers) listMovies(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := strconv.Atoi(r.URL.Query().Get("pageNumber"))
	if err != nil || page < 1 {
		page = 1
	}
	out, err := h.Q.ListMovies(r.Context(), f, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, out)
}

func (h *Handlers) getMovie(w http.ResponseWriter, r *http.Request) {
	m, err := h.Q.GetMovie(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, m)
}

func (h *Handlers) topRated(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.TopRated(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, out)
}

func (h *Handlers) randomMovies(w http.ResponseWriter, r *http.Request) {
	n := h.SampleSize
	if n <= 0 {
		n = 8
	}
	if s := r.URL.Query().Get("size"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid size", fmt.Sprintf("size must be an integer between 1 and %d", app.MaxSampleSize))
			return
		}
		n = v
	}
	out, err := h.Q.RandomSample(r.Context(), n)
	if err != nil {
		writeError(w, r, err)
		return
	}
	// samples differ on every call, so no ETag
	writeJSON(w, http.StatusOK, out)
}

type reviewRequest struct {
	Rating  json.Number `json:"rating"`
	Comment string      `json:"comment"`
}

func (h *Handlers) createReview(w http.ResponseWriter, r *http.Request) {
	who, ok := domain.IdentityFrom(r.Context())
	if !ok {
		writeError(w, r, domain.ErrUnauthorized)
		return
	}
	var req reviewRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxReviewBody))
	if err := dec.Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "expected {\"rating\": 1-5, \"comment\": \"...\"}")
		return
	}
	rating, err := strconv.Atoi(req.Rating.String())
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid rating", "rating must be an integer between 1 and 5")
		return
	}
	if err := h.R.SubmitReview(r.Context(), chi.URLParam(r, "id"), who, rating, req.Comment); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Review added"})
}

func (h *Handlers) importMovies(w http.ResponseWriter, r *http.Request) {
	who, _ := domain.IdentityFrom(r.Context())
	var raw []map[string]any
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxImportBody))
	if err := dec.Decode(&raw); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "expected a JSON array of movies")
		return
	}
	movies, err := app.MapSeedMovies(raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.I.ImportMovies(r.Context(), who, movies)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *Handlers) listFavourites(w http.ResponseWriter, r *http.Request) {
	who, _ := domain.IdentityFrom(r.Context())
	out, err := h.F.List(r.Context(), who)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type favouriteRequest struct {
	MovieID string `json:"movieId"`
}

func (h *Handlers) addFavourite(w http.ResponseWriter, r *http.Request) {
	who, _ := domain.IdentityFrom(r.Context())
	var req favouriteRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxReviewBody))
	if err := dec.Decode(&req); err != nil || strings.TrimSpace(req.MovieID) == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "expected {\"movieId\": \"...\"}")
		return
	}
	out, err := h.F.Add(r.Context(), who, strings.TrimSpace(req.MovieID))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) clearFavourites(w http.ResponseWriter, r *http.Request) {
	who, _ := domain.IdentityFrom(r.Context())
	if err := h.F.Clear(r.Context(), who); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Your favorite movies deleted successfully"})
}

// parseFilter reads the optional listing filters. Empty values are ignored;
// numeric filters that do not parse are rejected.
func parseFilter(r *http.Request) (domain.MovieFilter, error) {
	q := r.URL.Query()
	var f domain.MovieFilter
	str := func(key string) *string {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			return &v
		}
		return nil
	}
	f.Category = str("category")
	f.Language = str("language")
	f.Search = str("search")

	for _, p := range []struct {
		key string
		dst **int
	}{{"time", &f.Time}, {"year", &f.Year}} {
		s := strings.TrimSpace(q.Get(p.key))
		if s == "" {
			continue
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return f, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, p.key)
		}
		*p.dst = &v
	}
	if s := strings.TrimSpace(q.Get("rate")); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return f, fmt.Errorf("%w: rate must be a number", domain.ErrInvalidInput)
		}
		f.Rate = &v
	}
	return f, nil
}
