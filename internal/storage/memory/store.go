package memory

import (
	"context"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"netflixo/internal/domain"
)

type entry struct {
	mu    sync.Mutex // guards movie
	seq   int64
	movie domain.Movie
}

// Store keeps the catalog in process. The collection lock only protects the
// index; review writes lock the single movie they touch.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]*entry
	ordered []*entry // insertion order
	favs    map[string][]string
	nextSeq int64
	now     func() time.Time
}

func New() *Store {
	return &Store{byID: map[string]*entry{}, favs: map[string][]string{}, now: time.Now}
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) ReplaceAll(ctx context.Context, movies []domain.Movie) ([]domain.Movie, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	byID := make(map[string]*entry, len(movies))
	ordered := make([]*entry, 0, len(movies))
	out := make([]domain.Movie, 0, len(movies))

	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.nextSeq
	for _, m := range movies {
		m = m.Clone()
		m.ID = uuid.NewString()
		m.CreatedAt, m.UpdatedAt = now, now
		m.Recompute()
		seq++
		e := &entry{seq: seq, movie: m}
		byID[m.ID] = e
		ordered = append(ordered, e)
		out = append(out, m.Clone())
	}
	s.byID, s.ordered, s.nextSeq = byID, ordered, seq
	// every id changed, so no favourite can still point at a movie
	s.favs = map[string][]string{}
	return out, nil
}

func (s *Store) AddReview(ctx context.Context, movieID string, r domain.Review) (domain.Movie, error) {
	if err := ctx.Err(); err != nil {
		return domain.Movie{}, err
	}
	s.mu.RLock()
	e, ok := s.byID[movieID]
	s.mu.RUnlock()
	if !ok {
		return domain.Movie{}, domain.ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	next := e.movie.Clone()
	if err := next.AddReview(r); err != nil {
		return domain.Movie{}, err
	}
	next.UpdatedAt = s.now().UTC()
	e.movie = next
	return next.Clone(), nil
}

func (s *Store) GetMovie(ctx context.Context, id string) (domain.Movie, error) {
	if err := ctx.Err(); err != nil {
		return domain.Movie{}, err
	}
	s.mu.RLock()
	e, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return domain.Movie{}, domain.ErrNotFound
	}
	return e.snapshot(), nil
}

func (s *Store) FindMovies(ctx context.Context, f domain.MovieFilter, skip, limit int) ([]domain.Movie, error) {
	matched, err := s.matching(ctx, f)
	if err != nil {
		return nil, err
	}
	// newest first; insertion order breaks ties
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.movie.CreatedAt.Equal(b.movie.CreatedAt) {
			return a.movie.CreatedAt.After(b.movie.CreatedAt)
		}
		return a.seq > b.seq
	})
	if skip < 0 {
		skip = 0
	}
	if skip >= len(matched) {
		return []domain.Movie{}, nil
	}
	end := len(matched)
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return movies(matched[skip:end]), nil
}

func (s *Store) CountMovies(ctx context.Context, f domain.MovieFilter) (int, error) {
	matched, err := s.matching(ctx, f)
	return len(matched), err
}

func (s *Store) TopRated(ctx context.Context) ([]domain.Movie, error) {
	all, err := s.matching(ctx, domain.MovieFilter{})
	if err != nil {
		return nil, err
	}
	out := movies(all)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rate > out[j].Rate })
	return out, nil
}

func (s *Store) Sample(ctx context.Context, n int) ([]domain.Movie, error) {
	all, err := s.matching(ctx, domain.MovieFilter{})
	if err != nil {
		return nil, err
	}
	if n > len(all) {
		n = len(all)
	}
	out := make([]domain.Movie, 0, n)
	for _, i := range rand.Perm(len(all))[:n] {
		out = append(out, all[i].movie)
	}
	return out, nil
}

func (s *Store) AddFavourite(ctx context.Context, userID, movieID string, _ time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[movieID]; !ok {
		return domain.ErrNotFound
	}
	for _, id := range s.favs[userID] {
		if id == movieID {
			return domain.ErrAlreadyLiked
		}
	}
	s.favs[userID] = append(s.favs[userID], movieID)
	return nil
}

func (s *Store) ListFavourites(ctx context.Context, userID string) ([]domain.Movie, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	es := make([]*entry, 0, len(s.favs[userID]))
	for _, id := range s.favs[userID] {
		if e, ok := s.byID[id]; ok {
			es = append(es, e)
		}
	}
	s.mu.RUnlock()

	out := make([]domain.Movie, 0, len(es))
	for _, e := range es {
		out = append(out, e.snapshot())
	}
	return out, nil
}

func (s *Store) ClearFavourites(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.favs[userID])
	delete(s.favs, userID)
	return n, nil
}

// matching returns snapshots of the matching entries in insertion order.
func (s *Store) matching(ctx context.Context, f domain.MovieFilter) ([]*entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	all := make([]*entry, len(s.ordered))
	copy(all, s.ordered)
	s.mu.RUnlock()

	out := make([]*entry, 0, len(all))
	for _, e := range all {
		snap := &entry{seq: e.seq, movie: e.snapshot()}
		if f.Matches(snap.movie) {
			out = append(out, snap)
		}
	}
	return out, nil
}

func (e *entry) snapshot() domain.Movie {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.movie.Clone()
}

func movies(es []*entry) []domain.Movie {
	out := make([]domain.Movie, 0, len(es))
	for _, e := range es {
		out = append(out, e.movie)
	}
	return out
}
