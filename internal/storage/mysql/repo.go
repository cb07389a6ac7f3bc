package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"netflixo/internal/domain"
)

const (
	errDupEntry        = 1062
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
	errNoReferencedRow = 1452
)

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Repo struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Repo { return &Repo{db: db, now: time.Now} }

func (r *Repo) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

func (r *Repo) ReplaceAll(ctx context.Context, movies []domain.Movie) (out []domain.Movie, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, deleteReviewsSQL); err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx, deleteMoviesSQL); err != nil {
		return nil, err
	}

	now := r.now().UTC()
	out = make([]domain.Movie, 0, len(movies))
	for _, m := range movies {
		m = m.Clone()
		m.ID = uuid.NewString()
		m.CreatedAt, m.UpdatedAt = now, now
		m.Recompute()
		if _, err = tx.ExecContext(ctx, insertMovieSQL,
			m.ID, m.Name, valStr(m.Desc), valStr(m.TitleImage), valStr(m.Image), valStr(m.Video),
			m.Category, m.Language, m.Year, m.Time, m.Rate, m.NumberOfReviews, m.CreatedAt, m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("insert movie %q: %w", m.Name, err)
		}
		for i := range m.Reviews {
			rv := &m.Reviews[i]
			if rv.CreatedAt.IsZero() {
				rv.CreatedAt = now
			}
			if err = insertReview(ctx, tx, m.ID, *rv); err != nil {
				return nil, fmt.Errorf("insert review for %q: %w", m.Name, err)
			}
		}
		out = append(out, m)
	}
	if err = tx.Commit(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func (r *Repo) AddReview(ctx context.Context, movieID string, rv domain.Review) (m domain.Movie, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Movie{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var seq int64
	if err = tx.QueryRowContext(ctx, lockMovieSQL, movieID).Scan(&seq); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Movie{}, domain.ErrNotFound
		}
		return domain.Movie{}, classify(err)
	}

	// UNIQUE(movie_id, user_id) is the last word on duplicates.
	if err = insertReview(ctx, tx, movieID, rv); err != nil {
		return domain.Movie{}, classify(err)
	}

	m, err = getMovie(ctx, tx, movieID)
	if err != nil {
		return domain.Movie{}, classify(err)
	}
	m.Recompute()
	m.UpdatedAt = r.now().UTC()
	if _, err = tx.ExecContext(ctx, updateAggregateSQL, m.Rate, m.NumberOfReviews, m.UpdatedAt, movieID); err != nil {
		return domain.Movie{}, classify(err)
	}
	if err = tx.Commit(); err != nil {
		return domain.Movie{}, classify(err)
	}
	return m, nil
}

func (r *Repo) GetMovie(ctx context.Context, id string) (domain.Movie, error) {
	return getMovie(ctx, r.db, id)
}

func (r *Repo) FindMovies(ctx context.Context, f domain.MovieFilter, skip, limit int) ([]domain.Movie, error) {
	where, args := buildWhere(f)
	q := strings.Builder{}
	q.WriteString("SELECT ")
	q.WriteString(movieColumns)
	q.WriteString(" FROM movies m")
	q.WriteString(where)
	q.WriteString(" ORDER BY m.created_at DESC, m.seq DESC")
	if limit > 0 {
		q.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, limit, max(skip, 0))
	}
	return r.listMovies(ctx, q.String(), args...)
}

func (r *Repo) CountMovies(ctx context.Context, f domain.MovieFilter) (int, error) {
	where, args := buildWhere(f)
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM movies m"+where, args...).Scan(&n)
	return n, err
}

func (r *Repo) TopRated(ctx context.Context) ([]domain.Movie, error) {
	return r.listMovies(ctx, topRatedSQL)
}

func (r *Repo) Sample(ctx context.Context, n int) ([]domain.Movie, error) {
	if n <= 0 {
		return []domain.Movie{}, nil
	}
	return r.listMovies(ctx, sampleSQL, n)
}

func (r *Repo) AddFavourite(ctx context.Context, userID, movieID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, insertFavouriteSQL, userID, at.UTC(), movieID)
	if err != nil {
		var me *mysqldrv.MySQLError
		if errors.As(err, &me) {
			switch me.Number {
			case errDupEntry:
				return domain.ErrAlreadyLiked
			case errNoReferencedRow:
				// movie deleted between the SELECT and the FK check
				return domain.ErrNotFound
			}
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) ListFavourites(ctx context.Context, userID string) ([]domain.Movie, error) {
	return r.listMovies(ctx, listFavouritesSQL, userID)
}

func (r *Repo) ClearFavourites(ctx context.Context, userID string) (int, error) {
	res, err := r.db.ExecContext(ctx, clearFavouritesSQL, userID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// buildWhere ANDs every set filter clause.
func buildWhere(f domain.MovieFilter) (string, []any) {
	where := make([]string, 0, 6)
	args := make([]any, 0, 6)
	if f.Category != nil {
		where = append(where, "m.category = ?")
		args = append(args, *f.Category)
	}
	if f.Time != nil {
		where = append(where, "m.`time` = ?")
		args = append(args, *f.Time)
	}
	if f.Language != nil {
		where = append(where, "m.language = ?")
		args = append(args, *f.Language)
	}
	if f.Rate != nil {
		where = append(where, "m.rate = ?")
		args = append(args, *f.Rate)
	}
	if f.Year != nil {
		where = append(where, "m.year = ?")
		args = append(args, *f.Year)
	}
	if f.Search != nil {
		where = append(where, "LOWER(m.name) LIKE ?")
		args = append(args, "%"+escapeLike(strings.ToLower(*f.Search))+"%")
	}
	if len(where) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *Repo) listMovies(ctx context.Context, query string, args ...any) ([]domain.Movie, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Movie{}
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := attachReviews(ctx, r.db, out); err != nil {
		return nil, err
	}
	return out, nil
}

func getMovie(ctx context.Context, q queryer, id string) (domain.Movie, error) {
	m, err := scanMovie(q.QueryRowContext(ctx, getMovieSQL, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Movie{}, domain.ErrNotFound
		}
		return domain.Movie{}, err
	}
	one := []domain.Movie{m}
	if err := attachReviews(ctx, q, one); err != nil {
		return domain.Movie{}, err
	}
	return one[0], nil
}

// attachReviews loads the reviews of every movie in ms with one IN query.
func attachReviews(ctx context.Context, q queryer, ms []domain.Movie) error {
	if len(ms) == 0 {
		return nil
	}
	idx := make(map[string]int, len(ms))
	marks := make([]string, 0, len(ms))
	args := make([]any, 0, len(ms))
	for i := range ms {
		ms[i].Reviews = []domain.Review{}
		idx[ms[i].ID] = i
		marks = append(marks, "?")
		args = append(args, ms[i].ID)
	}

	rows, err := q.QueryContext(ctx, selectReviewsPrefix+strings.Join(marks, ",")+selectReviewsSuffix, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			movieID string
			rv      domain.Review
			image   sql.NullString
		)
		if err := rows.Scan(&movieID, &rv.UserID, &rv.UserName, &image, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return err
		}
		rv.UserImage = image.String
		if i, ok := idx[movieID]; ok {
			ms[i].Reviews = append(ms[i].Reviews, rv)
		}
	}
	return rows.Err()
}

type scanner interface{ Scan(dest ...any) error }

func scanMovie(row scanner) (domain.Movie, error) {
	var (
		m                        domain.Movie
		seq                      int64
		desc, titleImg, img, vid sql.NullString
	)
	if err := row.Scan(
		&seq, &m.ID, &m.Name,
		&desc, &titleImg, &img, &vid,
		&m.Category, &m.Language, &m.Year, &m.Time,
		&m.Rate, &m.NumberOfReviews,
		&m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return domain.Movie{}, err
	}
	m.Desc, m.TitleImage, m.Image, m.Video = desc.String, titleImg.String, img.String, vid.String
	return m, nil
}

func insertReview(ctx context.Context, tx *sql.Tx, movieID string, rv domain.Review) error {
	_, err := tx.ExecContext(ctx, insertReviewSQL,
		movieID, rv.UserID, rv.UserName, valStr(rv.UserImage), rv.Rating, rv.Comment, rv.CreatedAt.UTC())
	return err
}

// classify maps driver errors onto domain errors; anything else passes through.
func classify(err error) error {
	var me *mysqldrv.MySQLError
	if !errors.As(err, &me) {
		return err
	}
	switch me.Number {
	case errDupEntry:
		return domain.ErrAlreadyReviewed
	case errDeadlock, errLockWaitTimeout:
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	}
	return err
}
