package mysql

const movieColumns = "m.seq, m.id, m.name, m.`desc`, m.title_image, m.image, m.video, m.category, m.language, m.year, m.`time`, m.rate, m.number_of_reviews, m.created_at, m.updated_at"

const insertMovieSQL = "INSERT INTO movies\n  (id, name, `desc`, title_image, image, video, category, language, year, `time`, rate, number_of_reviews, created_at, updated_at)\nVALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"

// Note: `desc` and `time` are reserved; keep them quoted everywhere.
const insertReviewSQL = `
INSERT INTO movie_reviews
  (movie_id, user_id, user_name, user_image, rating, comment, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?)
`

// Deleting children first keeps the FK happy without relying on cascade.
// DELETE rather than TRUNCATE: TRUNCATE commits implicitly.
const deleteReviewsSQL = `DELETE FROM movie_reviews`
const deleteMoviesSQL = `DELETE FROM movies`

// Row lock scoped to one movie; concurrent reviews of other movies proceed.
const lockMovieSQL = `SELECT seq FROM movies WHERE id = ? FOR UPDATE`

const updateAggregateSQL = `
UPDATE movies
SET rate = ?, number_of_reviews = ?, updated_at = ?
WHERE id = ?
`

const selectReviewsPrefix = `
SELECT movie_id, user_id, user_name, user_image, rating, comment, created_at
FROM movie_reviews
WHERE movie_id IN (`

const selectReviewsSuffix = `)
ORDER BY id`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const getMovieSQL = "SELECT " + movieColumns + " FROM movies m WHERE m.id = ?"

// seq is the store's insertion order and the tiebreaker everywhere.
const topRatedSQL = "SELECT " + movieColumns + " FROM movies m ORDER BY m.rate DESC, m.seq ASC"

const sampleSQL = "SELECT " + movieColumns + " FROM movies m ORDER BY RAND() LIMIT ?"

// -----------------------------------------------------------------------------
// FAVOURITES
// -----------------------------------------------------------------------------

// Inserts nothing when the movie does not exist.
const insertFavouriteSQL = `
INSERT INTO user_favourites (user_id, movie_id, created_at)
SELECT ?, m.id, ? FROM movies m WHERE m.id = ?
`

const listFavouritesSQL = "SELECT " + movieColumns + " FROM user_favourites f JOIN movies m ON m.id = f.movie_id WHERE f.user_id = ? ORDER BY f.id"

const clearFavouritesSQL = `DELETE FROM user_favourites WHERE user_id = ?`
