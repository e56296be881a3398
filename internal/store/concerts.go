package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"concertjournal/internal/models"
)

const concertColumns = `id, event_title, performers, venue, country, city,
	concert_date, rating, notes, media_paths`

// SaveConcert inserts the concert when its ID is zero and updates the existing
// row otherwise. The returned concert carries the assigned ID.
func (s *Store) SaveConcert(ctx context.Context, concert *models.Concert) (*models.Concert, error) {
	if concert == nil {
		return nil, fmt.Errorf("%w: nil concert", ErrInvalidConcert)
	}
	if err := validateConcert(*concert); err != nil {
		return nil, err
	}

	args := []any{
		concert.EventTitle,
		models.PerformersCodec.Encode(concert.Performers),
		concert.Venue,
		concert.Country,
		concert.City,
		nullDate(concert.Date),
		concert.Rating,
		concert.Notes,
		models.MediaCodec.Encode(concert.MediaPaths),
	}

	saved := *concert
	if concert.ID == 0 {
		err := s.db.QueryRowContext(ctx, s.rebind(`
			INSERT INTO concerts (event_title, performers, venue, country, city,
			                      concert_date, rating, notes, media_paths)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id
		`), args...).Scan(&saved.ID)
		if err != nil {
			return nil, fmt.Errorf("insert concert: %w", err)
		}
		return &saved, nil
	}

	result, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE concerts
		SET event_title = ?, performers = ?, venue = ?, country = ?, city = ?,
		    concert_date = ?, rating = ?, notes = ?, media_paths = ?
		WHERE id = ?
	`), append(args, concert.ID)...)
	if err != nil {
		return nil, fmt.Errorf("update concert %d: %w", concert.ID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update concert %d: %w", concert.ID, err)
	}
	if rows == 0 {
		return nil, ErrConcertNotFound
	}
	return &saved, nil
}

// DeleteConcert removes a concert.
func (s *Store) DeleteConcert(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM concerts WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete concert %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete concert %d: %w", id, err)
	}
	if rows == 0 {
		return ErrConcertNotFound
	}

	return nil
}

// ConcertByID retrieves a single concert.
func (s *Store) ConcertByID(ctx context.Context, id int64) (*models.Concert, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT `+concertColumns+`
		FROM concerts
		WHERE id = ?
	`), id)

	c, err := scanConcert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConcertNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select concert %d: %w", id, err)
	}
	return &c, nil
}

// AllConcerts returns every concert, most recently added first.
func (s *Store) AllConcerts(ctx context.Context) ([]models.Concert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+concertColumns+`
		FROM concerts
		ORDER BY id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("select concerts: %w", err)
	}
	return collectConcerts(rows)
}

// ConcertsPage returns one page of concerts under the query's sort and search.
func (s *Store) ConcertsPage(ctx context.Context, q models.PageQuery) ([]models.Concert, error) {
	q = q.Normalize()

	where, args := s.searchClause(q.Search)
	query := `
		SELECT ` + concertColumns + `
		FROM concerts` + where + `
		ORDER BY ` + orderClause(q.Sort) + `
		LIMIT ? OFFSET ?`
	args = append(args, q.Limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("select concert page: %w", err)
	}
	return collectConcerts(rows)
}

// CountConcerts counts the concerts matching search.
func (s *Store) CountConcerts(ctx context.Context, search string) (int, error) {
	where, args := s.searchClause(strings.TrimSpace(search))

	var count int
	if err := s.db.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM concerts`+where), args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count concerts: %w", err)
	}
	return count, nil
}

func validateConcert(c models.Concert) error {
	if strings.TrimSpace(c.EventTitle) == "" {
		return fmt.Errorf("%w: event title is required", ErrInvalidConcert)
	}
	if math.IsNaN(c.Rating) || math.IsInf(c.Rating, 0) || c.Rating < 0 {
		return fmt.Errorf("%w: rating must be a finite, non-negative number", ErrInvalidConcert)
	}
	if c.ID < 0 {
		return fmt.Errorf("%w: negative id", ErrInvalidConcert)
	}
	return nil
}

func (s *Store) searchClause(search string) (string, []any) {
	if search == "" {
		return "", nil
	}
	pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
	lower := s.lower()
	clause := fmt.Sprintf(`
		WHERE %[1]s(event_title) LIKE ? ESCAPE '\'
		   OR %[1]s(performers) LIKE ? ESCAPE '\'
		   OR %[1]s(country) LIKE ? ESCAPE '\'
		   OR %[1]s(city) LIKE ? ESCAPE '\'`, lower)
	return clause, []any{pattern, pattern, pattern, pattern}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func orderClause(sort models.SortKey) string {
	switch sort {
	case models.SortDateAsc:
		return "concert_date IS NULL, concert_date ASC, id DESC"
	case models.SortDateDesc:
		return "concert_date IS NULL, concert_date DESC, id DESC"
	case models.SortTitle:
		return "LOWER(event_title) ASC, id DESC"
	default:
		return "id DESC"
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConcert(row rowScanner) (models.Concert, error) {
	var (
		c          models.Concert
		performers string
		mediaPaths string
		date       sql.NullString
	)
	if err := row.Scan(
		&c.ID, &c.EventTitle, &performers, &c.Venue, &c.Country, &c.City,
		&date, &c.Rating, &c.Notes, &mediaPaths,
	); err != nil {
		return models.Concert{}, err
	}

	c.Performers = models.PerformersCodec.Decode(performers)
	c.MediaPaths = models.MediaCodec.Decode(mediaPaths)
	if date.Valid {
		d, err := models.ParseDate(date.String)
		if err != nil {
			return models.Concert{}, fmt.Errorf("concert %d: %w", c.ID, err)
		}
		c.Date = d
	}
	return c, nil
}

func collectConcerts(rows *sql.Rows) ([]models.Concert, error) {
	defer rows.Close()

	concerts := []models.Concert{}
	for rows.Next() {
		c, err := scanConcert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan concert: %w", err)
		}
		concerts = append(concerts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate concerts: %w", err)
	}
	return concerts, nil
}

func nullDate(d *time.Time) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.Format(models.DateLayout), Valid: true}
}
