package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"concertjournal/internal/models"
)

func TestRebind(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		in      string
		want    string
	}{
		{name: "sqlite untouched", dialect: DialectSQLite, in: "a = ? AND b = ?", want: "a = ? AND b = ?"},
		{name: "postgres numbered", dialect: DialectPostgres, in: "a = ? AND b = ?", want: "a = $1 AND b = $2"},
		{name: "no placeholders", dialect: DialectPostgres, in: "SELECT 1", want: "SELECT 1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := New(nil, tc.dialect)
			if got := s.rebind(tc.in); got != tc.want {
				t.Fatalf("rebind(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestDialectFromDSN(t *testing.T) {
	tests := map[string]Dialect{
		"postgres://user@localhost/journal":   DialectPostgres,
		"postgresql://user@localhost/journal": DialectPostgres,
		"data/ConcertJournal.db3":             DialectSQLite,
		"file::memory:?cache=shared":          DialectSQLite,
	}
	for dsn, want := range tests {
		if got := DialectFromDSN(dsn); got != want {
			t.Fatalf("DialectFromDSN(%q) = %q, want %q", dsn, got, want)
		}
	}
}

func TestConcertsPagePostgresQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db, DialectPostgres)

	mock.ExpectQuery(`(?s)WHERE LOWER\(event_title\) LIKE \$1.*ORDER BY concert_date IS NULL, concert_date DESC, id DESC.*LIMIT \$5 OFFSET \$6`).
		WithArgs("%lon%", "%lon%", "%lon%", "%lon%", 15, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "event_title", "performers", "venue", "country", "city",
			"concert_date", "rating", "notes", "media_paths",
		}).AddRow(int64(3), "Proms", "Orchestra, Choir", "Royal Albert Hall", "UK", "London", "2023-08-01", 5.0, "", ""))

	page, err := s.ConcertsPage(context.Background(), models.PageQuery{Sort: models.SortDateDesc, Search: " Lon "})
	if err != nil {
		t.Fatalf("ConcertsPage: %v", err)
	}
	if len(page) != 1 || page[0].Performers[1] != "Choir" || models.FormatDate(page[0].Date) != "2023-08-01" {
		t.Fatalf("unexpected page %+v", page)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAllConcertsPropagatesErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db, DialectSQLite)
	boom := errors.New("disk I/O error")

	mock.ExpectQuery(regexp.QuoteMeta(`FROM concerts`)).WillReturnError(boom)

	if _, err := s.AllConcerts(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped storage error, got %v", err)
	}
}

func TestDeleteConcertRowsAffected(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db, DialectPostgres)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM concerts WHERE id = $1`)).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.DeleteConcert(context.Background(), 7); !errors.Is(err, ErrConcertNotFound) {
		t.Fatalf("expected ErrConcertNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
