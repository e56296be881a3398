package stats

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"concertjournal/internal/models"
)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

type staticSource struct {
	concerts []models.Concert
	err      error
}

func (s staticSource) All(context.Context) ([]models.Concert, error) {
	return s.concerts, s.err
}

type stubImages struct {
	calls []string
	url   string
}

func (s *stubImages) ArtistImage(_ context.Context, name string) string {
	s.calls = append(s.calls, name)
	return s.url
}

func TestPerformerCounts(t *testing.T) {
	concerts := []models.Concert{
		{ID: 1, Performers: []string{"A", "B"}},
		{ID: 2, Performers: []string{"B", "C"}},
	}

	got := PerformerCounts(concerts)
	want := []PerformerCount{{"B", 2}, {"A", 1}, {"C", 1}}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestAverageRatingIgnoresUnrated(t *testing.T) {
	concerts := []models.Concert{{Rating: 0}, {Rating: 3}, {Rating: 5}}
	if got := AverageRating(concerts); got != 4.0 {
		t.Fatalf("AverageRating = %v, want 4", got)
	}
	if got := AverageRating([]models.Concert{{Rating: 0}}); got != 0 {
		t.Fatalf("AverageRating with nothing rated = %v, want 0", got)
	}
}

func TestCountryStats(t *testing.T) {
	concerts := []models.Concert{
		{Country: "UK", Performers: []string{"A", "B"}},
		{Country: " UK ", Performers: []string{"B"}},
		{Country: "", Performers: []string{"C"}},
		{Country: "France"},
	}

	got := CountryStats(concerts)
	want := []CountryStat{
		{Country: "UK", Concerts: 2, Performers: 2},
		{Country: "France", Concerts: 1, Performers: 0},
		{Country: UndefinedCountry, Concerts: 1, Performers: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: got %+v want %+v", i, got[i], want[i])
		}
	}
}

func TestYearStatsAndTopYears(t *testing.T) {
	concerts := []models.Concert{
		{ID: 1, Date: day(2019, 5, 1), Performers: []string{"A"}},
		{ID: 2, Date: day(2019, 6, 1), Performers: []string{"A"}},
		{ID: 3, Date: day(2021, 1, 1), Performers: []string{"B", "C"}},
		{ID: 4, Date: day(2021, 2, 1), Performers: []string{"D"}},
		{ID: 5, Performers: []string{"Z"}},
	}

	d := Summarize(concerts)

	if len(d.Years) != 2 || d.Years[0].Year != 2021 || d.Years[1].Year != 2019 {
		t.Fatalf("unexpected years %+v", d.Years)
	}
	if d.MostConcertsYear == nil || d.MostConcertsYear.Year != 2019 {
		t.Fatalf("tie on concert count should pick the earlier year, got %+v", d.MostConcertsYear)
	}
	if d.MostPerformersYear == nil || d.MostPerformersYear.Year != 2021 || d.MostPerformersYear.Performers != 3 {
		t.Fatalf("unexpected most-performers year %+v", d.MostPerformersYear)
	}
	if d.LatestConcert == nil || d.LatestConcert.ID != 4 {
		t.Fatalf("unexpected latest concert %+v", d.LatestConcert)
	}
	if d.TotalConcerts != 5 || d.TotalPerformers != 5 {
		t.Fatalf("unexpected totals %d/%d", d.TotalConcerts, d.TotalPerformers)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	d := Summarize(nil)
	if d.LatestConcert != nil || d.MostConcertsYear != nil || d.AverageRating != 0 || d.TotalConcerts != 0 {
		t.Fatalf("unexpected dashboard for no concerts %+v", d)
	}
}

func TestNewCountryChart(t *testing.T) {
	chart := NewCountryChart([]CountryStat{{Country: "UK", Concerts: 5}, {Country: "France", Concerts: 2}})
	if chart.Labels[0] != "France" || chart.Values[1] != 5 || chart.Height != 120 {
		t.Fatalf("unexpected chart %+v", chart)
	}
}

func TestPerformersPaging(t *testing.T) {
	var concerts []models.Concert
	for i := 0; i < 25; i++ {
		performers := []string{fmt.Sprintf("Band %02d", i)}
		if i%5 == 0 {
			performers = append(performers, "Headliner")
		}
		concerts = append(concerts, models.Concert{ID: int64(i + 1), Performers: performers})
	}
	svc := New(staticSource{concerts: concerts}, nil)
	ctx := context.Background()

	first, err := svc.Performers(ctx, PerformerQuery{})
	if err != nil {
		t.Fatalf("Performers: %v", err)
	}
	if first.Total != 26 || len(first.Performers) != PerformerPageSize || !first.HasMore {
		t.Fatalf("unexpected first page %+v", first)
	}
	if first.Performers[0].Name != "Headliner" {
		t.Fatalf("expected most-seen performer first, got %+v", first.Performers[0])
	}

	second, _ := svc.Performers(ctx, PerformerQuery{Page: 1})
	if len(second.Performers) != 6 || second.HasMore {
		t.Fatalf("unexpected second page %+v", second)
	}

	least, _ := svc.Performers(ctx, PerformerQuery{Sort: "least", Search: "head"})
	if least.Total != 1 || least.Performers[0].Count != 5 {
		t.Fatalf("unexpected filtered page %+v", least)
	}

	beyond, _ := svc.Performers(ctx, PerformerQuery{Page: 9})
	if len(beyond.Performers) != 0 || beyond.HasMore {
		t.Fatalf("expected empty page past the end, got %+v", beyond)
	}
}

func TestPerformerDetails(t *testing.T) {
	concerts := []models.Concert{
		{ID: 1, Performers: []string{"Muse"}, Country: "UK", Date: day(2010, 3, 1)},
		{ID: 2, Performers: []string{"Blur", "MUSE"}, Country: "France", Date: day(2018, 7, 9)},
		{ID: 3, Performers: []string{"muse"}, Country: "UK"},
		{ID: 4, Performers: []string{"Blur"}, Country: "Spain", Date: day(2020, 1, 1)},
	}
	images := &stubImages{url: "https://img.example/muse.jpg"}
	svc := New(staticSource{concerts: concerts}, images)

	d, err := svc.PerformerDetails(context.Background(), " Muse ")
	if err != nil {
		t.Fatalf("PerformerDetails: %v", err)
	}
	if d.TimesSeen != 3 || d.CountriesSeen != 2 {
		t.Fatalf("unexpected counts %+v", d)
	}
	if d.FirstSeen != "2010-03-01" || d.RecentSeen != "2018-07-09" {
		t.Fatalf("unexpected first/recent %q %q", d.FirstSeen, d.RecentSeen)
	}
	if d.Concerts[0].ID != 2 || d.Concerts[2].ID != 3 {
		t.Fatalf("expected newest first and undated last, got %+v", d.Concerts)
	}
	if d.ImageURL != images.url || len(images.calls) != 1 || images.calls[0] != "Muse" {
		t.Fatalf("unexpected image lookup %q %v", d.ImageURL, images.calls)
	}
}

func TestServicePropagatesSourceErrors(t *testing.T) {
	boom := errors.New("no such table: concerts")
	svc := New(staticSource{err: boom}, nil)

	if _, err := svc.Dashboard(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected source error, got %v", err)
	}
}
