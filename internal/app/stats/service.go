package stats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"concertjournal/internal/app/concerts"
	"concertjournal/internal/models"
)

// PerformerPageSize is the number of performers per page.
const PerformerPageSize = 20

// ConcertSource provides the concerts aggregation runs over.
type ConcertSource interface {
	All(ctx context.Context) ([]models.Concert, error)
}

// ArtistImages resolves background artwork for a performer. An empty string
// means no image.
type ArtistImages interface {
	ArtistImage(ctx context.Context, name string) string
}

// PerformerQuery filters and pages the performer list.
type PerformerQuery struct {
	Search string
	Sort   string // most, least
	Page   int    // zero-based
}

// PerformerPage is one page of the performer list.
type PerformerPage struct {
	Performers []PerformerCount `json:"performers"`
	Page       int              `json:"page"`
	Total      int              `json:"total"`
	HasMore    bool             `json:"hasMore"`
}

// PerformerDetails summarises everything seen of one performer.
type PerformerDetails struct {
	Name          string           `json:"name"`
	TimesSeen     int              `json:"timesSeen"`
	CountriesSeen int              `json:"countriesSeen"`
	FirstSeen     string           `json:"firstSeen,omitempty"`
	RecentSeen    string           `json:"recentSeen,omitempty"`
	ImageURL      string           `json:"imageUrl,omitempty"`
	Concerts      []models.Concert `json:"concerts"`
}

// Service computes statistics. Nothing is cached; each call reads every concert.
type Service struct {
	concerts ConcertSource
	images   ArtistImages
}

// New constructs a stats Service. images may be nil.
func New(concerts ConcertSource, images ArtistImages) *Service {
	return &Service{concerts: concerts, images: images}
}

func (s *Service) all(ctx context.Context) ([]models.Concert, error) {
	concerts, err := s.concerts.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load concerts: %w", err)
	}
	return concerts, nil
}

// Dashboard returns the overview statistics.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	concerts, err := s.all(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	return Summarize(concerts), nil
}

// CountryChart returns the per-country bar chart.
func (s *Service) CountryChart(ctx context.Context) (CountryChart, error) {
	concerts, err := s.all(ctx)
	if err != nil {
		return CountryChart{}, err
	}
	return NewCountryChart(CountryStats(concerts)), nil
}

// Performers returns a filtered, sorted page of performer counts.
func (s *Service) Performers(ctx context.Context, q PerformerQuery) (PerformerPage, error) {
	concerts, err := s.all(ctx)
	if err != nil {
		return PerformerPage{}, err
	}
	return pagePerformers(PerformerCounts(concerts), q), nil
}

func pagePerformers(all []PerformerCount, q PerformerQuery) PerformerPage {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	filtered := make([]PerformerCount, 0, len(all))
	for _, p := range all {
		if search == "" || strings.Contains(strings.ToLower(p.Name), search) {
			filtered = append(filtered, p)
		}
	}
	sortPerformers(filtered, !strings.EqualFold(q.Sort, "least"))

	page := q.Page
	if page < 0 {
		page = 0
	}
	start := page * PerformerPageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + PerformerPageSize
	if end > len(filtered) {
		end = len(filtered)
	}

	return PerformerPage{
		Performers: filtered[start:end],
		Page:       page,
		Total:      len(filtered),
		HasMore:    end < len(filtered),
	}
}

// PerformerDetails gathers the concerts featuring name.
func (s *Service) PerformerDetails(ctx context.Context, name string) (PerformerDetails, error) {
	name = strings.TrimSpace(name)
	concerts, err := s.all(ctx)
	if err != nil {
		return PerformerDetails{}, err
	}

	details := DetailsFor(name, concerts)
	if s.images != nil && name != "" {
		details.ImageURL = s.images.ArtistImage(ctx, name)
	}
	return details, nil
}

// DetailsFor computes performer details from concerts without artwork lookup.
func DetailsFor(name string, all []models.Concert) PerformerDetails {
	details := PerformerDetails{Name: name, Concerts: []models.Concert{}}

	countries := map[string]struct{}{}
	var first, recent *time.Time
	for _, c := range all {
		if !c.HasPerformer(name) {
			continue
		}
		details.Concerts = append(details.Concerts, c)
		if country := strings.TrimSpace(c.Country); country != "" {
			countries[country] = struct{}{}
		}
		if c.Date != nil {
			if first == nil || c.Date.Before(*first) {
				first = c.Date
			}
			if recent == nil || c.Date.After(*recent) {
				recent = c.Date
			}
		}
	}

	concerts.SortByDateDesc(details.Concerts)
	details.TimesSeen = len(details.Concerts)
	details.CountriesSeen = len(countries)
	details.FirstSeen = models.FormatDate(first)
	details.RecentSeen = models.FormatDate(recent)
	return details
}
