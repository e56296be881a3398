package concerts

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"concertjournal/internal/events"
	"concertjournal/internal/metrics"
	"concertjournal/internal/models"
	"concertjournal/internal/store"
)

// bulkDeleteLimit caps concurrent deletes issued by DeleteMany.
const bulkDeleteLimit = 4

// Store defines persistence operations for concerts
type Store interface {
	SaveConcert(ctx context.Context, concert *models.Concert) (*models.Concert, error)
	DeleteConcert(ctx context.Context, id int64) error
	ConcertByID(ctx context.Context, id int64) (*models.Concert, error)
	AllConcerts(ctx context.Context) ([]models.Concert, error)
	ConcertsPage(ctx context.Context, q models.PageQuery) ([]models.Concert, error)
	CountConcerts(ctx context.Context, search string) (int, error)
}

// Defaults supplies the location applied to new concerts that leave it blank.
type Defaults interface {
	DefaultLocation(ctx context.Context) (country, city string, err error)
}

// Service coordinates concert-related operations
type Service interface {
	Save(ctx context.Context, concert models.Concert) (*models.Concert, error)
	SaveBatch(ctx context.Context, concerts []models.Concert) (int, error)
	Get(ctx context.Context, id int64) (*models.Concert, error)
	List(ctx context.Context, q models.PageQuery) ([]models.Concert, error)
	Count(ctx context.Context, search string) (int, error)
	All(ctx context.Context) ([]models.Concert, error)
	ByPerformer(ctx context.Context, name string) ([]models.Concert, error)
	Delete(ctx context.Context, id int64) error
	DeleteMany(ctx context.Context, ids []int64) error
}

type service struct {
	store     Store
	publisher events.Publisher
	defaults  Defaults // optional
}

// New constructs a concerts Service. publisher and defaults may be nil.
func New(store Store, publisher events.Publisher, defaults Defaults) Service {
	return &service{
		store:     store,
		publisher: publisher,
		defaults:  defaults,
	}
}

func (s *service) Save(ctx context.Context, concert models.Concert) (*models.Concert, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	saved, err := s.save(ctx, concert)
	if err != nil {
		return nil, err
	}

	kind := events.KindUpdated
	if concert.ID == 0 {
		kind = events.KindCreated
	}
	metrics.ConcertWrites.WithLabelValues(string(kind)).Inc()
	s.publish(events.Event{Kind: kind, ConcertID: saved.ID})
	return saved, nil
}

// SaveBatch saves concerts one by one and publishes a single imported event.
// It stops at the first failure; rows saved before it stay saved.
func (s *service) SaveBatch(ctx context.Context, concerts []models.Concert) (int, error) {
	saved := 0
	for _, c := range concerts {
		if err := ctx.Err(); err != nil {
			s.publishImported(saved)
			return saved, err
		}
		if _, err := s.save(ctx, c); err != nil {
			s.publishImported(saved)
			return saved, fmt.Errorf("save %q: %w", c.EventTitle, err)
		}
		saved++
	}
	s.publishImported(saved)
	return saved, nil
}

func (s *service) publishImported(n int) {
	if n == 0 {
		return
	}
	metrics.ConcertWrites.WithLabelValues(string(events.KindImported)).Add(float64(n))
	s.publish(events.Event{Kind: events.KindImported, Count: n})
}

func (s *service) save(ctx context.Context, concert models.Concert) (*models.Concert, error) {
	concert = normalize(concert)

	if concert.ID == 0 && s.defaults != nil && (concert.Country == "" || concert.City == "") {
		country, city, err := s.defaults.DefaultLocation(ctx)
		if err != nil {
			return nil, fmt.Errorf("load default location: %w", err)
		}
		if concert.Country == "" {
			concert.Country = country
		}
		if concert.City == "" {
			concert.City = city
		}
	}

	return s.store.SaveConcert(ctx, &concert)
}

func (s *service) Get(ctx context.Context, id int64) (*models.Concert, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ConcertByID(ctx, id)
}

func (s *service) List(ctx context.Context, q models.PageQuery) ([]models.Concert, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ConcertsPage(ctx, q.Normalize())
}

func (s *service) Count(ctx context.Context, search string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.store.CountConcerts(ctx, search)
}

func (s *service) All(ctx context.Context) ([]models.Concert, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.AllConcerts(ctx)
}

// ByPerformer returns concerts listing name as a performer, latest date first.
func (s *service) ByPerformer(ctx context.Context, name string) ([]models.Concert, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	matched := []models.Concert{}
	for _, c := range all {
		if c.HasPerformer(name) {
			matched = append(matched, c)
		}
	}
	SortByDateDesc(matched)
	return matched, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.store.DeleteConcert(ctx, id); err != nil {
		return err
	}
	metrics.ConcertWrites.WithLabelValues(string(events.KindDeleted)).Inc()
	s.publish(events.Event{Kind: events.KindDeleted, ConcertID: id})
	return nil
}

// DeleteMany deletes every id concurrently. There is no rollback: deletes that
// succeed stay deleted and the first failure is returned once all finished.
func (s *service) DeleteMany(ctx context.Context, ids []int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	seen := make(map[int64]struct{}, len(ids))
	var g errgroup.Group
	g.SetLimit(bulkDeleteLimit)

	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		id := id
		g.Go(func() error {
			if err := s.Delete(ctx, id); err != nil {
				if !errors.Is(err, store.ErrConcertNotFound) {
					log.Error().Err(err).Int64("concert_id", id).Msg("bulk delete failed")
				}
				return fmt.Errorf("delete concert %d: %w", id, err)
			}
			return nil
		})
	}

	return g.Wait()
}

func (s *service) publish(e events.Event) {
	if s.publisher != nil {
		s.publisher.Publish(e)
	}
}

func normalize(c models.Concert) models.Concert {
	c.EventTitle = strings.TrimSpace(c.EventTitle)
	c.Venue = strings.TrimSpace(c.Venue)
	c.Country = strings.TrimSpace(c.Country)
	c.City = strings.TrimSpace(c.City)
	c.Notes = strings.TrimSpace(c.Notes)
	c.Performers = models.PerformersCodec.Clean(c.Performers)
	c.MediaPaths = models.MediaCodec.Clean(c.MediaPaths)
	return c
}

// SortByDateDesc orders concerts newest first with undated entries last.
func SortByDateDesc(concerts []models.Concert) {
	sort.SliceStable(concerts, func(i, j int) bool {
		a, b := concerts[i].Date, concerts[j].Date
		switch {
		case a == nil && b == nil:
			return concerts[i].ID > concerts[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case a.Equal(*b):
			return concerts[i].ID > concerts[j].ID
		}
		return a.After(*b)
	})
}
