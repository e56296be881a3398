// Package listing keeps the state behind an incrementally loaded, searchable
// concert list: paging cursor, sort, debounced search and multi-select.
package listing

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"concertjournal/internal/events"
	"concertjournal/internal/models"
)

const (
	DefaultSearchDelay     = 300 * time.Millisecond
	DefaultMinSearchLength = 2
	DefaultRefreshDelay    = 50 * time.Millisecond
)

// Source loads pages and deletes concerts.
type Source interface {
	List(ctx context.Context, q models.PageQuery) ([]models.Concert, error)
	DeleteMany(ctx context.Context, ids []int64) error
}

// SortStore persists the chosen sort order.
type SortStore interface {
	ListSort(ctx context.Context) (models.SortKey, error)
	SetListSort(ctx context.Context, key models.SortKey) error
}

// Subscriber is satisfied by *events.Bus.
type Subscriber interface {
	Subscribe(events.Handler) *events.Subscription
}

// Options tunes a State. Zero values select the defaults.
type Options struct {
	PageSize        int
	SearchDelay     time.Duration
	MinSearchLength int
	RefreshDelay    time.Duration

	// Dispatch runs callbacks, e.g. on a UI goroutine. Defaults to calling inline.
	Dispatch func(func())
	// OnChange receives a snapshot after every change to the visible list.
	OnChange func(Snapshot)
}

// Snapshot is a copy of the visible list state.
type Snapshot struct {
	Items    []models.Concert
	HasMore  bool
	Loading  bool
	Sort     models.SortKey
	Search   string
	Selected []int64
}

// State is safe for concurrent use.
type State struct {
	source Source
	sorts  SortStore
	opts   Options

	mu       sync.Mutex
	items    []models.Concert
	page     int
	hasMore  bool
	loading  bool
	gen      uint64
	sort     models.SortKey
	search   string
	selected map[int64]struct{}

	searchTimer  *time.Timer
	refreshTimer *time.Timer
	sub          *events.Subscription
	closed       bool
}

// New builds a State, restores the persisted sort and subscribes to bus when
// it is non-nil. The first page is not loaded until Refresh or LoadMore.
func New(ctx context.Context, source Source, sorts SortStore, bus Subscriber, opts Options) (*State, error) {
	if opts.PageSize <= 0 {
		opts.PageSize = models.DefaultPageSize
	}
	if opts.SearchDelay <= 0 {
		opts.SearchDelay = DefaultSearchDelay
	}
	if opts.MinSearchLength <= 0 {
		opts.MinSearchLength = DefaultMinSearchLength
	}
	if opts.RefreshDelay <= 0 {
		opts.RefreshDelay = DefaultRefreshDelay
	}
	if opts.Dispatch == nil {
		opts.Dispatch = func(f func()) { f() }
	}

	s := &State{
		source:   source,
		sorts:    sorts,
		opts:     opts,
		hasMore:  true,
		sort:     models.SortDefault,
		selected: map[int64]struct{}{},
	}

	if sorts != nil {
		key, err := sorts.ListSort(ctx)
		if err != nil {
			return nil, fmt.Errorf("load sort preference: %w", err)
		}
		s.sort = key
	}

	if bus != nil {
		s.sub = bus.Subscribe(func(events.Event) { s.scheduleRefresh() })
	}
	return s, nil
}

// LoadMore fetches the next page and appends it. It is a no-op while another
// load is running or after the last page was reached.
func (s *State) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	if s.loading || !s.hasMore || s.closed {
		s.mu.Unlock()
		return nil
	}
	s.loading = true
	gen := s.gen
	q := models.PageQuery{
		Offset: s.page * s.opts.PageSize,
		Limit:  s.opts.PageSize,
		Sort:   s.sort,
		Search: s.search,
	}
	s.mu.Unlock()

	page, err := s.source.List(ctx, q)

	s.mu.Lock()
	if gen != s.gen {
		// reset while loading; a newer load owns the list now
		s.mu.Unlock()
		return nil
	}
	s.loading = false
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("load page %d: %w", q.Offset/q.Limit, err)
	}
	s.items = append(s.items, page...)
	s.page++
	s.hasMore = len(page) == s.opts.PageSize
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// Refresh clears the list and loads the first page again.
func (s *State) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()
	return s.LoadMore(ctx)
}

func (s *State) resetLocked() {
	s.gen++
	s.items = nil
	s.page = 0
	s.hasMore = true
	s.loading = false
}

// SetSort persists key and reloads the list under it.
func (s *State) SetSort(ctx context.Context, key models.SortKey) error {
	if s.sorts != nil {
		if err := s.sorts.SetListSort(ctx, key); err != nil {
			return fmt.Errorf("save sort preference: %w", err)
		}
	}
	s.mu.Lock()
	s.sort = key
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// SetSearch records keystrokes. The filter is applied once input has been
// idle for the search delay; each call supersedes the pending one.
func (s *State) SetSearch(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.searchTimer != nil {
		s.searchTimer.Stop()
	}
	s.searchTimer = time.AfterFunc(s.opts.SearchDelay, func() {
		if err := s.ApplySearch(context.Background(), text); err != nil {
			log.Error().Err(err).Str("search", text).Msg("apply search failed")
		}
	})
}

// ApplySearch applies text immediately. Empty text clears the filter; text
// shorter than the minimum length is ignored.
func (s *State) ApplySearch(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text != "" && utf8.RuneCountInString(text) < s.opts.MinSearchLength {
		return nil
	}
	s.mu.Lock()
	s.search = text
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// Toggle flips the selection of id and reports whether it is now selected.
func (s *State) Toggle(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.selected[id]; ok {
		delete(s.selected, id)
		return false
	}
	s.selected[id] = struct{}{}
	return true
}

// ClearSelection empties the selection set.
func (s *State) ClearSelection() {
	s.mu.Lock()
	s.selected = map[int64]struct{}{}
	s.mu.Unlock()
}

// DeleteSelected deletes every selected concert, clears the selection and
// reloads. Deletes that succeed are not undone if another fails.
func (s *State) DeleteSelected(ctx context.Context) error {
	s.mu.Lock()
	ids := s.selectedLocked()
	s.selected = map[int64]struct{}{}
	s.mu.Unlock()

	if len(ids) == 0 {
		return nil
	}

	deleteErr := s.source.DeleteMany(ctx, ids)
	if err := s.Refresh(ctx); err != nil && deleteErr == nil {
		return err
	}
	return deleteErr
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Close stops pending timers and unsubscribes from change events.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.searchTimer != nil {
		s.searchTimer.Stop()
	}
	if s.refreshTimer != nil {
		s.refreshTimer.Stop()
	}
	s.sub.Close()
}

func (s *State) scheduleRefresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.refreshTimer != nil {
		s.refreshTimer.Stop()
	}
	s.refreshTimer = time.AfterFunc(s.opts.RefreshDelay, func() {
		if err := s.Refresh(context.Background()); err != nil {
			log.Error().Err(err).Msg("refresh after change failed")
		}
	})
}

func (s *State) selectedLocked() []int64 {
	ids := make([]int64, 0, len(s.selected))
	for id := range s.selected {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *State) snapshotLocked() Snapshot {
	return Snapshot{
		Items:    append([]models.Concert(nil), s.items...),
		HasMore:  s.hasMore,
		Loading:  s.loading,
		Sort:     s.sort,
		Search:   s.search,
		Selected: s.selectedLocked(),
	}
}

func (s *State) notify(snap Snapshot) {
	if s.opts.OnChange == nil {
		return
	}
	s.opts.Dispatch(func() { s.opts.OnChange(snap) })
}
