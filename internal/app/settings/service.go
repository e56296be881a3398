package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"concertjournal/internal/models"
)

const (
	KeyDefaultCountry = "default_country"
	KeyDefaultCity    = "default_city"
	KeyTheme          = "theme"
	KeyListSort       = "concert_list_sort"
)

// Theme is the visual theme preference.
type Theme string

const (
	ThemeAngel Theme = "angel"
	ThemeDevil Theme = "devil"
)

// ErrInvalidSetting is returned for values outside the allowed set.
var ErrInvalidSetting = errors.New("invalid setting")

// Store persists key/value preferences.
type Store interface {
	Preference(ctx context.Context, key string) (string, bool, error)
	SetPreference(ctx context.Context, key, value string) error
}

// Settings is the full preference set.
type Settings struct {
	DefaultCountry string         `json:"defaultCountry"`
	DefaultCity    string         `json:"defaultCity"`
	Theme          Theme          `json:"theme"`
	ListSort       models.SortKey `json:"listSort"`
}

// Update carries optional changes; nil fields are left untouched.
type Update struct {
	DefaultCountry *string `json:"defaultCountry"`
	DefaultCity    *string `json:"defaultCity"`
	Theme          *string `json:"theme"`
	ListSort       *string `json:"listSort"`
}

// Service reads and writes user preferences.
type Service struct {
	store Store
}

// New constructs a settings Service.
func New(store Store) *Service {
	return &Service{store: store}
}

// Get returns every setting with defaults filled in.
func (s *Service) Get(ctx context.Context) (Settings, error) {
	country, city, err := s.DefaultLocation(ctx)
	if err != nil {
		return Settings{}, err
	}
	theme, err := s.Theme(ctx)
	if err != nil {
		return Settings{}, err
	}
	sort, err := s.ListSort(ctx)
	if err != nil {
		return Settings{}, err
	}
	return Settings{DefaultCountry: country, DefaultCity: city, Theme: theme, ListSort: sort}, nil
}

// Apply validates and stores the fields present in u, then returns the result.
func (s *Service) Apply(ctx context.Context, u Update) (Settings, error) {
	if u.Theme != nil {
		if _, err := parseTheme(*u.Theme); err != nil {
			return Settings{}, err
		}
	}
	if u.ListSort != nil {
		if _, ok := models.ParseSortKey(*u.ListSort); !ok {
			return Settings{}, fmt.Errorf("%w: unknown sort %q", ErrInvalidSetting, *u.ListSort)
		}
	}

	if u.DefaultCountry != nil || u.DefaultCity != nil {
		country, city, err := s.DefaultLocation(ctx)
		if err != nil {
			return Settings{}, err
		}
		if u.DefaultCountry != nil {
			country = *u.DefaultCountry
		}
		if u.DefaultCity != nil {
			city = *u.DefaultCity
		}
		if err := s.SetDefaultLocation(ctx, country, city); err != nil {
			return Settings{}, err
		}
	}
	if u.Theme != nil {
		theme, _ := parseTheme(*u.Theme)
		if err := s.SetTheme(ctx, theme); err != nil {
			return Settings{}, err
		}
	}
	if u.ListSort != nil {
		key, _ := models.ParseSortKey(*u.ListSort)
		if err := s.SetListSort(ctx, key); err != nil {
			return Settings{}, err
		}
	}
	return s.Get(ctx)
}

// DefaultLocation returns the country and city prefilled on new concerts.
func (s *Service) DefaultLocation(ctx context.Context) (string, string, error) {
	country, _, err := s.store.Preference(ctx, KeyDefaultCountry)
	if err != nil {
		return "", "", err
	}
	city, _, err := s.store.Preference(ctx, KeyDefaultCity)
	if err != nil {
		return "", "", err
	}
	return country, city, nil
}

// SetDefaultLocation stores trimmed defaults.
func (s *Service) SetDefaultLocation(ctx context.Context, country, city string) error {
	if err := s.store.SetPreference(ctx, KeyDefaultCountry, strings.TrimSpace(country)); err != nil {
		return err
	}
	return s.store.SetPreference(ctx, KeyDefaultCity, strings.TrimSpace(city))
}

// Theme returns the stored theme, ThemeAngel when unset.
func (s *Service) Theme(ctx context.Context) (Theme, error) {
	raw, ok, err := s.store.Preference(ctx, KeyTheme)
	if err != nil {
		return "", err
	}
	if !ok {
		return ThemeAngel, nil
	}
	theme, err := parseTheme(raw)
	if err != nil {
		return ThemeAngel, nil
	}
	return theme, nil
}

// SetTheme stores the theme.
func (s *Service) SetTheme(ctx context.Context, theme Theme) error {
	if _, err := parseTheme(string(theme)); err != nil {
		return err
	}
	return s.store.SetPreference(ctx, KeyTheme, string(theme))
}

// ListSort returns the persisted concert list ordering.
func (s *Service) ListSort(ctx context.Context) (models.SortKey, error) {
	raw, _, err := s.store.Preference(ctx, KeyListSort)
	if err != nil {
		return models.SortDefault, err
	}
	key, _ := models.ParseSortKey(raw)
	return key, nil
}

// SetListSort persists the concert list ordering.
func (s *Service) SetListSort(ctx context.Context, key models.SortKey) error {
	return s.store.SetPreference(ctx, KeyListSort, string(key))
}

func parseTheme(raw string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(raw))) {
	case ThemeAngel:
		return ThemeAngel, nil
	case ThemeDevil:
		return ThemeDevil, nil
	}
	return "", fmt.Errorf("%w: unknown theme %q", ErrInvalidSetting, raw)
}
