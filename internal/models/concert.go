package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the storage and wire format for concert dates.
const DateLayout = "2006-01-02"

// Concert is a single journal entry.
type Concert struct {
	ID         int64      `json:"id"`
	EventTitle string     `json:"eventTitle"`
	Performers []string   `json:"performers"`
	Venue      string     `json:"venue"`
	Country    string     `json:"country"`
	City       string     `json:"city"`
	Date       *time.Time `json:"-"`
	Rating     float64    `json:"rating"`
	Notes      string     `json:"notes"`
	MediaPaths []string   `json:"mediaPaths"`
}

type concertJSON struct {
	*concertAlias
	Date string `json:"date,omitempty"`
}

type concertAlias Concert

// MarshalJSON renders Date in DateLayout.
func (c Concert) MarshalJSON() ([]byte, error) {
	alias := concertAlias(c)
	return json.Marshal(concertJSON{concertAlias: &alias, Date: FormatDate(c.Date)})
}

// UnmarshalJSON accepts any date layout ParseDate understands.
func (c *Concert) UnmarshalJSON(data []byte) error {
	aux := concertJSON{concertAlias: (*concertAlias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	d, err := ParseDate(aux.Date)
	if err != nil {
		return err
	}
	c.Date = d
	return nil
}

// Location renders "City, Country".
func (c Concert) Location() string {
	return fmt.Sprintf("%s, %s", c.City, c.Country)
}

// DisplayPerformers shows at most three performers followed by a "+ N more" suffix.
func (c Concert) DisplayPerformers() string {
	if len(c.Performers) <= 3 {
		return strings.Join(c.Performers, ", ")
	}
	return fmt.Sprintf("%s + %d more", strings.Join(c.Performers[:3], ", "), len(c.Performers)-3)
}

// HasPerformer reports whether name is on the bill, ignoring case.
func (c Concert) HasPerformer(name string) bool {
	name = strings.TrimSpace(name)
	for _, p := range c.Performers {
		if strings.EqualFold(p, name) {
			return true
		}
	}
	return false
}

// FormatDate returns the date in DateLayout, or "" when unset.
func FormatDate(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.Format(DateLayout)
}

var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
	"2 January 2006",
	"02 Jan 2006",
}

// ParseDate parses a calendar date in any of the accepted layouts. Blank input
// yields a nil date.
func ParseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d, nil
		}
	}
	return nil, fmt.Errorf("unrecognised date %q", raw)
}

// SortKey selects the ordering of a concert page.
type SortKey string

const (
	SortDefault  SortKey = "default"
	SortDateAsc  SortKey = "date_asc"
	SortDateDesc SortKey = "date_desc"
	SortTitle    SortKey = "title"
)

// ParseSortKey maps user input to a SortKey. Unknown values fall back to SortDefault.
func ParseSortKey(raw string) (SortKey, bool) {
	switch SortKey(strings.ToLower(strings.TrimSpace(raw))) {
	case SortDefault, "":
		return SortDefault, true
	case SortDateAsc:
		return SortDateAsc, true
	case SortDateDesc:
		return SortDateDesc, true
	case SortTitle:
		return SortTitle, true
	}
	return SortDefault, false
}

// DefaultPageSize is used when a page query carries no limit.
const DefaultPageSize = 15

// PageQuery describes one page of the concert list.
type PageQuery struct {
	Offset int
	Limit  int
	Sort   SortKey
	Search string
}

// Normalize clamps offset and limit and trims the search text.
func (q PageQuery) Normalize() PageQuery {
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	if q.Sort == "" {
		q.Sort = SortDefault
	}
	q.Search = strings.TrimSpace(q.Search)
	return q
}
