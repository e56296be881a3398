package stats

import (
	"sort"
	"strings"

	"concertjournal/internal/models"
)

// UndefinedCountry labels concerts without a country.
const UndefinedCountry = "Undefined"

// PerformerCount is how many concerts a performer appeared in.
type PerformerCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// CountryStat groups concerts by country.
type CountryStat struct {
	Country    string `json:"country"`
	Concerts   int    `json:"concerts"`
	Performers int    `json:"performers"`
}

// YearStat groups dated concerts by calendar year.
type YearStat struct {
	Year       int `json:"year"`
	Concerts   int `json:"concerts"`
	Performers int `json:"performers"`
}

// PerformerCounts tallies performers across concerts, most frequent first,
// ties by name. Names are matched exactly after trimming.
func PerformerCounts(concerts []models.Concert) []PerformerCount {
	counts := map[string]int{}
	for _, c := range concerts {
		for _, p := range c.Performers {
			if p = strings.TrimSpace(p); p != "" {
				counts[p]++
			}
		}
	}

	out := make([]PerformerCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, PerformerCount{Name: name, Count: n})
	}
	sortPerformers(out, true)
	return out
}

func sortPerformers(p []PerformerCount, most bool) {
	sort.Slice(p, func(i, j int) bool {
		if p[i].Count != p[j].Count {
			if most {
				return p[i].Count > p[j].Count
			}
			return p[i].Count < p[j].Count
		}
		return p[i].Name < p[j].Name
	})
}

// CountryStats groups by trimmed country, most concerts first, ties by name.
func CountryStats(concerts []models.Concert) []CountryStat {
	type acc struct {
		concerts   int
		performers map[string]struct{}
	}
	groups := map[string]*acc{}
	for _, c := range concerts {
		key := strings.TrimSpace(c.Country)
		if key == "" {
			key = UndefinedCountry
		}
		g, ok := groups[key]
		if !ok {
			g = &acc{performers: map[string]struct{}{}}
			groups[key] = g
		}
		g.concerts++
		addPerformers(g.performers, c)
	}

	out := make([]CountryStat, 0, len(groups))
	for country, g := range groups {
		out = append(out, CountryStat{Country: country, Concerts: g.concerts, Performers: len(g.performers)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Concerts != out[j].Concerts {
			return out[i].Concerts > out[j].Concerts
		}
		return out[i].Country < out[j].Country
	})
	return out
}

// YearStats groups dated concerts by year, newest year first.
func YearStats(concerts []models.Concert) []YearStat {
	type acc struct {
		concerts   int
		performers map[string]struct{}
	}
	groups := map[int]*acc{}
	for _, c := range concerts {
		if c.Date == nil {
			continue
		}
		y := c.Date.Year()
		g, ok := groups[y]
		if !ok {
			g = &acc{performers: map[string]struct{}{}}
			groups[y] = g
		}
		g.concerts++
		addPerformers(g.performers, c)
	}

	out := make([]YearStat, 0, len(groups))
	for y, g := range groups {
		out = append(out, YearStat{Year: y, Concerts: g.concerts, Performers: len(g.performers)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	return out
}

func addPerformers(set map[string]struct{}, c models.Concert) {
	for _, p := range c.Performers {
		if p = strings.TrimSpace(p); p != "" {
			set[p] = struct{}{}
		}
	}
}

// AverageRating is the mean of ratings above zero, or zero when none are rated.
func AverageRating(concerts []models.Concert) float64 {
	var sum float64
	n := 0
	for _, c := range concerts {
		if c.Rating > 0 {
			sum += c.Rating
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// LatestConcert returns the concert with the greatest date, highest ID on ties.
func LatestConcert(concerts []models.Concert) *models.Concert {
	var latest *models.Concert
	for i := range concerts {
		c := &concerts[i]
		if c.Date == nil {
			continue
		}
		if latest == nil || c.Date.After(*latest.Date) || (c.Date.Equal(*latest.Date) && c.ID > latest.ID) {
			latest = c
		}
	}
	if latest == nil {
		return nil
	}
	out := *latest
	return &out
}

// topYear picks the year with the highest metric; the earlier year wins ties.
func topYear(years []YearStat, metric func(YearStat) int) *YearStat {
	var best *YearStat
	for i := range years {
		y := years[i]
		if best == nil || metric(y) > metric(*best) || (metric(y) == metric(*best) && y.Year < best.Year) {
			best = &y
		}
	}
	return best
}

// Dashboard is the overview shown on the statistics screen.
type Dashboard struct {
	TotalConcerts      int              `json:"totalConcerts"`
	TotalPerformers    int              `json:"totalPerformers"`
	AverageRating      float64          `json:"averageRating"`
	LatestConcert      *models.Concert  `json:"latestConcert,omitempty"`
	MostConcertsYear   *YearStat        `json:"mostConcertsYear,omitempty"`
	MostPerformersYear *YearStat        `json:"mostPerformersYear,omitempty"`
	Years              []YearStat       `json:"years"`
	Countries          []CountryStat    `json:"countries"`
	Performers         []PerformerCount `json:"performers"`
}

// Summarize computes the dashboard for concerts.
func Summarize(concerts []models.Concert) Dashboard {
	years := YearStats(concerts)
	performers := PerformerCounts(concerts)
	return Dashboard{
		TotalConcerts:      len(concerts),
		TotalPerformers:    len(performers),
		AverageRating:      AverageRating(concerts),
		LatestConcert:      LatestConcert(concerts),
		MostConcertsYear:   topYear(years, func(y YearStat) int { return y.Concerts }),
		MostPerformersYear: topYear(years, func(y YearStat) int { return y.Performers }),
		Years:              years,
		Countries:          CountryStats(concerts),
		Performers:         performers,
	}
}

// CountryChart is bar chart data for concerts per country.
type CountryChart struct {
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
	Height int      `json:"height"`
}

const (
	chartRowHeight = 50
	chartPadding   = 20
)

// NewCountryChart orders bars by ascending count so the largest renders last.
func NewCountryChart(countries []CountryStat) CountryChart {
	sorted := append([]CountryStat(nil), countries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Concerts != sorted[j].Concerts {
			return sorted[i].Concerts < sorted[j].Concerts
		}
		return sorted[i].Country < sorted[j].Country
	})

	chart := CountryChart{
		Labels: make([]string, 0, len(sorted)),
		Values: make([]int, 0, len(sorted)),
		Height: len(sorted)*chartRowHeight + chartPadding,
	}
	for _, c := range sorted {
		chart.Labels = append(chart.Labels, c.Country)
		chart.Values = append(chart.Values, c.Concerts)
	}
	return chart
}
