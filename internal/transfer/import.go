package transfer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"concertjournal/internal/metrics"
	"concertjournal/internal/models"
)

// Saver persists imported concerts.
type Saver interface {
	SaveBatch(ctx context.Context, concerts []models.Concert) (int, error)
}

// RowError explains why a row was skipped. Row is 1-based and counts the header.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// Result summarises an import.
type Result struct {
	Imported int        `json:"imported"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors,omitempty"`
}

// Importer reads concerts from spreadsheets and saves them.
type Importer struct {
	saver Saver
}

// NewImporter constructs an Importer.
func NewImporter(saver Saver) *Importer {
	return &Importer{saver: saver}
}

// Import reads every data row of r. Malformed rows are skipped and reported;
// an unreadable file aborts with an error before anything is saved.
func (i *Importer) Import(ctx context.Context, format Format, r io.Reader) (Result, error) {
	rows, err := readRows(format, r)
	if err != nil {
		return Result{}, err
	}

	var (
		result   Result
		concerts []models.Concert
	)
	// the first row is the header
	for idx := 1; idx < len(rows); idx++ {
		if isBlankRow(rows[idx]) {
			continue
		}
		c, err := ParseRow(rows[idx])
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, RowError{Row: idx + 1, Reason: err.Error()})
			log.Debug().Int("row", idx+1).Err(err).Msg("import: skipping malformed row")
			continue
		}
		concerts = append(concerts, c)
	}

	saved, err := i.saver.SaveBatch(ctx, concerts)
	result.Imported = saved
	metrics.ImportRows.WithLabelValues("imported").Add(float64(saved))
	metrics.ImportRows.WithLabelValues("skipped").Add(float64(result.Skipped))
	if err != nil {
		return result, fmt.Errorf("save imported concerts: %w", err)
	}
	return result, nil
}

func readRows(format Format, r io.Reader) ([][]string, error) {
	switch format {
	case FormatCSV:
		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1
		reader.LazyQuotes = true
		rows, err := reader.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("%w: read csv: %w", ErrUnreadable, err)
		}
		return rows, nil
	case FormatXLSX:
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, fmt.Errorf("%w: open workbook: %w", ErrUnreadable, err)
		}
		defer f.Close()

		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: workbook has no sheets", ErrUnreadable)
		}
		rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("%w: read sheet %q: %w", ErrUnreadable, sheets[0], err)
		}
		return rows, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// ParseRow converts one positional row into a concert.
func ParseRow(cells []string) (models.Concert, error) {
	cell := func(i int) string {
		if i < len(cells) {
			return strings.TrimSpace(cells[i])
		}
		return ""
	}

	c := models.Concert{
		EventTitle: cell(colTitle),
		Performers: models.PerformersCodec.Decode(cell(colPerformers)),
		Venue:      cell(colVenue),
		Country:    cell(colCountry),
		City:       cell(colCity),
		Notes:      cell(colNotes),
		MediaPaths: models.MediaCodec.Decode(cell(colMedia)),
	}
	if c.EventTitle == "" {
		return models.Concert{}, errors.New("missing event title")
	}

	date, err := parseCellDate(cell(colDate))
	if err != nil {
		return models.Concert{}, err
	}
	c.Date = date

	if raw := cell(colRating); raw != "" {
		rating, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
		if err != nil || math.IsNaN(rating) || math.IsInf(rating, 0) || rating < 0 {
			return models.Concert{}, fmt.Errorf("invalid rating %q", raw)
		}
		c.Rating = rating
	}
	return c, nil
}

// parseCellDate accepts text dates and Excel serial day numbers.
func parseCellDate(raw string) (*time.Time, error) {
	d, err := models.ParseDate(raw)
	if err == nil {
		return d, nil
	}
	if serial, ferr := strconv.ParseFloat(raw, 64); ferr == nil && serial > 0 {
		t, terr := excelize.ExcelDateToTime(serial, false)
		if terr == nil {
			day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &day, nil
		}
	}
	return nil, err
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
