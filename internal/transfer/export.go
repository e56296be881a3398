package transfer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"concertjournal/internal/models"
)

const (
	sheetName   = "Concerts"
	maxColWidth = 80
)

// Lister provides the concerts to export.
type Lister interface {
	All(ctx context.Context) ([]models.Concert, error)
}

// Exporter writes every concert to CSV or Excel.
type Exporter struct {
	source Lister
}

// NewExporter constructs an Exporter.
func NewExporter(source Lister) *Exporter {
	return &Exporter{source: source}
}

// Export writes all concerts to w and returns how many were written.
func (e *Exporter) Export(ctx context.Context, format Format, w io.Writer) (int, error) {
	concerts, err := e.source.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("load concerts: %w", err)
	}

	switch format {
	case FormatCSV:
		err = writeCSV(w, concerts)
	case FormatXLSX:
		err = writeXLSX(w, concerts)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return 0, err
	}
	return len(concerts), nil
}

// Record renders a concert in Columns order.
func Record(c models.Concert) []string {
	rating := ""
	if c.Rating != 0 {
		rating = strconv.FormatFloat(c.Rating, 'f', -1, 64)
	}
	return []string{
		c.EventTitle,
		models.PerformersCodec.Encode(c.Performers),
		c.Venue,
		c.Country,
		c.City,
		models.FormatDate(c.Date),
		rating,
		c.Notes,
		models.MediaCodec.Encode(c.MediaPaths),
	}
}

// writeCSV quotes every field; encoding/csv only quotes when required.
func writeCSV(w io.Writer, concerts []models.Concert) error {
	bw := bufio.NewWriter(w)
	writeLine := func(fields []string) {
		for i, f := range fields {
			if i > 0 {
				bw.WriteByte(',')
			}
			bw.WriteByte('"')
			bw.WriteString(strings.ReplaceAll(f, `"`, `""`))
			bw.WriteByte('"')
		}
		bw.WriteString("\r\n")
	}

	writeLine(Columns)
	for _, c := range concerts {
		writeLine(Record(c))
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func writeXLSX(w io.Writer, concerts []models.Concert) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	widths := make([]int, len(Columns))
	track := func(values []string) {
		for i, v := range values {
			if n := utf8.RuneCountInString(v); n > widths[i] {
				widths[i] = n
			}
		}
	}

	header := make([]any, len(Columns))
	for i, col := range Columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	track(Columns)

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(Columns))
	if err := f.SetCellStyle(sheetName, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}

	for i, c := range concerts {
		record := Record(c)
		track(record)

		row := make([]any, len(record))
		for j, v := range record {
			row[j] = v
		}
		if c.Rating != 0 {
			row[colRating] = c.Rating
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheetName, cellRef, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	for i, width := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if width > maxColWidth {
			width = maxColWidth
		}
		if err := f.SetColWidth(sheetName, col, col, float64(width+2)); err != nil {
			return fmt.Errorf("size column %s: %w", col, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
