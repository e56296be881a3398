// Package transfer moves concerts in and out of CSV files and Excel workbooks.
package transfer

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Format is a supported file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var (
	// ErrUnsupportedFormat is returned for anything other than csv or xlsx.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrUnreadable wraps failures to parse the file as a whole.
	ErrUnreadable = errors.New("unreadable file")
)

// Columns is the fixed column order shared by import and export.
var Columns = []string{
	"EventTitle", "Performers", "Venue", "Country", "City",
	"Date", "Rating", "Notes", "MediaPaths",
}

const (
	colTitle = iota
	colPerformers
	colVenue
	colCountry
	colCity
	colDate
	colRating
	colNotes
	colMedia
)

// ParseFormat accepts "csv" or "xlsx" in any case, with or without a dot.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(raw)), ".")) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, raw)
}

// FormatFromPath derives the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// ContentType is the MIME type for a format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}
