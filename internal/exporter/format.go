package exporter

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"tiervc/internal/spreadsheet"
	"tiervc/pkg/contracts/domain"
)

// Format is a download format
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ContentTypeCSV is the MIME type of a CSV export
const ContentTypeCSV = "text/csv; charset=utf-8"

// ErrUnknownFormat is returned by ParseFormat
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat accepts "xlsx", "csv" or "" (xlsx)
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatFromFilename picks CSV for a .csv path and XLSX otherwise
func FormatFromFilename(name string) Format {
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		return FormatCSV
	}
	return FormatXLSX
}

// File is a rendered export
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Render produces baseName.<format> for results
func Render(format Format, baseName string, results []domain.EvaluationResult) (File, error) {
	switch format {
	case FormatCSV:
		data, err := ResultsCSV(results)
		if err != nil {
			return File{}, err
		}
		return File{Name: baseName + ".csv", ContentType: ContentTypeCSV, Data: data}, nil
	case FormatXLSX, "":
		data, err := spreadsheet.Export(results)
		if err != nil {
			return File{}, err
		}
		return File{Name: baseName + ".xlsx", ContentType: spreadsheet.ContentTypeXLSX, Data: data}, nil
	}
	return File{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// formatSeconds formats a duration column with exactly 2 decimal places
func formatSeconds(s float64) string {
	return fmt.Sprintf("%.2f", s)
}
