// Package spreadsheet reads startup lists from CSV, XLSX and Google Sheets
// and writes evaluation results back out as a workbook.
package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"tiervc/internal/infrastructure"
	"tiervc/pkg/contracts/domain"
)

// DefaultMaxRecords caps how many startups one sheet may contribute
const DefaultMaxRecords = 10

var (
	// ErrEmptyInput is returned for an upload with no bytes or no rows
	ErrEmptyInput = errors.New("spreadsheet is empty")

	// ErrUnreadable is returned when the content is neither XLSX nor CSV
	ErrUnreadable = errors.New("spreadsheet could not be read")
)

var (
	xlsxMagic = []byte("PK\x03\x04")
	// legacy .xls (OLE compound file)
	oleMagic = []byte("\xD0\xCF\x11\xE0\xA1\xB1\x1A\xE1")
)

// Parser turns spreadsheet rows into input records
type Parser struct {
	maxRecords int
	logger     *slog.Logger
}

// NewParser creates a parser keeping at most maxRecords records
func NewParser(maxRecords int, logger *slog.Logger) *Parser {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	return &Parser{
		maxRecords: maxRecords,
		logger:     infrastructure.WithComponent(logger, "spreadsheet"),
	}
}

// MaxRecords returns how many records one submission may contribute
func (p *Parser) MaxRecords() int { return p.maxRecords }

// Parse reads an XLSX workbook (first sheet) or CSV file
func (p *Parser) Parse(content []byte) ([]domain.InputRecord, Mapping, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, nil, ErrEmptyInput
	}

	var (
		rows [][]string
		err  error
	)
	switch {
	case bytes.HasPrefix(content, oleMagic):
		return nil, nil, fmt.Errorf("%w: legacy .xls workbooks are not supported, save as .xlsx or .csv", ErrUnreadable)
	case bytes.HasPrefix(content, xlsxMagic):
		rows, err = readXLSX(content)
	default:
		rows, err = readCSV(content)
	}
	if err != nil {
		return nil, nil, err
	}
	return p.ParseRows(rows)
}

// ParseRows maps raw rows to records. The header row is detected among the
// first rows; rows with neither a name nor a description are skipped.
func (p *Parser) ParseRows(rows [][]string) ([]domain.InputRecord, Mapping, error) {
	if len(rows) == 0 {
		return nil, nil, ErrEmptyInput
	}

	headerIdx := DetectHeaderRow(rows)
	mapping := DetectMapping(rows[headerIdx])

	records := make([]domain.InputRecord, 0, p.maxRecords)
	skipped := 0
	for _, row := range rows[headerIdx+1:] {
		record := recordFromRow(row, mapping)
		if record.IsBlank() {
			skipped++
			continue
		}
		records = append(records, record.WithDefaults())
		if len(records) >= p.maxRecords {
			break
		}
	}

	p.logger.Debug("spreadsheet_parsed",
		slog.Int("header_row", headerIdx),
		slog.Int("records", len(records)),
		slog.Int("skipped", skipped),
		slog.Any("mapping", mapping.Map()))
	return records, mapping, nil
}

func recordFromRow(row []string, m Mapping) domain.InputRecord {
	cell := func(field string) string {
		for _, fm := range m {
			if fm.Field == field {
				if fm.index < 0 || fm.index >= len(row) {
					return ""
				}
				return strings.TrimSpace(row[fm.index])
			}
		}
		return ""
	}

	return domain.InputRecord{
		Name:         cell(FieldName),
		Description:  cell(FieldDescription),
		Industry:     cell(FieldIndustry),
		Stage:        cell(FieldStage),
		FounderName:  cell(FieldFounderName),
		LinkedInURL:  cell(FieldLinkedInURL),
		Website:      cell(FieldWebsite),
		TotalRaisedM: CleanTotalRaised(cell(FieldTotalRaisedM)),
		Location:     cell(FieldLocation),
		Employees:    parseEmployees(cell(FieldEmployees)),
		Traction:     cell(FieldTraction),
		Competitors:  cell(FieldCompetitors),
	}
}

// CleanTotalRaised parses amounts like "$2.5M" or "1,200" in millions.
// Anything unparseable or negative is 0.
func CleanTotalRaised(s string) float64 {
	s = strings.NewReplacer("$", "", ",", "", "M", "", "m", "").Replace(strings.TrimSpace(s))
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func parseEmployees(s string) int {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return int(f)
	}
	return 0
}

func readXLSX(content []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", ErrUnreadable, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyInput
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrUnreadable, sheets[0], err)
	}
	return rows, nil
}

func readCSV(content []byte) ([][]string, error) {
	text := strings.ToValidUTF8(string(content), "\uFFFD")
	text = strings.TrimPrefix(text, "\ufeff")

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return rows, nil
}
