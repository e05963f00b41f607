package exporter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"tiervc/internal/spreadsheet"
	"tiervc/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ResultsHeader lists the CSV columns: the workbook columns plus the tier
// label and processing time
var ResultsHeader = []string{
	"Company Name", "Tier", "Tier Label", "Score (0-100)", "Invest?", "Confidence",
	"Top Pro Argument", "Top Risk", "Founder", "LinkedIn", "Website", "Processing Time (s)",
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	BOMPrefix bool // helps Excel recognize UTF-8
	NoHeader  bool
}

// ResultsCSV renders results as a BOM-prefixed CSV, highest score first
func ResultsCSV(results []domain.EvaluationResult) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteResultsCSV(&buf, results, WriteOptions{BOMPrefix: true}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteResultsCSV writes results to w, highest score first
func WriteResultsCSV(w io.Writer, results []domain.EvaluationResult, opts WriteOptions) error {
	if opts.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if !opts.NoHeader {
		if err := writer.Write(ResultsHeader); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, r := range spreadsheet.SortByScore(results) {
		record := []string{
			r.Name,
			strconv.Itoa(r.Tier),
			r.TierLabel,
			strconv.Itoa(r.Score),
			r.Invest,
			r.Confidence,
			r.TopPro,
			r.TopRisk,
			r.FounderName,
			r.LinkedInURL,
			r.Website,
			formatSeconds(r.ProcessingTime.Seconds()),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
