package spreadsheet

import (
	"fmt"
	"slices"

	"github.com/xuri/excelize/v2"

	"tiervc/pkg/contracts/domain"
)

const (
	// ResultsSheet names the single sheet of an exported workbook
	ResultsSheet = "TierVC Results"
	// ResultsFilename is the download name of an exported workbook
	ResultsFilename = "TierVC_results.xlsx"
	// ContentTypeXLSX is the MIME type of an exported workbook
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var resultHeader = []any{
	"Company Name", "Tier", "Score (0-100)", "Invest?", "Confidence",
	"Top Pro Argument", "Top Risk", "Founder", "LinkedIn", "Website",
}

var columnWidths = []float64{20, 8, 12, 10, 10, 30, 30, 15, 30, 30}

var tierFills = map[int]string{
	1: "C6EFCE",
	2: "FFF9C4",
	3: "FFCDD2",
}

// SortByScore returns results ordered by score, highest first. Equal scores
// keep their input order.
func SortByScore(results []domain.EvaluationResult) []domain.EvaluationResult {
	sorted := slices.Clone(results)
	slices.SortStableFunc(sorted, func(a, b domain.EvaluationResult) int {
		return b.Score - a.Score
	})
	return sorted
}

// Export renders results as an XLSX workbook, highest score first, with each
// row shaded by tier
func Export(results []domain.EvaluationResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ResultsSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	fills := make(map[int]int, len(tierFills))
	for tier, color := range tierFills {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
		})
		if err != nil {
			return nil, fmt.Errorf("create tier %d style: %w", tier, err)
		}
		fills[tier] = id
	}

	lastCol, _ := excelize.ColumnNumberToName(len(resultHeader))

	if err := f.SetSheetRow(ResultsSheet, "A1", &resultHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if err := f.SetCellStyle(ResultsSheet, "A1", lastCol+"1", bold); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for i, r := range SortByScore(results) {
		rowNum := i + 2
		row := []any{
			r.Name, r.Tier, r.Score, r.Invest, r.Confidence,
			r.TopPro, r.TopRisk, r.FounderName, r.LinkedInURL, r.Website,
		}
		start := fmt.Sprintf("A%d", rowNum)
		if err := f.SetSheetRow(ResultsSheet, start, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", rowNum, err)
		}
		if style, ok := fills[r.Tier]; ok {
			if err := f.SetCellStyle(ResultsSheet, start, fmt.Sprintf("%s%d", lastCol, rowNum), style); err != nil {
				return nil, fmt.Errorf("style row %d: %w", rowNum, err)
			}
		}
	}

	for i, width := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(ResultsSheet, col, col, width); err != nil {
			return nil, fmt.Errorf("set width of %s: %w", col, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
