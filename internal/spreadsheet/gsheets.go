package spreadsheet

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"tiervc/internal/infrastructure"
)

// DefaultSheetRange is read when no range is given
const DefaultSheetRange = "A1:Z"

// SheetsSource reads startup lists from Google Sheets
type SheetsSource struct {
	service *sheets.Service
	logger  *slog.Logger
}

// NewSheetsSource creates a read-only Sheets client. credentialsFile is a
// service account JSON key; when empty, application default credentials
// are used.
func NewSheetsSource(ctx context.Context, credentialsFile string, logger *slog.Logger, opts ...option.ClientOption) (*SheetsSource, error) {
	if credentialsFile != "" {
		data, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read sheets credentials: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(data))
	}
	opts = append(opts, option.WithScopes(sheets.SpreadsheetsReadonlyScope))

	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &SheetsSource{
		service: service,
		logger:  infrastructure.WithComponent(logger, "spreadsheet.sheets"),
	}, nil
}

// Fetch returns the cell values of readRange as strings
func (s *SheetsSource) Fetch(ctx context.Context, sheetID, readRange string) ([][]string, error) {
	if readRange == "" {
		readRange = DefaultSheetRange
	}

	resp, err := s.service.Spreadsheets.Values.Get(sheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet %s range %s: %w", sheetID, readRange, err)
	}

	rows := make([][]string, len(resp.Values))
	for i, values := range resp.Values {
		row := make([]string, len(values))
		for j, v := range values {
			if v != nil {
				row[j] = fmt.Sprint(v)
			}
		}
		rows[i] = row
	}

	s.logger.InfoContext(ctx, "sheet_fetched",
		slog.String("sheet_id", sheetID),
		slog.String("range", readRange),
		slog.Int("rows", len(rows)))
	return rows, nil
}
