package exporter

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiervc/internal/spreadsheet"
	"tiervc/pkg/contracts/domain"
)

func sampleResults() []domain.EvaluationResult {
	return []domain.EvaluationResult{
		{Name: "Low", Tier: 3, TierLabel: domain.LabelReject, Score: 30, Invest: domain.InvestNo, Confidence: domain.ConfidenceMedium, ProcessingTime: 1500 * time.Millisecond},
		{Name: "High, Inc.", Tier: 1, TierLabel: domain.LabelAccept, Score: 91, Invest: domain.InvestYes, Confidence: domain.ConfidenceHigh, TopPro: `Says "wow"`},
		{Name: "Mid", Tier: 2, TierLabel: domain.LabelInterview, Score: 60, Invest: domain.InvestMaybe, Confidence: domain.ConfidenceMedium},
	}
}

func TestResultsCSV(t *testing.T) {
	data, err := ResultsCSV(sampleResults())
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, utf8BOM))

	rows, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, ResultsHeader, rows[0])
	assert.Equal(t, "High, Inc.", rows[1][0])
	assert.Equal(t, `Says "wow"`, rows[1][6])
	assert.Equal(t, "Mid", rows[2][0])
	assert.Equal(t, "Low", rows[3][0])
	assert.Equal(t, "1.50", rows[3][11])
	assert.Equal(t, "Reject", rows[3][2])
}

func TestWriteResultsCSVOptions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResultsCSV(&buf, nil, WriteOptions{}))
	assert.False(t, bytes.HasPrefix(buf.Bytes(), utf8BOM))
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("\n")))

	buf.Reset()
	require.NoError(t, WriteResultsCSV(&buf, sampleResults(), WriteOptions{NoHeader: true}))
	assert.Equal(t, 3, bytes.Count(buf.Bytes(), []byte("\n")))
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatXLSX, false},
		{"xlsx", FormatXLSX, false},
		{" CSV ", FormatCSV, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, FormatCSV, FormatFromFilename("out/results.CSV"))
	assert.Equal(t, FormatXLSX, FormatFromFilename("results.xlsx"))
	assert.Equal(t, FormatXLSX, FormatFromFilename("results"))
}

func TestRender(t *testing.T) {
	f, err := Render(FormatCSV, "TierVC_results", sampleResults())
	require.NoError(t, err)
	assert.Equal(t, "TierVC_results.csv", f.Name)
	assert.Equal(t, ContentTypeCSV, f.ContentType)

	f, err = Render(FormatXLSX, "TierVC_results", sampleResults())
	require.NoError(t, err)
	assert.Equal(t, spreadsheet.ResultsFilename, f.Name)
	assert.Equal(t, spreadsheet.ContentTypeXLSX, f.ContentType)
	assert.True(t, bytes.HasPrefix(f.Data, []byte("PK")))

	_, err = Render("pdf", "x", nil)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
