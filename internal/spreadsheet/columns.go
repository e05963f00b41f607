package spreadsheet

import (
	"strings"
)

// Record fields in mapping order
const (
	FieldName         = "name"
	FieldDescription  = "description"
	FieldIndustry     = "industry"
	FieldStage        = "stage"
	FieldFounderName  = "founder_name"
	FieldLinkedInURL  = "linkedin_url"
	FieldWebsite      = "website"
	FieldTotalRaisedM = "total_raised_m"
	FieldLocation     = "location"
	FieldEmployees    = "employees"
	FieldTraction     = "traction"
	FieldCompetitors  = "competitors"
)

// headerScanRows is how many leading rows may hold the header
const headerScanRows = 10

type fieldKeywords struct {
	field    string
	keywords []string
}

// fieldTable lists, per field, the header keywords in preference order
var fieldTable = []fieldKeywords{
	{FieldName, []string{"company name", "company", "startup name", "startup", "name", "companies", "organization"}},
	{FieldDescription, []string{"description", "desc", "about", "summary", "overview", "pitch", "business description"}},
	{FieldIndustry, []string{"industry", "sector", "primary industry", "vertical", "category", "primary industry group"}},
	{FieldStage, []string{"stage", "financing stage", "deal type", "round", "last financing deal type", "series"}},
	{FieldFounderName, []string{"founder", "co-founder", "founders", "primary contact", "ceo", "contact name"}},
	{FieldLinkedInURL, []string{"linkedin", "linkedin url", "linkedin profile"}},
	{FieldWebsite, []string{"website", "url", "web", "site", "homepage", "company url"}},
	{FieldTotalRaisedM, []string{"total raised", "amount raised", "raised", "total funding", "capital raised", "funding amount"}},
	{FieldLocation, []string{"location", "city", "hq", "headquarters", "hq location", "hq city"}},
	{FieldEmployees, []string{"employees", "headcount", "team size", "employee count"}},
	{FieldTraction, []string{"traction", "revenue", "mrr", "arr", "growth", "metrics"}},
	{FieldCompetitors, []string{"competitors", "competition", "alternatives"}},
}

// Fields returns the record fields in mapping order
func Fields() []string {
	fields := make([]string, len(fieldTable))
	for i, f := range fieldTable {
		fields[i] = f.field
	}
	return fields
}

// FieldMapping binds a record field to a source column. Column is empty
// when no header matched.
type FieldMapping struct {
	Field  string `json:"field"`
	Column string `json:"column"`
	index  int
}

// Mapping is the column report for one sheet, in Fields() order
type Mapping []FieldMapping

// Column returns the header matched to field
func (m Mapping) Column(field string) string {
	for _, fm := range m {
		if fm.Field == field {
			return fm.Column
		}
	}
	return ""
}

// Map returns the mapping as field → column
func (m Mapping) Map() map[string]string {
	out := make(map[string]string, len(m))
	for _, fm := range m {
		out[fm.Field] = fm.Column
	}
	return out
}

// NormalizeHeader lowercases s and keeps only ASCII letters, digits and spaces
func NormalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DetectHeaderRow returns the index of the row among the first ten with the
// most keyword hits. Ties keep the earliest row.
func DetectHeaderRow(rows [][]string) int {
	best, bestScore := 0, 0
	for i, row := range rows {
		if i >= headerScanRows {
			break
		}
		score := 0
		for _, cell := range row {
			norm := NormalizeHeader(cell)
			for _, f := range fieldTable {
				for _, kw := range f.keywords {
					if strings.Contains(norm, NormalizeHeader(kw)) {
						score++
					}
				}
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

// DetectMapping matches each field to a header column. Exact matches win
// over prefix matches, which win over substring matches; within a
// priority, earlier keywords win, then earlier columns.
func DetectMapping(header []string) Mapping {
	norm := make([]string, len(header))
	for i, h := range header {
		norm[i] = NormalizeHeader(h)
	}

	matchers := []func(h, kw string) bool{
		func(h, kw string) bool { return h == kw },
		strings.HasPrefix,
		strings.Contains,
	}

	mapping := make(Mapping, 0, len(fieldTable))
	for _, f := range fieldTable {
		fm := FieldMapping{Field: f.field, index: -1}
	search:
		for _, match := range matchers {
			for _, kw := range f.keywords {
				kw = NormalizeHeader(kw)
				for i, h := range norm {
					if h != "" && match(h, kw) {
						fm.Column, fm.index = header[i], i
						break search
					}
				}
			}
		}
		mapping = append(mapping, fm)
	}
	return mapping
}
