// Package exporter renders evaluation results for download.
//
// Two formats are supported: the shaded XLSX workbook built by the
// spreadsheet package and a flat CSV with a UTF-8 BOM so Excel opens it with
// the right encoding. Both list results highest score first.
//
// Example usage:
//
//	file, err := exporter.Render(exporter.FormatCSV, "TierVC_results", batch.Results)
//	w.Header().Set("Content-Type", file.ContentType)
//	w.Write(file.Data)
package exporter
