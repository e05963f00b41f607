// Package services holds the application use cases that sit between the
// HTTP handlers and the evaluation core.
//
// # Evaluation flow
//
// EvaluationService turns an upload into a Submission, admits it as a
// single running batch and streams the batch:
//
//	sub, err := svc.ParseUpload(ctx, "startups.xlsx", content)
//	run, err := svc.Begin(sub)          // ErrBatchInProgress while another runs
//	batch, err := run.Stream(ctx, sink) // mapping, startups, log/result..., complete
//
// Events go through an unbounded queue to the sink and are mirrored to the
// WebSocket hub. A sink error, a client disconnect or the idle timeout
// cancels every in-flight record pipeline.
//
// # Results
//
// Completed batches are kept in an in-memory store. Latest and Get return
// copies; ExportLatest and Export render them as an XLSX workbook.
package services
