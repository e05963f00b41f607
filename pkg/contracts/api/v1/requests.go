// Package api contains the HTTP request and response contracts of the TierVC API.
package api

import (
	"time"

	"tiervc/pkg/contracts/domain"
)

// EvaluateRequest is the JSON alternative to a spreadsheet upload. The
// server keeps the first evaluation.max_records records, as it does for
// uploads.
type EvaluateRequest struct {
	Records []domain.InputRecord `json:"records" validate:"required,min=1,dive"`
}

// StatusResponse is returned from the API root
type StatusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// BatchResponse describes one evaluated batch
type BatchResponse struct {
	ID          string                    `json:"id"`
	Status      string                    `json:"status"`
	Source      string                    `json:"source,omitempty"`
	Total       int                       `json:"total"`
	Failed      int                       `json:"failed"`
	TierCounts  domain.TierCounts         `json:"tier_counts"`
	Results     []domain.EvaluationResult `json:"results"`
	StartedAt   time.Time                 `json:"started_at"`
	CompletedAt *time.Time                `json:"completed_at,omitempty"`
	Error       string                    `json:"error,omitempty"`
}

// BatchListResponse lists retained batches, newest first
type BatchListResponse struct {
	Batches []BatchResponse `json:"batches"`
}
