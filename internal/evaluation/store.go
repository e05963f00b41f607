package evaluation

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"tiervc/pkg/contracts/domain"
)

// BatchStatus is the lifecycle state of a batch
type BatchStatus string

const (
	BatchStatusRunning   BatchStatus = "running"
	BatchStatusCompleted BatchStatus = "completed"
	BatchStatusFailed    BatchStatus = "failed"
	BatchStatusCancelled BatchStatus = "cancelled"
)

// DefaultMaxBatches is the retention used when none is configured
const DefaultMaxBatches = 20

// Batch is one evaluation run and, once completed, its results
type Batch struct {
	ID          string
	Status      BatchStatus
	Source      string
	Total       int
	Results     []domain.EvaluationResult
	TierCounts  domain.TierCounts
	Failed      int
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// Finished reports whether the batch has left the running state
func (b *Batch) Finished() bool {
	return b.Status != BatchStatusRunning
}

func (b *Batch) clone() *Batch {
	c := *b
	c.Results = slices.Clone(b.Results)
	if b.TierCounts != nil {
		c.TierCounts = make(domain.TierCounts, len(b.TierCounts))
		for k, v := range b.TierCounts {
			c.TierCounts[k] = v
		}
	}
	if b.CompletedAt != nil {
		t := *b.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// MemoryStore keeps batches in memory. At most one batch runs at a time and
// only the newest maxBatches finished batches are retained.
type MemoryStore struct {
	mu         sync.RWMutex
	batches    map[string]*Batch
	order      []string
	activeID   string
	latestID   string
	maxBatches int
	now        func() time.Time
}

// NewMemoryStore creates a store retaining up to maxBatches finished batches
func NewMemoryStore(maxBatches int) *MemoryStore {
	if maxBatches <= 0 {
		maxBatches = DefaultMaxBatches
	}
	return &MemoryStore{
		batches:    make(map[string]*Batch),
		maxBatches: maxBatches,
		now:        time.Now,
	}
}

// BeginBatch registers a running batch, or fails with ErrBatchInProgress
func (s *MemoryStore) BeginBatch(source string, total int) (*Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeID != "" {
		return nil, ErrBatchInProgress
	}

	b := &Batch{
		ID:        uuid.NewString(),
		Status:    BatchStatusRunning,
		Source:    source,
		Total:     total,
		StartedAt: s.now(),
	}
	s.batches[b.ID] = b
	s.order = append(s.order, b.ID)
	s.activeID = b.ID
	return b.clone(), nil
}

// Complete stores the batch results, replacing any previous ones, and
// makes the batch the latest completed one
func (s *MemoryStore) Complete(id string, results []domain.EvaluationResult, failed int) (*Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.running(id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	b.Status = BatchStatusCompleted
	b.Results = slices.Clone(results)
	b.TierCounts = domain.CountTiers(results)
	b.Failed = failed
	b.CompletedAt = &now

	s.latestID = id
	s.finish()
	return b.clone(), nil
}

// Fail ends a running batch with status (failed or cancelled)
func (s *MemoryStore) Fail(id string, status BatchStatus, cause error) error {
	if status != BatchStatusFailed && status != BatchStatusCancelled {
		return fmt.Errorf("invalid terminal status %q", status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.running(id)
	if err != nil {
		return err
	}

	now := s.now()
	b.Status = status
	b.CompletedAt = &now
	if cause != nil {
		b.Error = cause.Error()
	}
	s.finish()
	return nil
}

// Get returns a copy of the batch
func (s *MemoryStore) Get(id string) (*Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.batches[id]
	if !ok {
		return nil, fmt.Errorf("batch %s: %w", id, ErrBatchNotFound)
	}
	return b.clone(), nil
}

// Latest returns the most recently completed batch, or ErrNoResults
func (s *MemoryStore) Latest() (*Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.batches[s.latestID]
	if !ok {
		return nil, ErrNoResults
	}
	return b.clone(), nil
}

// Active returns the id of the running batch, if any
func (s *MemoryStore) Active() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID, s.activeID != ""
}

// List returns every retained batch, newest first
func (s *MemoryStore) List() []*Batch {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Batch, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		result = append(result, s.batches[s.order[i]].clone())
	}
	return result
}

func (s *MemoryStore) running(id string) (*Batch, error) {
	b, ok := s.batches[id]
	if !ok {
		return nil, fmt.Errorf("batch %s: %w", id, ErrBatchNotFound)
	}
	if b.Finished() {
		return nil, fmt.Errorf("batch %s has already finished", id)
	}
	return b, nil
}

// finish clears the active slot and drops the oldest finished batches over
// the retention limit. The latest completed batch is never dropped.
func (s *MemoryStore) finish() {
	s.activeID = ""

	excess := len(s.order) - s.maxBatches
	if excess <= 0 {
		return
	}
	kept := s.order[:0]
	for _, id := range s.order {
		if excess > 0 && id != s.latestID && s.batches[id].Finished() {
			delete(s.batches, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}
