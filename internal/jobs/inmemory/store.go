package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Vishun-Projects/Finance-sub000/internal/jobs"
)

// Store is an in-memory implementation of JobStore.
// It stores jobs in memory and is safe for concurrent use.
// Data is lost on service restart - for persistence, use a database-backed store.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*jobs.CategorizeJob
}

// NewStore creates a new in-memory job store.
func NewStore() *Store {
	return &Store{
		jobs: make(map[string]*jobs.CategorizeJob),
	}
}

func copyJob(job *jobs.CategorizeJob) *jobs.CategorizeJob {
	jobCopy := *job
	jobCopy.TransactionIDs = append([]string(nil), job.TransactionIDs...)
	jobCopy.Done = make(map[string]bool, len(job.Done))
	for id, done := range job.Done {
		jobCopy.Done[id] = done
	}
	return &jobCopy
}

// SaveJob implements the JobStore interface.
// It saves or updates a job in memory.
func (s *Store) SaveJob(ctx context.Context, job *jobs.CategorizeJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Never shrink the done set: a stale save from a slower writer must not
	// roll progress back.
	if existing, ok := s.jobs[job.JobID]; ok {
		for id, done := range existing.Done {
			if done && !job.Done[id] {
				if job.Done == nil {
					job.Done = make(map[string]bool)
				}
				job.Done[id] = true
			}
		}
	}

	s.jobs[job.JobID] = copyJob(job)
	return nil
}

// GetJob implements the JobStore interface.
// It retrieves a job by ID from memory.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.CategorizeJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	return copyJob(job), nil
}

// ListJobs implements the JobStore interface.
// It retrieves jobs with optional filtering from memory.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.CategorizeJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*jobs.CategorizeJob

	for _, job := range s.jobs {
		if filter.UserID != "" && job.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		result = append(result, copyJob(job))
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*jobs.CategorizeJob{}, nil
		}
		result = result[filter.Offset:]
	}

	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}

// MarkCategorized implements the JobStore interface.
// The done set only ever grows, keeping reported progress monotonic.
func (s *Store) MarkCategorized(ctx context.Context, jobID string, transactionIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}
	if job.Done == nil {
		job.Done = make(map[string]bool, len(transactionIDs))
	}
	for _, id := range transactionIDs {
		job.Done[id] = true
	}
	return nil
}

// UpdateJobStatus implements the JobStore interface.
// It updates the status of a job in memory.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}

	return nil
}

// Ensure Store implements JobStore interface.
var _ jobs.JobStore = (*Store)(nil)
