package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeCategorize represents a background transaction categorization job.
	JobTypeCategorize JobType = "categorize_transactions"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job exhausted its retry budget.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// CategorizeJob tracks one background categorization run over an ordered set
// of transaction ids. The job is server-side state: it keeps running and
// recording progress whether or not any client is still polling.
type CategorizeJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// UserID is the owner of the transactions being categorized. Job state
	// is always keyed by (user, job), never global, so concurrent imports
	// from different sessions cannot collide.
	UserID string `json:"user_id"`

	// TransactionIDs is the ordered set of transactions to categorize.
	TransactionIDs []string `json:"transaction_ids"`

	// UseAI enables the model fallback for items the rule and pattern
	// stages cannot resolve.
	UseAI bool `json:"use_ai"`

	// Done records the ids that have been categorized (or conclusively
	// skipped). It only ever grows, which is what makes reported progress
	// monotonic across polls.
	Done map[string]bool `json:"done"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the job started processing.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the job completed (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// RetryCount is the number of times this job has been retried.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the maximum number of retries allowed.
	MaxRetries int `json:"max_retries"`
}

// Total returns the number of transactions the job covers.
func (j *CategorizeJob) Total() int {
	return len(j.TransactionIDs)
}

// Categorized returns how many of the job's transactions are done.
func (j *CategorizeJob) Categorized() int {
	n := 0
	for _, id := range j.TransactionIDs {
		if j.Done[id] {
			n++
		}
	}
	return n
}

// Progress returns completion as a 0-100 percentage.
func (j *CategorizeJob) Progress() int {
	total := j.Total()
	if total == 0 {
		return 100
	}
	return j.Categorized() * 100 / total
}

// IsActive reports whether the job is still making progress server-side.
func (j *CategorizeJob) IsActive() bool {
	return j.Status == JobStatusPending || j.Status == JobStatusRunning || j.Status == JobStatusRetrying
}

// Job is a generic interface for all job types.
type Job interface {
	// GetID returns the unique job identifier.
	GetID() string

	// GetType returns the job type.
	GetType() JobType

	// GetStatus returns the current job status.
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *CategorizeJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *CategorizeJob) GetType() JobType {
	return JobTypeCategorize
}

// GetStatus implements the Job interface.
func (j *CategorizeJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher defines the interface for publishing jobs to a queue.
// This abstraction allows for different queue implementations.
type Publisher interface {
	// PublishCategorize publishes a background categorization job.
	PublishCategorize(ctx context.Context, job *CategorizeJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler is a function that processes a job.
// It should return an error if the job failed and should be retried.
type JobHandler func(ctx context.Context, job Job) error

// JobStore defines the interface for storing and retrieving job state. The
// polling endpoint reads progress from here independently of the worker that
// is running the job.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *CategorizeJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*CategorizeJob, error)

	// ListJobs retrieves jobs with optional filtering.
	ListJobs(ctx context.Context, filter JobFilter) ([]*CategorizeJob, error)

	// MarkCategorized records transaction ids as done for a job. The done
	// set only grows; marking an already-done id is a no-op.
	MarkCategorized(ctx context.Context, jobID string, transactionIDs ...string) error

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// UserID filters jobs by owner.
	UserID string

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
