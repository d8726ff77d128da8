package categorize

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Vishun-Projects/Finance-sub000/internal/domain"
	"github.com/Vishun-Projects/Finance-sub000/internal/jobs"
	"github.com/Vishun-Projects/Finance-sub000/internal/metrics"
)

// CategoryStore is the persistence surface the orchestrator needs.
type CategoryStore interface {
	// ListActiveCategories returns the active taxonomy.
	ListActiveCategories(ctx context.Context) ([]domain.Category, error)

	// GetTransactionsByIDs loads a user's transactions by id. Unknown ids
	// are skipped, not an error.
	GetTransactionsByIDs(ctx context.Context, userID string, ids []string) ([]*domain.Transaction, error)

	// SetTransactionCategory assigns a category (and optionally corrects the
	// coarse financial type) on one transaction.
	SetTransactionCategory(ctx context.Context, userID, transactionID, categoryID string, financialType domain.FinancialCategory) error
}

const (
	// DefaultBackoff is how long the orchestrator sleeps after an upstream
	// rate limit before retrying the same sub-batch.
	DefaultBackoff = 40 * time.Second

	// DefaultSubBatchSize is how many unresolved transactions go to the
	// model per request.
	DefaultSubBatchSize = 20

	// DefaultMaxIterations bounds the classify/backoff loop so a
	// persistently failing upstream cannot spin a job forever.
	DefaultMaxIterations = 50
)

// Orchestrator drives the three-stage categorization process: static rule
// table, learned pattern store, AI fallback. Small batches run inline in the
// request; large batches run as a tracked background job that survives the
// originating client disconnecting.
type Orchestrator struct {
	store      CategoryStore
	rules      *RuleTable
	patterns   PatternStore
	classifier Classifier

	publisher jobs.Publisher
	jobStore  jobs.JobStore

	backoff       time.Duration
	subBatchSize  int
	maxIterations int

	log zerolog.Logger
}

// OrchestratorOption customizes an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithBackoff overrides the rate-limit backoff interval.
func WithBackoff(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.backoff = d
		}
	}
}

// WithSubBatchSize overrides how many items are sent to the model at once.
func WithSubBatchSize(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.subBatchSize = n
		}
	}
}

// WithMaxIterations overrides the retry-loop safety cap.
func WithMaxIterations(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxIterations = n
		}
	}
}

// WithPatternStore wires the learned-pattern stage.
func WithPatternStore(p PatternStore) OrchestratorOption {
	return func(o *Orchestrator) { o.patterns = p }
}

// WithClassifier wires the AI fallback stage.
func WithClassifier(c Classifier) OrchestratorOption {
	return func(o *Orchestrator) { o.classifier = c }
}

// NewOrchestrator assembles the categorization orchestrator. publisher and
// jobStore may be nil when background mode is not wired (inline only).
func NewOrchestrator(store CategoryStore, rules *RuleTable, publisher jobs.Publisher, jobStore jobs.JobStore, log zerolog.Logger, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		store:         store,
		rules:         rules,
		publisher:     publisher,
		jobStore:      jobStore,
		backoff:       DefaultBackoff,
		subBatchSize:  DefaultSubBatchSize,
		maxIterations: DefaultMaxIterations,
		log:           log,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CategorizeInline classifies a small batch synchronously and applies the
// results before returning. Only transactions without a category are
// candidates; re-running over an already-categorized batch is a no-op.
func (o *Orchestrator) CategorizeInline(ctx context.Context, userID string, txs []*domain.Transaction, useAI bool) (int, error) {
	return o.categorizeSet(ctx, userID, txs, useAI, false, nil)
}

// Recategorize forces re-classification of the given transactions even if
// they already carry a category.
func (o *Orchestrator) Recategorize(ctx context.Context, userID string, txs []*domain.Transaction, useAI bool) (int, error) {
	return o.categorizeSet(ctx, userID, txs, useAI, true, nil)
}

// LaunchBackground persists a categorization job and returns immediately.
// The job is processed by queue workers and keeps running to completion (or
// retry-budget exhaustion) regardless of the client's polling behavior.
func (o *Orchestrator) LaunchBackground(ctx context.Context, userID string, transactionIDs []string, useAI bool) (string, error) {
	if o.publisher == nil {
		return "", fmt.Errorf("LaunchBackground: no job publisher configured")
	}
	job := &jobs.CategorizeJob{
		UserID:         userID,
		TransactionIDs: transactionIDs,
		UseAI:          useAI,
	}
	if err := o.publisher.PublishCategorize(ctx, job); err != nil {
		return "", fmt.Errorf("LaunchBackground: %w", err)
	}
	o.log.Info().
		Str("job_id", job.JobID).
		Str("user_id", userID).
		Int("total", len(transactionIDs)).
		Msg("Background categorization job enqueued")
	return job.JobID, nil
}

// HandleJob is the queue worker entrypoint for categorization jobs. Progress
// is written to the job store after every item so pollers observe a
// monotonically increasing count; a retried job revisits only undone ids.
func (o *Orchestrator) HandleJob(ctx context.Context, job jobs.Job) error {
	catJob, ok := job.(*jobs.CategorizeJob)
	if !ok {
		return fmt.Errorf("HandleJob: unexpected job type %T", job)
	}

	pending := make([]string, 0, len(catJob.TransactionIDs))
	for _, id := range catJob.TransactionIDs {
		if !catJob.Done[id] {
			pending = append(pending, id)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	txs, err := o.store.GetTransactionsByIDs(ctx, catJob.UserID, pending)
	if err != nil {
		return fmt.Errorf("HandleJob: loading transactions: %w", err)
	}

	onDone := func(txID string) {
		catJob.Done[txID] = true
		if o.jobStore != nil {
			if err := o.jobStore.MarkCategorized(ctx, catJob.JobID, txID); err != nil {
				o.log.Warn().Err(err).Str("job_id", catJob.JobID).Msg("Failed to record job progress")
			}
		}
	}

	count, err := o.categorizeSet(ctx, catJob.UserID, txs, catJob.UseAI, false, onDone)
	o.log.Info().
		Str("job_id", catJob.JobID).
		Int("categorized", count).
		Int("pending_before", len(pending)).
		Msg("Categorization job pass finished")
	return err
}

// StatusResponse is the poll contract for background categorization.
type StatusResponse struct {
	Total       int `json:"total"`
	Categorized int `json:"categorized"`
	Remaining   int `json:"remaining"`
	Progress    int `json:"progress"`
}

// Status reports progress over a requested id set by aggregating the done
// sets of the user's jobs. It only reads job state, so any number of clients
// can poll concurrently.
func (o *Orchestrator) Status(ctx context.Context, userID string, transactionIDs []string) (*StatusResponse, error) {
	if o.jobStore == nil {
		return nil, fmt.Errorf("Status: no job store configured")
	}
	userJobs, err := o.jobStore.ListJobs(ctx, jobs.JobFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("Status: listing jobs: %w", err)
	}

	done := make(map[string]bool)
	for _, job := range userJobs {
		for id, ok := range job.Done {
			if ok {
				done[id] = true
			}
		}
	}

	resp := &StatusResponse{Total: len(transactionIDs)}
	for _, id := range transactionIDs {
		if done[id] {
			resp.Categorized++
		}
	}
	resp.Remaining = resp.Total - resp.Categorized
	if resp.Total > 0 {
		resp.Progress = resp.Categorized * 100 / resp.Total
	} else {
		resp.Progress = 100
	}
	return resp, nil
}

// categorizeSet runs the three stages over a transaction set. onDone, when
// non-nil, is invoked exactly once per processed candidate (assigned or
// conclusively skipped); it is the job-progress hook. The returned count is
// the number of actual assignments.
func (o *Orchestrator) categorizeSet(ctx context.Context, userID string, txs []*domain.Transaction, useAI, force bool, onDone func(txID string)) (int, error) {
	if onDone == nil {
		onDone = func(string) {}
	}

	candidates := make([]*domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if !force && tx.IsCategorized() {
			onDone(tx.ID)
			continue
		}
		candidates = append(candidates, tx)
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	count := 0
	var unresolved []*domain.Transaction

	// Stage 1 and 2: rule table, then learned patterns.
	for _, tx := range candidates {
		if a, ok := o.rules.Match(tx); ok {
			if err := o.apply(ctx, userID, tx, a, false); err != nil {
				o.log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("Failed to apply rule category")
			} else {
				count++
				metrics.CategorizedTotal.WithLabelValues("rules").Inc()
			}
			onDone(tx.ID)
			continue
		}
		if o.patterns != nil {
			categoryID, ok, err := o.patterns.LookupPattern(ctx, userID, MerchantKey(tx))
			if err != nil {
				o.log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("Pattern lookup failed")
			} else if ok {
				if err := o.apply(ctx, userID, tx, Assignment{CategoryID: categoryID}, false); err != nil {
					o.log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("Failed to apply pattern category")
				} else {
					count++
					metrics.CategorizedTotal.WithLabelValues("pattern").Inc()
				}
				onDone(tx.ID)
				continue
			}
		}
		unresolved = append(unresolved, tx)
	}

	// Stage 3: AI fallback, sub-batch at a time, with an explicit
	// backoff-and-retry state machine for upstream rate limits.
	if !useAI || o.classifier == nil {
		for _, tx := range unresolved {
			onDone(tx.ID)
		}
		return count, nil
	}

	categories, err := o.store.ListActiveCategories(ctx)
	if err != nil {
		return count, fmt.Errorf("categorize: listing categories: %w", err)
	}

	iterations := 0
	for len(unresolved) > 0 {
		iterations++
		if iterations > o.maxIterations {
			return count, fmt.Errorf("categorize: iteration cap %d reached with %d transactions unresolved", o.maxIterations, len(unresolved))
		}

		batch := unresolved
		if len(batch) > o.subBatchSize {
			batch = batch[:o.subBatchSize]
		}

		assignments, err := o.classifier.ClassifyBatch(ctx, batch, categories)
		if errors.Is(err, ErrRateLimited) {
			metrics.RateLimitHits.Inc()
			// Back off and retry the same sub-batch: skipping would lose the
			// work, failing would re-spend quota on items already done.
			o.log.Warn().
				Dur("backoff", o.backoff).
				Int("batch_size", len(batch)).
				Msg("Classifier rate limited, backing off")
			select {
			case <-time.After(o.backoff):
			case <-ctx.Done():
				return count, ctx.Err()
			}
			continue
		}
		if err != nil {
			// Non-quota failure: leave this sub-batch uncategorized and move
			// on rather than aborting the whole run.
			o.log.Warn().Err(err).Int("batch_size", len(batch)).Msg("Classifier batch failed, skipping items")
			for _, tx := range batch {
				onDone(tx.ID)
			}
			unresolved = unresolved[len(batch):]
			continue
		}

		for _, tx := range batch {
			if categoryID, ok := assignments[tx.ID]; ok {
				if err := o.apply(ctx, userID, tx, Assignment{CategoryID: categoryID}, true); err != nil {
					o.log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("Failed to apply AI category")
				} else {
					count++
					metrics.CategorizedTotal.WithLabelValues("ai").Inc()
				}
			}
			onDone(tx.ID)
		}
		unresolved = unresolved[len(batch):]
	}

	return count, nil
}

// apply persists one assignment and, for AI results, feeds the mapping back
// into the pattern store so the next import resolves the merchant locally.
func (o *Orchestrator) apply(ctx context.Context, userID string, tx *domain.Transaction, a Assignment, learn bool) error {
	financialType := a.FinancialType
	if financialType == "" {
		financialType = tx.FinancialCategory
	}
	if err := o.store.SetTransactionCategory(ctx, userID, tx.ID, a.CategoryID, financialType); err != nil {
		return err
	}
	tx.CategoryID = a.CategoryID
	tx.FinancialCategory = financialType

	if learn && o.patterns != nil {
		if err := o.patterns.SavePattern(ctx, userID, MerchantKey(tx), a.CategoryID); err != nil {
			o.log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("Failed to learn pattern")
		}
	}
	return nil
}
