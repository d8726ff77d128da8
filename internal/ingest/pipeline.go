package ingest

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Vishun-Projects/Finance-sub000/internal/domain"
)

// DefaultBackgroundThreshold is the batch size at and above which
// categorization runs as a background job instead of inline.
const DefaultBackgroundThreshold = 100

// ImportRequest is one statement import: a batch of producer-parsed rows plus
// the statement metadata, for a single user.
type ImportRequest struct {
	UserID                 string                    `json:"userId"`
	Records                []RawRow                  `json:"records"`
	Metadata               *domain.StatementMetadata `json:"metadata,omitempty"`
	SourceDocumentID       string                    `json:"sourceDocumentId,omitempty"`
	UseAICategorization    bool                      `json:"useAICategorization"`
	CategorizeInBackground bool                      `json:"categorizeInBackground"`
	ValidateBalance        bool                      `json:"validateBalance"`
}

// BackgroundCategorization describes the detached job started for a large
// batch. The client polls the status endpoint with the returned ids.
type BackgroundCategorization struct {
	Started        bool     `json:"started"`
	JobID          string   `json:"jobId"`
	Total          int      `json:"total"`
	TransactionIDs []string `json:"transactionIds"`
}

// ImportResponse enumerates everything that happened to the batch so a review
// surface can present per-row outcomes rather than a binary pass/fail.
type ImportResponse struct {
	Inserted        int      `json:"inserted"`
	IncomeInserted  int      `json:"incomeInserted"`
	ExpenseInserted int      `json:"expenseInserted"`
	Duplicates      int      `json:"duplicates"`
	Rejected        int      `json:"rejected"`
	Warnings        []string `json:"warnings"`
	Errors          []string `json:"errors"`

	BalanceValidationResult  *domain.ReconciliationResult `json:"balanceValidationResult,omitempty"`
	BackgroundCategorization *BackgroundCategorization    `json:"backgroundCategorization,omitempty"`
	CategorizedCount         *int                         `json:"categorizedCount,omitempty"`
}

// ImportState is the shared state threaded through the pipeline steps.
type ImportState struct {
	Request  *ImportRequest
	ImportID string

	Candidates []*domain.Transaction
	Existing   []*domain.Transaction
	Unique     []*domain.Transaction
	Inserted   []*domain.Transaction

	Response *ImportResponse
}

// errImportBlocked stops the pipeline without treating the import as an
// internal failure: the response carries the reconciliation errors.
var errImportBlocked = errors.New("import blocked by reconciliation")

// ImportStep is a single step of the import pipeline.
type ImportStep interface {
	Execute(ctx context.Context, state *ImportState) error
}

// Importer runs the statement import pipeline: archive, normalize, dedupe,
// reconcile, persist, categorize.
type Importer struct {
	store      TransactionStore
	normalizer *Normalizer
	validator  *BalanceValidator
	inline     InlineCategorizer
	background BackgroundLauncher
	archiver   Archiver

	backgroundThreshold int
	log                 zerolog.Logger
}

// ImporterOption customizes an Importer.
type ImporterOption func(*Importer)

// WithArchiver enables best-effort archiving of raw import payloads.
func WithArchiver(a Archiver) ImporterOption {
	return func(imp *Importer) { imp.archiver = a }
}

// WithBackgroundThreshold overrides the inline/background batch cutoff.
func WithBackgroundThreshold(n int) ImporterOption {
	return func(imp *Importer) {
		if n > 0 {
			imp.backgroundThreshold = n
		}
	}
}

// WithValidator overrides the balance validator (tunable thresholds).
func WithValidator(v *BalanceValidator) ImporterOption {
	return func(imp *Importer) { imp.validator = v }
}

// WithNormalizer overrides the normalizer (tunable date sanity window).
func WithNormalizer(n *Normalizer) ImporterOption {
	return func(imp *Importer) {
		if n != nil {
			imp.normalizer = n
		}
	}
}

// NewImporter assembles the import pipeline. inline and background may be nil
// when categorization is not wired (imports then leave records uncategorized).
func NewImporter(store TransactionStore, inline InlineCategorizer, background BackgroundLauncher, log zerolog.Logger, opts ...ImporterOption) *Importer {
	imp := &Importer{
		store:               store,
		normalizer:          NewNormalizer(),
		validator:           NewBalanceValidator(),
		inline:              inline,
		background:          background,
		backgroundThreshold: DefaultBackgroundThreshold,
		log:                 log,
	}
	for _, opt := range opts {
		opt(imp)
	}
	return imp
}

// Import runs the full pipeline for one request. Per-row problems are
// accumulated into the response; the returned error is reserved for
// infrastructure failures (store unreachable and the like).
func (imp *Importer) Import(ctx context.Context, req *ImportRequest) (*ImportResponse, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("Import: userId is required")
	}

	state := &ImportState{
		Request:  req,
		ImportID: uuid.NewString(),
		Response: &ImportResponse{Warnings: []string{}, Errors: []string{}},
	}

	steps := []ImportStep{
		&archiveStep{imp},
		&normalizeStep{imp},
		&snapshotStep{imp},
		&dedupeStep{imp},
		&statementStep{imp},
		&reconcileStep{imp},
		&persistStep{imp},
		&categorizeStep{imp},
	}

	for _, step := range steps {
		if err := step.Execute(ctx, state); err != nil {
			if errors.Is(err, errImportBlocked) {
				return state.Response, nil
			}
			return nil, err
		}
	}

	imp.log.Info().
		Str("import_id", state.ImportID).
		Str("user_id", req.UserID).
		Int("inserted", state.Response.Inserted).
		Int("duplicates", state.Response.Duplicates).
		Int("rejected", state.Response.Rejected).
		Msg("Import completed")

	return state.Response, nil
}

// archiveStep writes the raw payload to the audit archive when configured.
type archiveStep struct{ imp *Importer }

func (s *archiveStep) Execute(ctx context.Context, state *ImportState) error {
	if s.imp.archiver == nil {
		return nil
	}
	uri, err := s.imp.archiver.ArchiveImport(ctx, state.ImportID, state.Request)
	if err != nil {
		s.imp.log.Warn().Err(err).Str("import_id", state.ImportID).Msg("Failed to archive import payload")
		state.Response.Warnings = append(state.Response.Warnings,
			fmt.Sprintf("raw payload not archived: %v", err))
		return nil
	}
	s.imp.log.Debug().Str("import_id", state.ImportID).Str("uri", uri).Msg("Import payload archived")
	return nil
}

// normalizeStep converts raw rows to candidates, accumulating rejections.
type normalizeStep struct{ imp *Importer }

func (s *normalizeStep) Execute(ctx context.Context, state *ImportState) error {
	candidates, rejections := s.imp.normalizer.NormalizeBatch(state.Request.Records, state.Request.UserID, state.Request.Metadata)
	state.Candidates = candidates
	state.Response.Rejected = len(rejections)
	state.Response.Errors = append(state.Response.Errors, rejections...)
	return nil
}

// snapshotStep loads the already-persisted transactions overlapping the
// batch's date range. The snapshot is read once at the start of the import;
// a transaction created concurrently may be missed, which is acceptable
// because the store's fingerprint-unique insert is the final backstop.
type snapshotStep struct{ imp *Importer }

func (s *snapshotStep) Execute(ctx context.Context, state *ImportState) error {
	if len(state.Candidates) == 0 {
		return nil
	}
	start, end := batchDateRange(state.Candidates, state.Request.Metadata)
	existing, err := s.imp.store.QueryTransactionsByUserAndDateRange(ctx, state.Request.UserID, start, end)
	if err != nil {
		return fmt.Errorf("Import: loading dedupe snapshot: %w", err)
	}
	state.Existing = existing
	return nil
}

// dedupeStep filters candidates against the snapshot and within the batch.
type dedupeStep struct{ imp *Importer }

func (s *dedupeStep) Execute(ctx context.Context, state *ImportState) error {
	res := Dedupe(state.Candidates, state.Existing)
	state.Unique = res.Unique
	state.Response.Duplicates = res.Duplicates
	return nil
}

// statementStep records the statement metadata audit row, once per import
// attempt. It runs before reconciliation so blocked statements, the ones a
// user has to review, leave an audit trail too.
type statementStep struct{ imp *Importer }

func (s *statementStep) Execute(ctx context.Context, state *ImportState) error {
	if state.Request.Metadata == nil {
		return nil
	}
	if err := s.imp.store.InsertStatement(ctx, state.Request.UserID, state.ImportID, state.Request.Metadata); err != nil {
		return fmt.Errorf("Import: recording statement metadata: %w", err)
	}
	return nil
}

// reconcileStep validates statement arithmetic. A hard reconciliation error
// blocks persistence of the batch; warnings pass through to the response.
type reconcileStep struct{ imp *Importer }

func (s *reconcileStep) Execute(ctx context.Context, state *ImportState) error {
	if !state.Request.ValidateBalance || state.Request.Metadata == nil {
		return nil
	}
	result := s.imp.validator.Validate(state.Request.Metadata, state.Unique)
	state.Response.BalanceValidationResult = result
	state.Response.Warnings = append(state.Response.Warnings, result.Warnings...)
	if !result.IsValid {
		state.Response.Errors = append(state.Response.Errors, result.Errors...)
		s.imp.log.Warn().
			Str("import_id", state.ImportID).
			Strs("errors", result.Errors).
			Msg("Import blocked by balance reconciliation")
		return errImportBlocked
	}
	return nil
}

// persistStep assigns ids and writes the unique set. The store skips
// fingerprint collisions, so anything it refuses is counted as a duplicate
// rather than an error.
type persistStep struct{ imp *Importer }

func (s *persistStep) Execute(ctx context.Context, state *ImportState) error {
	if len(state.Unique) == 0 {
		return nil
	}

	for _, tx := range state.Unique {
		tx.ID = uuid.NewString()
		if tx.SourceDocumentID == "" {
			tx.SourceDocumentID = state.Request.SourceDocumentID
		}
	}

	inserted, err := s.imp.store.InsertTransactions(ctx, state.Unique)
	if err != nil {
		return fmt.Errorf("Import: inserting transactions: %w", err)
	}
	state.Inserted = inserted
	state.Response.Duplicates += len(state.Unique) - len(inserted)
	state.Response.Inserted = len(inserted)
	for _, tx := range inserted {
		switch {
		case tx.CreditAmount.IsPositive():
			state.Response.IncomeInserted++
		case tx.DebitAmount.IsPositive():
			state.Response.ExpenseInserted++
		}
	}
	return nil
}

// categorizeStep runs inline classification for small batches or launches a
// detached background job for large ones.
type categorizeStep struct{ imp *Importer }

func (s *categorizeStep) Execute(ctx context.Context, state *ImportState) error {
	if len(state.Inserted) == 0 {
		return nil
	}

	if state.Request.CategorizeInBackground && len(state.Inserted) >= s.imp.backgroundThreshold && s.imp.background != nil {
		ids := make([]string, len(state.Inserted))
		for i, tx := range state.Inserted {
			ids[i] = tx.ID
		}
		jobID, err := s.imp.background.LaunchBackground(ctx, state.Request.UserID, ids, state.Request.UseAICategorization)
		if err != nil {
			// The records are persisted; a failed launch leaves them
			// uncategorized rather than failing the import.
			state.Response.Warnings = append(state.Response.Warnings,
				fmt.Sprintf("background categorization not started: %v", err))
			return nil
		}
		state.Response.BackgroundCategorization = &BackgroundCategorization{
			Started:        true,
			JobID:          jobID,
			Total:          len(ids),
			TransactionIDs: ids,
		}
		return nil
	}

	if s.imp.inline == nil {
		return nil
	}
	count, err := s.imp.inline.CategorizeInline(ctx, state.Request.UserID, state.Inserted, state.Request.UseAICategorization)
	if err != nil {
		state.Response.Warnings = append(state.Response.Warnings,
			fmt.Sprintf("categorization incomplete: %v", err))
	}
	state.Response.CategorizedCount = &count
	return nil
}

// batchDateRange computes the dedupe snapshot window: the statement period
// when declared, widened to cover every candidate date.
func batchDateRange(txs []*domain.Transaction, meta *domain.StatementMetadata) (civil.Date, civil.Date) {
	start := txs[0].TransactionDate
	end := txs[0].TransactionDate
	for _, tx := range txs[1:] {
		if tx.TransactionDate.Before(start) {
			start = tx.TransactionDate
		}
		if end.Before(tx.TransactionDate) {
			end = tx.TransactionDate
		}
	}
	if meta != nil {
		if meta.StatementStartDate != nil && meta.StatementStartDate.Before(start) {
			start = *meta.StatementStartDate
		}
		if meta.StatementEndDate != nil && end.Before(*meta.StatementEndDate) {
			end = *meta.StatementEndDate
		}
	}
	return start, end
}
