package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Vishun-Projects/Finance-sub000/internal/api/middleware"
	"github.com/Vishun-Projects/Finance-sub000/internal/categorize"
	"github.com/Vishun-Projects/Finance-sub000/internal/domain"
	"github.com/Vishun-Projects/Finance-sub000/internal/ingest"
	"github.com/Vishun-Projects/Finance-sub000/internal/jobs"
	"github.com/Vishun-Projects/Finance-sub000/internal/metrics"
	"github.com/Vishun-Projects/Finance-sub000/internal/mutate"
)

// TransactionReader feeds the review UI's transaction list.
type TransactionReader interface {
	QueryTransactionsByUserAndDateRange(ctx context.Context, userID string, start, end civil.Date) ([]*domain.Transaction, error)
}

// CategoryLister feeds the category picker.
type CategoryLister interface {
	ListActiveCategories(ctx context.Context) ([]domain.Category, error)
}

// ImportHandler handles statement import requests.
type ImportHandler struct {
	importer *ingest.Importer
	log      zerolog.Logger
}

// NewImportHandler creates a new import handler.
func NewImportHandler(importer *ingest.Importer, log zerolog.Logger) *ImportHandler {
	return &ImportHandler{importer: importer, log: log}
}

// Import handles POST /api/import
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req ingest.ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "userId is required")
		return
	}

	resp, err := h.importer.Import(r.Context(), &req)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", req.UserID).Msg("Import failed")
		metrics.ImportsTotal.WithLabelValues("failed").Inc()
		middleware.WriteError(w, http.StatusInternalServerError, "Import failed")
		return
	}

	if resp.BalanceValidationResult != nil && !resp.BalanceValidationResult.IsValid {
		metrics.ImportsTotal.WithLabelValues("blocked").Inc()
	} else {
		metrics.ImportsTotal.WithLabelValues("completed").Inc()
	}
	metrics.TransactionsInserted.Add(float64(resp.Inserted))
	metrics.DuplicatesSkipped.Add(float64(resp.Duplicates))
	metrics.RowsRejected.Add(float64(resp.Rejected))

	middleware.WriteJSON(w, http.StatusOK, resp)
}

// CategorizationHandler handles background categorization polling.
type CategorizationHandler struct {
	orchestrator *categorize.Orchestrator
	log          zerolog.Logger
}

// NewCategorizationHandler creates a new categorization handler.
func NewCategorizationHandler(orchestrator *categorize.Orchestrator, log zerolog.Logger) *CategorizationHandler {
	return &CategorizationHandler{orchestrator: orchestrator, log: log}
}

// Status handles POST /api/categorization/status
func (h *CategorizationHandler) Status(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID         string   `json:"userId"`
		TransactionIDs []string `json:"transactionIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" || len(req.TransactionIDs) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "userId and transactionIds are required")
		return
	}

	status, err := h.orchestrator.Status(r.Context(), req.UserID, req.TransactionIDs)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to read categorization status")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read status")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, status)
}

// BulkHandler handles bulk transaction mutations.
type BulkHandler struct {
	executor *mutate.Executor
	log      zerolog.Logger
}

// NewBulkHandler creates a new bulk mutation handler.
func NewBulkHandler(executor *mutate.Executor, log zerolog.Logger) *BulkHandler {
	return &BulkHandler{executor: executor, log: log}
}

// Mutate handles POST /api/transactions/bulk
func (h *BulkHandler) Mutate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
		mutate.Request
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.executor.Execute(r.Context(), req.UserID, &req.Request)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	middleware.WriteJSON(w, http.StatusOK, resp)
}

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	reader TransactionReader
	log    zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(reader TransactionReader, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{reader: reader, log: log}
}

// List handles GET /api/transactions
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	userID := query.Get("user_id")
	if userID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	now := time.Now()
	start := civil.DateOf(now.AddDate(-1, 0, 0))
	end := civil.DateOf(now)

	if v := query.Get("start_date"); v != "" {
		d, err := civil.ParseDate(v)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid start_date format")
			return
		}
		start = d
	}
	if v := query.Get("end_date"); v != "" {
		d, err := civil.ParseDate(v)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid end_date format")
			return
		}
		end = d
	}

	transactions, err := h.reader.QueryTransactionsByUserAndDateRange(ctx, userID, start, end)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to query transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to query transactions")
		return
	}

	// Return array directly for frontend compatibility
	if transactions == nil {
		transactions = []*domain.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, transactions)
}

// CategoriesHandler handles category-related endpoints.
type CategoriesHandler struct {
	lister CategoryLister
	log    zerolog.Logger
}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler(lister CategoryLister, log zerolog.Logger) *CategoriesHandler {
	return &CategoriesHandler{lister: lister, log: log}
}

// List handles GET /api/categories
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.lister.ListActiveCategories(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list categories")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list categories")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	})
}

// JobsHandler handles job inspection endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, log: log}
}

// Get handles GET /api/jobs/{id}
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// List handles GET /api/jobs
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		UserID: query.Get("user_id"),
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
