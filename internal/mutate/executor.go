// Package mutate applies user-initiated bulk edits to transactions:
// recategorize, soft-delete, restore. Items are independent; one failure
// never rolls back or aborts its siblings.
package mutate

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Action is the kind of bulk edit to apply.
type Action string

const (
	ActionCategorize Action = "categorize"
	ActionDelete     Action = "delete"
	ActionRestore    Action = "restore"
)

// Request is one bulk mutation: an action applied to a list of transaction
// ids. CategoryID is required for ActionCategorize only.
type Request struct {
	Action     Action   `json:"action"`
	IDs        []string `json:"ids"`
	CategoryID string   `json:"categoryId,omitempty"`
}

// Failure records one item that could not be mutated.
type Failure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Response is the per-item accounting of a bulk mutation.
type Response struct {
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Failures  []Failure `json:"failures"`
}

// MutationStore is the persistence surface for bulk edits. Delete and
// restore are idempotent: deleting an already-deleted record or restoring an
// active one succeeds as a no-op.
type MutationStore interface {
	SetCategory(ctx context.Context, userID, transactionID, categoryID string) error
	SoftDelete(ctx context.Context, userID, transactionID string) error
	Restore(ctx context.Context, userID, transactionID string) error
}

// Executor applies bulk mutations item by item.
type Executor struct {
	store MutationStore
	log   zerolog.Logger
}

// NewExecutor creates a bulk mutation executor.
func NewExecutor(store MutationStore, log zerolog.Logger) *Executor {
	return &Executor{store: store, log: log}
}

// Execute applies the request for one user. The returned error is reserved
// for malformed requests; per-item problems land in Response.Failures.
func (e *Executor) Execute(ctx context.Context, userID string, req *Request) (*Response, error) {
	if userID == "" {
		return nil, fmt.Errorf("Execute: userId is required")
	}
	if len(req.IDs) == 0 {
		return nil, fmt.Errorf("Execute: ids list is empty")
	}

	var apply func(ctx context.Context, id string) error
	switch req.Action {
	case ActionCategorize:
		if req.CategoryID == "" {
			return nil, fmt.Errorf("Execute: categoryId is required for %q", ActionCategorize)
		}
		apply = func(ctx context.Context, id string) error {
			return e.store.SetCategory(ctx, userID, id, req.CategoryID)
		}
	case ActionDelete:
		apply = func(ctx context.Context, id string) error {
			return e.store.SoftDelete(ctx, userID, id)
		}
	case ActionRestore:
		apply = func(ctx context.Context, id string) error {
			return e.store.Restore(ctx, userID, id)
		}
	default:
		return nil, fmt.Errorf("Execute: unknown action %q", req.Action)
	}

	resp := &Response{Failures: []Failure{}}
	for _, id := range req.IDs {
		if id == "" {
			resp.Failed++
			resp.Failures = append(resp.Failures, Failure{ID: id, Reason: "empty transaction id"})
			continue
		}
		if err := apply(ctx, id); err != nil {
			resp.Failed++
			resp.Failures = append(resp.Failures, Failure{ID: id, Reason: err.Error()})
			e.log.Warn().
				Err(err).
				Str("action", string(req.Action)).
				Str("transaction_id", id).
				Msg("Bulk mutation item failed")
			continue
		}
		resp.Succeeded++
	}

	e.log.Info().
		Str("action", string(req.Action)).
		Str("user_id", userID).
		Int("succeeded", resp.Succeeded).
		Int("failed", resp.Failed).
		Msg("Bulk mutation applied")

	return resp, nil
}
