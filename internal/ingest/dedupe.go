package ingest

import (
	"github.com/Vishun-Projects/Finance-sub000/internal/domain"
)

// DedupeResult partitions a batch of candidates into unique transactions and
// the count of duplicates that were excluded. Duplicates are reported, never
// silently dropped.
type DedupeResult struct {
	Unique     []*domain.Transaction
	Duplicates int
}

// Dedupe filters candidates against the fingerprints of already-persisted
// transactions for the same user and date range, and against earlier rows in
// the same batch (first occurrence wins). Running the same batch through
// twice yields the same unique set, so a wholesale import retry inserts
// nothing new.
func Dedupe(candidates []*domain.Transaction, existing []*domain.Transaction) DedupeResult {
	seen := make(map[string]struct{}, len(existing)+len(candidates))
	for _, tx := range existing {
		seen[tx.Fingerprint()] = struct{}{}
	}

	res := DedupeResult{Unique: make([]*domain.Transaction, 0, len(candidates))}
	for _, tx := range candidates {
		fp := tx.Fingerprint()
		if _, dup := seen[fp]; dup {
			res.Duplicates++
			continue
		}
		seen[fp] = struct{}{}
		res.Unique = append(res.Unique, tx)
	}
	return res
}
