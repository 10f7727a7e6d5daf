// Package engine reconciles exported assets with content records and
// carries accepted decisions out against the content store.
package engine

import (
	"log/slog"

	"github.com/Veraticus/mediamigrate/internal/model"
)

// DefaultAcceptanceFloor is the minimum score a LOW band match needs to be
// accepted.
const DefaultAcceptanceFloor = 150.0

// Scorer rates how well an asset matches a record.
type Scorer interface {
	Candidate(asset model.Asset, record model.ContentRecord) model.MatchCandidate
	Version() string
}

// Config holds configuration options for reconciliation.
type Config struct {
	AcceptanceFloor float64
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		AcceptanceFloor: DefaultAcceptanceFloor,
	}
}

// Reconciler picks the best record for each asset. Accepted records are
// claimed for the rest of the pass, so the allocation is greedy and depends
// on the order assets are reconciled in.
type Reconciler struct {
	scorer  Scorer
	claimed map[string]bool
	records []model.ContentRecord
	floor   float64
}

// NewReconciler creates a reconciler over the given candidate records.
// Callers normally pass only records without media; a record that already
// has media and still wins is rejected rather than reassigned.
func NewReconciler(scorer Scorer, records []model.ContentRecord, cfg Config) *Reconciler {
	floor := cfg.AcceptanceFloor
	if floor < 0 {
		floor = DefaultAcceptanceFloor
	}
	return &Reconciler{
		scorer:  scorer,
		claimed: make(map[string]bool),
		records: append([]model.ContentRecord(nil), records...),
		floor:   floor,
	}
}

// Reconcile decides which record, if any, the asset illustrates.
func (r *Reconciler) Reconcile(asset model.Asset) model.Decision {
	best, ok := r.best(asset)
	if !ok {
		return model.Decision{Asset: asset, Outcome: model.OutcomeRejectNoCandidate}
	}

	record := best.Record
	decision := model.Decision{
		Asset:     asset,
		Record:    &record,
		Candidate: &best,
	}

	switch {
	case best.Band == model.ConfidenceLow && best.Score < r.floor:
		decision.Outcome = model.OutcomeRejectLowConfidence
	case record.HasAssociatedMedia:
		decision.Outcome = model.OutcomeRejectAlreadyAssociated
	default:
		decision.Outcome = model.OutcomeAccept
		r.claimed[record.ID] = true
	}

	slog.Debug("Reconciled asset",
		"asset", asset.FileName,
		"record", record.ID,
		"score", best.Score,
		"band", best.Band,
		"outcome", decision.Outcome)

	return decision
}

// Claimed reports whether a record was accepted earlier in this pass.
func (r *Reconciler) Claimed(recordID string) bool {
	return r.claimed[recordID]
}

// Claim removes a record from consideration without reconciling an asset.
func (r *Reconciler) Claim(recordID string) {
	if recordID != "" {
		r.claimed[recordID] = true
	}
}

// Remaining returns the number of records still open for matching.
func (r *Reconciler) Remaining() int {
	n := 0
	for _, rec := range r.records {
		if !r.claimed[rec.ID] {
			n++
		}
	}
	return n
}

// ScorerVersion identifies the signal table decisions were made with.
func (r *Reconciler) ScorerVersion() string {
	return r.scorer.Version()
}

func (r *Reconciler) best(asset model.Asset) (model.MatchCandidate, bool) {
	var best model.MatchCandidate
	found := false
	for _, rec := range r.records {
		if r.claimed[rec.ID] {
			continue
		}
		c := r.scorer.Candidate(asset, rec)
		// Strictly greater keeps the first record on ties.
		if !found || c.Score > best.Score {
			best = c
			found = true
		}
	}
	return best, found
}
