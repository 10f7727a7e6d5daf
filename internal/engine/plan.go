package engine

import (
	"github.com/Veraticus/mediamigrate/internal/model"
)

// SettledChecker reports whether an asset was already migrated.
type SettledChecker interface {
	WasAlreadySettled(assetFileName string) bool
}

// Plan is the outcome of a dry run.
type Plan struct {
	Decisions []model.Decision
	Settled   []model.Asset
}

// Count returns how many decisions have the given outcome.
func (p Plan) Count(outcome model.Outcome) int {
	n := 0
	for _, d := range p.Decisions {
		if d.Outcome == outcome {
			n++
		}
	}
	return n
}

// DryRun reconciles assets exactly as Run would without touching the
// content store or writing to the ledger. settled may be nil.
func DryRun(scorer Scorer, cfg Config, settled SettledChecker, assets []model.Asset, records []model.ContentRecord) Plan {
	reconciler := NewReconciler(scorer, eligible(records), cfg)

	var plan Plan
	for _, asset := range assets {
		if settled != nil && settled.WasAlreadySettled(asset.FileName) {
			plan.Settled = append(plan.Settled, asset)
			continue
		}
		plan.Decisions = append(plan.Decisions, reconciler.Reconcile(asset))
	}
	return plan
}
