package ledger

import (
	"sort"

	"github.com/Veraticus/mediamigrate/internal/model"
)

// Status summarizes a ledger from the latest entry of every asset.
type Status struct {
	LastRun   *model.LedgerEntry
	ByOutcome map[model.Outcome]int
	Latest    map[string]model.LedgerEntry
	Entries   int
	Runs      int
}

// Summarize folds entries into a status.
func Summarize(entries []model.LedgerEntry) Status {
	s := Status{
		ByOutcome: make(map[model.Outcome]int),
		Latest:    make(map[string]model.LedgerEntry),
		Entries:   len(entries),
	}
	for i := range entries {
		e := entries[i]
		switch e.Kind {
		case model.EntryRunSummary:
			s.Runs++
			s.LastRun = &e
		case model.EntryDecision:
			if e.AssetFileName != "" {
				s.Latest[e.AssetFileName] = e
			}
		}
	}
	for _, e := range s.Latest {
		s.ByOutcome[e.Outcome]++
	}
	return s
}

// Assets returns the number of distinct assets in the ledger.
func (s Status) Assets() int {
	return len(s.Latest)
}

// Settled returns the number of assets whose latest outcome is ACCEPT.
func (s Status) Settled() int {
	return s.ByOutcome[model.OutcomeAccept]
}

// WasAlreadySettled reports whether the asset's latest outcome is ACCEPT.
func (s Status) WasAlreadySettled(assetFileName string) bool {
	e, ok := s.Latest[assetFileName]
	return ok && e.Outcome == model.OutcomeAccept
}

// Pending returns the latest entries of assets that are not settled, in
// file name order.
func (s Status) Pending() []model.LedgerEntry {
	out := make([]model.LedgerEntry, 0, len(s.Latest))
	for _, e := range s.Latest {
		if e.Outcome != model.OutcomeAccept {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AssetFileName < out[j].AssetFileName
	})
	return out
}
