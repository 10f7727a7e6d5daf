package model

import "time"

// EntryKind distinguishes per-asset entries from run summaries.
type EntryKind string

// Ledger entry kinds.
const (
	EntryDecision   EntryKind = "decision"
	EntryRunSummary EntryKind = "run_summary"
)

// LedgerEntry is one line of the migration ledger. Entries are never
// mutated; the latest entry per AssetFileName is authoritative.
type LedgerEntry struct {
	Timestamp     time.Time      `json:"timestamp"`
	Summary       *RunSummary    `json:"summary,omitempty"`
	Kind          EntryKind      `json:"kind"`
	RunID         string         `json:"run_id,omitempty"`
	AssetFileName string         `json:"asset_file_name,omitempty"`
	RecordID      string         `json:"record_id,omitempty"`
	Outcome       Outcome        `json:"outcome,omitempty"`
	Band          ConfidenceBand `json:"band,omitempty"`
	Rationale     []string       `json:"rationale,omitempty"`
	AssetHandleID string         `json:"asset_handle_id,omitempty"`
	Error         string         `json:"error,omitempty"`
	ScorerVersion string         `json:"scorer_version,omitempty"`
	Score         float64        `json:"score,omitempty"`
	Attempts      int            `json:"attempts,omitempty"`
}

// RunSummary aggregates the outcomes of one run.
type RunSummary struct {
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
	Outcomes    map[Outcome]int `json:"outcomes"`
	Processed   int             `json:"processed"`
	Skipped     int             `json:"skipped"`
	Uploaded    int             `json:"uploaded"`
	Reused      int             `json:"reused"`
	Interrupted bool            `json:"interrupted,omitempty"`
}

// NewRunSummary returns an empty summary started at the given time.
func NewRunSummary(startedAt time.Time) *RunSummary {
	return &RunSummary{
		StartedAt: startedAt,
		Outcomes:  make(map[Outcome]int),
	}
}

// Add counts one outcome.
func (s *RunSummary) Add(outcome Outcome) {
	s.Processed++
	s.Outcomes[outcome]++
}

// Accepted returns the number of completed associations.
func (s *RunSummary) Accepted() int {
	return s.Outcomes[OutcomeAccept]
}

// Failed returns the number of assets whose side effects failed.
func (s *RunSummary) Failed() int {
	total := 0
	for outcome, n := range s.Outcomes {
		if outcome.IsFailure() {
			total += n
		}
	}
	return total
}

// Rejected returns the number of rejections for one reason.
func (s *RunSummary) Rejected(reason Outcome) int {
	if !reason.IsRejection() {
		return 0
	}
	return s.Outcomes[reason]
}

// HasFailures reports whether any asset failed.
func (s *RunSummary) HasFailures() bool {
	return s.Failed() > 0
}
