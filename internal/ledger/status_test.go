package ledger

import (
	"testing"
	"time"

	"github.com/Veraticus/mediamigrate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	summary := model.NewRunSummary(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	summary.Add(model.OutcomeAccept)

	entries := []model.LedgerEntry{
		{Kind: model.EntryDecision, AssetFileName: "a.jpg", Outcome: model.OutcomeFailedTransfer},
		{Kind: model.EntryDecision, AssetFileName: "b.jpg", Outcome: model.OutcomeRejectLowConfidence},
		{Kind: model.EntryRunSummary, RunID: "run-1", Summary: summary},
		{Kind: model.EntryDecision, AssetFileName: "a.jpg", Outcome: model.OutcomeAccept},
		{Kind: model.EntryDecision, AssetFileName: "c.jpg", Outcome: model.OutcomeRejectNoCandidate},
		{Kind: model.EntryRunSummary, RunID: "run-2", Summary: summary},
	}

	s := Summarize(entries)

	assert.Equal(t, 6, s.Entries)
	assert.Equal(t, 2, s.Runs)
	assert.Equal(t, 3, s.Assets())
	assert.Equal(t, 1, s.Settled())
	assert.Equal(t, 1, s.ByOutcome[model.OutcomeRejectLowConfidence])
	assert.Zero(t, s.ByOutcome[model.OutcomeFailedTransfer])
	require.NotNil(t, s.LastRun)
	assert.Equal(t, "run-2", s.LastRun.RunID)

	pending := s.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, "b.jpg", pending[0].AssetFileName)
	assert.Equal(t, "c.jpg", pending[1].AssetFileName)

	assert.True(t, s.WasAlreadySettled("a.jpg"))
	assert.False(t, s.WasAlreadySettled("b.jpg"))
	assert.False(t, s.WasAlreadySettled("missing.jpg"))
}
