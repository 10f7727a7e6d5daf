package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/mediamigrate/internal/common"
	"github.com/Veraticus/mediamigrate/internal/model"
	"github.com/Veraticus/mediamigrate/internal/service"
	"github.com/Veraticus/mediamigrate/internal/uploader"
	"github.com/google/uuid"
)

// RunConfig holds configuration options for a migration run.
type RunConfig struct {
	Reconcile   Config
	Upload      uploader.Config
	PacingDelay time.Duration
	CallTimeout time.Duration
}

// DefaultRunConfig returns the default run configuration.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Reconcile:   DefaultConfig(),
		Upload:      uploader.DefaultConfig(),
		PacingDelay: DefaultPacingDelay,
		CallTimeout: 60 * time.Second,
	}
}

// Runner migrates assets one at a time: reconcile, fetch, upload,
// associate, then record the outcome in the ledger before moving on.
type Runner struct {
	store    service.ContentStore
	source   service.MediaSource
	ledger   service.Ledger
	scorer   Scorer
	uploader *uploader.Uploader
	observer Observer
	now      func() time.Time
	newRunID func() string
	cfg      RunConfig
}

// NewRunner creates a runner with the given collaborators.
func NewRunner(store service.ContentStore, source service.MediaSource, ledger service.Ledger, scorer Scorer, cfg RunConfig) *Runner {
	return &Runner{
		store:    store,
		source:   source,
		ledger:   ledger,
		scorer:   scorer,
		uploader: uploader.NewWithConfig(store, cfg.Upload),
		observer: NopObserver{},
		now:      time.Now,
		newRunID: uuid.NewString,
		cfg:      cfg,
	}
}

// WithObserver sets the progress observer.
func (r *Runner) WithObserver(o Observer) *Runner {
	if o == nil {
		o = NopObserver{}
	}
	r.observer = o
	return r
}

// Run migrates assets against records. Records should be the snapshot taken
// at the start of the run. Per-asset failures are recorded and the run
// continues; only a ledger write failure is returned as an error. A
// canceled context stops the run between assets and marks the summary
// interrupted.
func (r *Runner) Run(ctx context.Context, assets []model.Asset, records []model.ContentRecord) (*model.RunSummary, error) {
	runID := r.newRunID()
	summary := model.NewRunSummary(r.now())
	reconciler := NewReconciler(r.scorer, eligible(records), r.cfg.Reconcile)
	pace := newPacer(r.cfg.PacingDelay)

	slog.Info("Starting migration run",
		"run_id", runID,
		"assets", len(assets),
		"records", len(records),
		"eligible", reconciler.Remaining(),
		"scorer_version", r.scorer.Version())
	r.observer.RunStarted(len(assets))

	for _, asset := range assets {
		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}

		if r.ledger.WasAlreadySettled(asset.FileName) {
			summary.Skipped++
			r.observer.AssetSkipped(asset)
			continue
		}

		decision := reconciler.Reconcile(asset)
		entry := decisionEntry(runID, r.scorer.Version(), decision)

		if decision.Outcome == model.OutcomeAccept {
			res, err := r.migrate(ctx, pace, decision)
			if err != nil && ctx.Err() != nil {
				// Nothing is recorded for an asset cut off mid-flight; the
				// next run picks it up again.
				slog.Warn("Run interrupted during asset", "asset", asset.FileName, "error", err)
				summary.Interrupted = true
				break
			}
			entry.AssetHandleID = res.Handle.ID
			entry.Attempts = res.Attempts
			if err != nil {
				entry.Outcome = failureOutcome(err)
				entry.Error = err.Error()
				common.LogError(err, "Asset migration failed", common.Fields{
					"asset":    asset.FileName,
					"record":   entry.RecordID,
					"outcome":  entry.Outcome,
					"attempts": res.Attempts,
				})
			} else if res.Reused {
				summary.Reused++
			} else {
				summary.Uploaded++
			}
		}

		if err := r.record(entry); err != nil {
			summary.FinishedAt = r.now()
			return summary, err
		}
		summary.Add(entry.Outcome)
		r.observer.AssetProcessed(entry)
	}

	summary.FinishedAt = r.now()
	if err := r.record(model.LedgerEntry{
		Kind:          model.EntryRunSummary,
		RunID:         runID,
		ScorerVersion: r.scorer.Version(),
		Summary:       summary,
	}); err != nil {
		return summary, err
	}

	common.LogInfo("Migration run finished", common.Fields{
		"run_id":      runID,
		"processed":   summary.Processed,
		"accepted":    summary.Accepted(),
		"failed":      summary.Failed(),
		"skipped":     summary.Skipped,
		"interrupted": summary.Interrupted,
		"duration":    summary.FinishedAt.Sub(summary.StartedAt),
	})
	r.observer.RunFinished(summary)

	return summary, nil
}

// migrate carries out an accepted decision.
func (r *Runner) migrate(ctx context.Context, pace *pacer, decision model.Decision) (uploader.Result, error) {
	asset := decision.Asset
	record := decision.Record

	if err := pace.wait(ctx); err != nil {
		return uploader.Result{}, err
	}
	res, err := r.uploader.EnsureUploaded(ctx, asset, func(ctx context.Context) ([]byte, error) {
		if err := pace.wait(ctx); err != nil {
			return nil, err
		}
		return r.source.Fetch(ctx, asset.SourceURL)
	})
	if err != nil {
		return res, err
	}

	if err := pace.wait(ctx); err != nil {
		return res, err
	}
	callCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	if err := r.store.Associate(callCtx, record.ID, res.Handle); err != nil {
		var assocErr *common.AssociationError
		if !errors.As(err, &assocErr) {
			err = &common.AssociationError{RecordID: record.ID, AssetID: res.Handle.ID, Err: err}
		}
		return res, err
	}

	slog.Info("Associated asset",
		"asset", asset.FileName,
		"record", record.ID,
		"handle", res.Handle.ID,
		"reused", res.Reused)
	return res, nil
}

func (r *Runner) record(entry model.LedgerEntry) error {
	if err := r.ledger.Record(entry); err != nil {
		if !common.IsLedgerWriteError(err) {
			err = &common.LedgerWriteError{Err: err}
		}
		common.LogError(err, "Ledger write failed, aborting run", common.Fields{"asset": entry.AssetFileName})
		return fmt.Errorf("run aborted: %w", err)
	}
	return nil
}

func (r *Runner) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.cfg.CallTimeout)
}

func decisionEntry(runID, scorerVersion string, d model.Decision) model.LedgerEntry {
	entry := model.LedgerEntry{
		Kind:          model.EntryDecision,
		RunID:         runID,
		AssetFileName: d.Asset.FileName,
		Outcome:       d.Outcome,
		ScorerVersion: scorerVersion,
	}
	if d.Record != nil {
		entry.RecordID = d.Record.ID
	}
	if d.Candidate != nil {
		entry.Score = d.Candidate.Score
		entry.Band = d.Candidate.Band
		entry.Rationale = d.Candidate.Rationale
	}
	return entry
}

func failureOutcome(err error) model.Outcome {
	var fetchErr *common.FetchError
	var assocErr *common.AssociationError
	switch {
	case errors.As(err, &fetchErr):
		return model.OutcomeFailedFetch
	case errors.As(err, &assocErr):
		return model.OutcomeFailedAssociation
	default:
		return model.OutcomeFailedTransfer
	}
}

func eligible(records []model.ContentRecord) []model.ContentRecord {
	out := make([]model.ContentRecord, 0, len(records))
	for _, rec := range records {
		if !rec.HasAssociatedMedia {
			out = append(out, rec)
		}
	}
	return out
}
