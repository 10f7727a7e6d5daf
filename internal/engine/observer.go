package engine

import "github.com/Veraticus/mediamigrate/internal/model"

// Observer receives run progress. Implementations must not block.
type Observer interface {
	RunStarted(total int)
	AssetSkipped(asset model.Asset)
	AssetProcessed(entry model.LedgerEntry)
	RunFinished(summary *model.RunSummary)
}

// NopObserver ignores all progress.
type NopObserver struct{}

// RunStarted implements Observer.
func (NopObserver) RunStarted(int) {}

// AssetSkipped implements Observer.
func (NopObserver) AssetSkipped(model.Asset) {}

// AssetProcessed implements Observer.
func (NopObserver) AssetProcessed(model.LedgerEntry) {}

// RunFinished implements Observer.
func (NopObserver) RunFinished(*model.RunSummary) {}
