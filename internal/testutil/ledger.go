package testutil

import (
	"errors"
	"sync"

	"github.com/Veraticus/mediamigrate/internal/common"
	"github.com/Veraticus/mediamigrate/internal/model"
)

// FakeLedger is an in-memory ledger whose writes can be made to fail.
type FakeLedger struct {
	err      error
	latest   map[string]model.LedgerEntry
	entries  []model.LedgerEntry
	failFrom int
	mu       sync.Mutex
}

// NewFakeLedger creates an empty ledger.
func NewFakeLedger() *FakeLedger {
	return &FakeLedger{
		latest:   make(map[string]model.LedgerEntry),
		failFrom: -1,
	}
}

// FailAfter lets n writes succeed and fails every later one.
func (l *FakeLedger) FailAfter(n int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err == nil {
		err = errors.New("disk full")
	}
	l.failFrom = n
	l.err = err
}

// Record implements service.Ledger.
func (l *FakeLedger) Record(entry model.LedgerEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failFrom >= 0 && len(l.entries) >= l.failFrom {
		return &common.LedgerWriteError{Path: "memory", Err: l.err}
	}
	if entry.Kind == "" {
		entry.Kind = model.EntryDecision
	}
	l.entries = append(l.entries, entry)
	if entry.Kind == model.EntryDecision && entry.AssetFileName != "" {
		l.latest[entry.AssetFileName] = entry
	}
	return nil
}

// WasAlreadySettled implements service.Ledger.
func (l *FakeLedger) WasAlreadySettled(assetFileName string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.latest[assetFileName]
	return ok && e.Outcome == model.OutcomeAccept
}

// Entries returns every recorded entry.
func (l *FakeLedger) Entries() []model.LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.LedgerEntry(nil), l.entries...)
}

// Decisions returns the per-asset entries.
func (l *FakeLedger) Decisions() []model.LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []model.LedgerEntry
	for _, e := range l.entries {
		if e.Kind == model.EntryDecision {
			out = append(out, e)
		}
	}
	return out
}
