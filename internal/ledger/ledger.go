// Package ledger implements the append-only migration ledger.
//
// The ledger is a JSON Lines file: one self-contained entry per line, each
// synced to disk before Record returns. A crash can at worst leave a partial
// final line, which readers ignore and Open trims before appending again.
// The latest decision entry for an asset is authoritative; an asset whose
// latest entry is ACCEPT is settled and never reconsidered.
package ledger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Veraticus/mediamigrate/internal/common"
	"github.com/Veraticus/mediamigrate/internal/model"
	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process holds the ledger.
var ErrLocked = errors.New("ledger is locked by another run")

// maxLineSize bounds a single ledger line.
const maxLineSize = 1 << 20

// FileLedger is a ledger backed by a JSON Lines file. It holds an exclusive
// lock file for as long as it is open.
type FileLedger struct {
	file   *os.File
	lock   *flock.Flock
	latest map[string]model.LedgerEntry
	now    func() time.Time
	path   string
	mu     sync.Mutex
}

// Open opens or creates the ledger at path, replays its entries and locks it
// against concurrent writers.
func Open(path string) (*FileLedger, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: ledger path", common.ErrMissingConfig)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock ledger: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}

	l, err := open(path, lock)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return l, nil
}

func open(path string, lock *flock.Flock) (*FileLedger, error) {
	if err := trimPartialLine(path); err != nil {
		return nil, fmt.Errorf("failed to repair ledger: %w", err)
	}

	entries, err := ReadEntries(path)
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	l := &FileLedger{
		file:   file,
		lock:   lock,
		latest: make(map[string]model.LedgerEntry),
		now:    time.Now,
		path:   path,
	}
	for _, e := range entries {
		l.apply(e)
	}

	slog.Debug("Opened ledger", "path", path, "entries", len(entries), "assets", len(l.latest))
	return l, nil
}

// Path returns the ledger file path.
func (l *FileLedger) Path() string {
	return l.path
}

// Record appends entry and syncs it to disk. Any failure is a
// *common.LedgerWriteError.
func (l *FileLedger) Record(entry model.LedgerEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return &common.LedgerWriteError{Path: l.path, Err: os.ErrClosed}
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now().UTC()
	}
	if entry.Kind == "" {
		entry.Kind = model.EntryDecision
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return &common.LedgerWriteError{Path: l.path, Err: err}
	}
	line = append(line, '\n')

	if _, err := l.file.Write(line); err != nil {
		return &common.LedgerWriteError{Path: l.path, Err: err}
	}
	if err := l.file.Sync(); err != nil {
		return &common.LedgerWriteError{Path: l.path, Err: err}
	}

	l.apply(entry)
	return nil
}

// WasAlreadySettled reports whether the latest entry for the asset is ACCEPT.
func (l *FileLedger) WasAlreadySettled(assetFileName string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.latest[assetFileName]
	return ok && e.Outcome == model.OutcomeAccept
}

// Latest returns the authoritative entry for an asset.
func (l *FileLedger) Latest(assetFileName string) (model.LedgerEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.latest[assetFileName]
	return e, ok
}

// Close releases the file and the lock.
func (l *FileLedger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error
	if l.file != nil {
		errs = append(errs, l.file.Close())
		l.file = nil
	}
	if l.lock != nil {
		errs = append(errs, l.lock.Unlock())
		l.lock = nil
	}
	return errors.Join(errs...)
}

func (l *FileLedger) apply(e model.LedgerEntry) {
	if e.Kind != model.EntryDecision || e.AssetFileName == "" {
		return
	}
	l.latest[e.AssetFileName] = e
}

// ReadEntries returns every complete entry of the ledger at path. A missing
// file is an empty ledger. Lines that do not parse are skipped with a
// warning.
func ReadEntries(path string) ([]model.LedgerEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()

	return readEntries(f, path)
}

func readEntries(r io.Reader, path string) ([]model.LedgerEntry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var entries []model.LedgerEntry
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var e model.LedgerEntry
		if err := json.Unmarshal(line, &e); err != nil {
			slog.Warn("Skipping unreadable ledger line", "path", path, "line", lineNo, "error", err)
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("failed to read ledger %s: %w", path, err)
	}
	return entries, nil
}

// trimPartialLine truncates a ledger that does not end in a newline back to
// its last complete line, so the next append starts on a fresh line.
func trimPartialLine(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size == 0 {
		return nil
	}

	last := make([]byte, 1)
	if _, err := f.ReadAt(last, size-1); err != nil {
		return err
	}
	if last[0] == '\n' {
		return nil
	}

	const chunk = 4096
	end := size
	for end > 0 {
		start := max(end-chunk, 0)
		buf := make([]byte, end-start)
		if _, err := f.ReadAt(buf, start); err != nil {
			return err
		}
		if i := bytes.LastIndexByte(buf, '\n'); i >= 0 {
			keep := start + int64(i) + 1
			slog.Warn("Trimming partial ledger line", "path", path, "bytes", size-keep)
			return f.Truncate(keep)
		}
		end = start
	}
	slog.Warn("Trimming partial ledger line", "path", path, "bytes", size)
	return f.Truncate(0)
}
