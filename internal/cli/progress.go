package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/Veraticus/mediamigrate/internal/model"
	"github.com/schollz/progressbar/v3"
)

// Progress renders a migration run as a progress bar. Failed assets are
// printed above the bar as they happen.
type Progress struct {
	writer io.Writer
	bar    *progressbar.ProgressBar
	mu     sync.Mutex
}

// NewProgress creates a progress display writing to writer.
func NewProgress(writer io.Writer) *Progress {
	if writer == nil {
		writer = os.Stdout
	}
	return &Progress{writer: writer}
}

// RunStarted creates the bar for total assets.
func (p *Progress) RunStarted(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Migrating assets...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(p.writer); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}

// AssetSkipped advances the bar for an already settled asset.
func (p *Progress) AssetSkipped(model.Asset) {
	p.advance()
}

// AssetProcessed advances the bar and reports failures.
func (p *Progress) AssetProcessed(entry model.LedgerEntry) {
	if entry.Outcome.IsFailure() {
		p.printAbove(FormatError(fmt.Sprintf("%s: %s %s", entry.AssetFileName, entry.Outcome, entry.Error)))
	}
	p.advance()
}

// RunFinished completes the bar.
func (p *Progress) RunFinished(*model.RunSummary) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil {
		return
	}
	if err := p.bar.Finish(); err != nil {
		slog.Warn("Failed to finish progress bar", "error", err)
	}
}

func (p *Progress) advance() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil {
		return
	}
	if err := p.bar.Add(1); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
}

func (p *Progress) printAbove(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		if err := p.bar.Clear(); err != nil {
			slog.Warn("Failed to clear progress bar", "error", err)
		}
	}
	if _, err := fmt.Fprintln(p.writer, line); err != nil {
		slog.Warn("Failed to write progress line", "error", err)
	}
}
