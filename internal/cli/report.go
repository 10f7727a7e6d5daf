package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/mediamigrate/internal/ledger"
	"github.com/Veraticus/mediamigrate/internal/model"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

var rejectionOrder = []model.Outcome{
	model.OutcomeRejectNoCandidate,
	model.OutcomeRejectLowConfidence,
	model.OutcomeRejectAlreadyAssociated,
}

var failureOrder = []model.Outcome{
	model.OutcomeFailedFetch,
	model.OutcomeFailedTransfer,
	model.OutcomeFailedAssociation,
}

// RenderRunSummary renders the end-of-run report.
func RenderRunSummary(s *model.RunSummary) string {
	var b strings.Builder

	b.WriteString(BoldStyle.Render(fmt.Sprintf("%s Accepted: %d", SuccessIcon, s.Accepted())) + "\n")
	for _, reason := range rejectionOrder {
		fmt.Fprintf(&b, "  %s: %d\n", reason, s.Rejected(reason))
	}
	failed := s.Failed()
	if failed > 0 {
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("%s Failed: %d", ErrorIcon, failed)) + "\n")
		for _, outcome := range failureOrder {
			if n := s.Outcomes[outcome]; n > 0 {
				fmt.Fprintf(&b, "  %s: %d\n", outcome, n)
			}
		}
	} else {
		fmt.Fprintf(&b, "%s Failed: 0\n", SuccessIcon)
	}
	b.WriteString(SubtleStyle.Render(fmt.Sprintf("Skipped (already settled): %d", s.Skipped)) + "\n")
	fmt.Fprintf(&b, "Uploaded: %d  Reused: %d\n", s.Uploaded, s.Reused)
	if !s.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "Duration: %s", s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
	}
	if s.Interrupted {
		b.WriteString("\n" + FormatWarning("Run was interrupted before all assets were processed"))
	}

	return RenderBox(ChartIcon+" Migration Summary", strings.TrimRight(b.String(), "\n"))
}

// RenderDecisions renders a dry-run plan as a table.
func RenderDecisions(decisions []model.Decision) string {
	headers := []string{"Asset", "Outcome", "Record", "Score", "Band", "Rationale"}
	rows := make([][]string, 0, len(decisions))
	for _, d := range decisions {
		record := ""
		if d.Record != nil {
			record = d.Record.ID
			if d.Record.Slug != "" {
				record += " " + d.Record.Slug
			}
		}
		score, band, rationale := "", "", ""
		if d.Candidate != nil {
			score = formatScore(d.Candidate.Score)
			band = string(d.Candidate.Band)
			rationale = strings.Join(d.Candidate.Rationale, ", ")
		}
		rows = append(rows, []string{d.Asset.FileName, StyleOutcome(d.Outcome), record, score, band, rationale})
	}
	return renderTable(headers, rows, []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight})
}

// RenderLedgerEntries renders per-asset ledger entries as a table.
func RenderLedgerEntries(entries []model.LedgerEntry) string {
	headers := []string{"Time", "Asset", "Outcome", "Record", "Media", "Score", "Error"}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		if e.Kind != model.EntryDecision {
			continue
		}
		score := ""
		if e.Score > 0 {
			score = formatScore(e.Score)
		}
		rows = append(rows, []string{
			e.Timestamp.Local().Format(time.DateTime),
			e.AssetFileName,
			StyleOutcome(e.Outcome),
			e.RecordID,
			e.AssetHandleID,
			score,
			e.Error,
		})
	}
	return renderTable(headers, rows, []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight})
}

// RenderStatus renders the ledger status. Records and withMedia describe
// the content store; pass a negative records count when it is unknown.
func RenderStatus(status ledger.Status, records, withMedia int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Assets in ledger: %d\n", status.Assets())
	fmt.Fprintf(&b, "Settled: %d\n", status.Settled())
	fmt.Fprintf(&b, "Runs: %d\n", status.Runs)
	if status.LastRun != nil && status.LastRun.Summary != nil {
		fmt.Fprintf(&b, "Last run: %s (%d processed)\n",
			status.LastRun.Timestamp.Local().Format(time.DateTime), status.LastRun.Summary.Processed)
	}
	if records >= 0 {
		pct := 0.0
		if records > 0 {
			pct = float64(withMedia) / float64(records) * 100
		}
		fmt.Fprintf(&b, "Records with media: %d/%d (%.1f%%)\n", withMedia, records, pct)
	}

	headers := []string{"Outcome", "Assets"}
	rows := make([][]string, 0, len(status.ByOutcome))
	order := append([]model.Outcome{model.OutcomeAccept}, rejectionOrder...)
	order = append(order, failureOrder...)
	for _, outcome := range order {
		if n := status.ByOutcome[outcome]; n > 0 {
			rows = append(rows, []string{string(outcome), strconv.Itoa(n)})
		}
	}

	out := RenderBox(LedgerIcon+" Ledger Status", strings.TrimRight(b.String(), "\n"))
	if len(rows) > 0 {
		out += "\n" + renderTable(headers, rows, []columnAlignment{alignLeft, alignRight})
	}
	return out
}

// RenderRecords renders content records as a table.
func RenderRecords(records []model.ContentRecord) string {
	headers := []string{"ID", "Slug", "Title", "Created", "Media"}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		created := ""
		if !r.CreatedAt.IsZero() {
			created = r.CreatedAt.Format(time.DateOnly)
		}
		media := ""
		if r.HasAssociatedMedia {
			media = SuccessIcon
		}
		rows = append(rows, []string{r.ID, r.Slug, r.Title, created, media})
	}
	return renderTable(headers, rows, nil)
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 1, 64)
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}
