package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/mediamigrate/internal/model"
)

type recordJSON struct {
	ID         json.Number     `json:"id"`
	DocumentID string          `json:"documentId"`
	Slug       string          `json:"slug"`
	Titulo     string          `json:"titulo"`
	Title      string          `json:"title"`
	CreatedAt  string          `json:"createdAt"`
	Image      json.RawMessage `json:"image"`
	HasMedia   bool            `json:"hasMedia"`
}

// ParseRecordsJSON reads content records from a JSON array, or from a
// {"data": [...]} envelope as the content API returns it. A record's ID is
// its documentId when present, otherwise its id. A non-empty image field
// counts as associated media.
func ParseRecordsJSON(r io.Reader) ([]model.ContentRecord, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	raw = bytes.TrimSpace(raw)

	var items []recordJSON
	if len(raw) > 0 && raw[0] == '{' {
		var envelope struct {
			Data []recordJSON `json:"data"`
		}
		if err := decodeNumbers(raw, &envelope); err != nil {
			return nil, fmt.Errorf("failed to decode records: %w", err)
		}
		items = envelope.Data
	} else if err := decodeNumbers(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}

	records := make([]model.ContentRecord, 0, len(items))
	for i, item := range items {
		id := item.DocumentID
		if id == "" {
			id = item.ID.String()
		}
		if id == "" {
			return nil, fmt.Errorf("record %d has no id", i)
		}
		title := item.Titulo
		if title == "" {
			title = item.Title
		}
		record := model.ContentRecord{
			ID:                 id,
			Slug:               item.Slug,
			Title:              title,
			HasAssociatedMedia: item.HasMedia || hasImage(item.Image),
		}
		if item.CreatedAt != "" {
			created, err := time.Parse(time.RFC3339, item.CreatedAt)
			if err != nil {
				return nil, fmt.Errorf("record %s: invalid createdAt %q: %w", id, item.CreatedAt, err)
			}
			record.CreatedAt = created
		}
		records = append(records, record)
	}
	return records, nil
}

// LoadRecordsJSONFile reads content records from a JSON file.
func LoadRecordsJSONFile(path string) ([]model.ContentRecord, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("failed to open records file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ParseRecordsJSON(f)
}

func decodeNumbers(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

func hasImage(raw json.RawMessage) bool {
	switch strings.TrimSpace(string(raw)) {
	case "", "null", "[]", "{}":
		return false
	}
	return true
}
