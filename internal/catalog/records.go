package catalog

import (
	"context"
	"fmt"

	"github.com/Veraticus/mediamigrate/internal/model"
	"github.com/Veraticus/mediamigrate/internal/service"
)

// RecordCatalog is the ordered, read-only snapshot of content records taken
// at the start of a run. Iteration order is the order the store returned.
type RecordCatalog struct {
	byID    map[string]int
	records []model.ContentRecord
}

// NewRecordCatalog builds a catalog, keeping the first record for each ID.
func NewRecordCatalog(records []model.ContentRecord) *RecordCatalog {
	c := &RecordCatalog{
		byID:    make(map[string]int, len(records)),
		records: make([]model.ContentRecord, 0, len(records)),
	}
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		if _, dup := c.byID[r.ID]; dup {
			continue
		}
		c.byID[r.ID] = len(c.records)
		c.records = append(c.records, r)
	}
	return c
}

// LoadRecords snapshots every record of the content store.
func LoadRecords(ctx context.Context, store service.ContentStore) (*RecordCatalog, error) {
	records, err := store.FindRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load content records: %w", err)
	}
	return NewRecordCatalog(records), nil
}

// Records returns the records in catalog order.
func (c *RecordCatalog) Records() []model.ContentRecord {
	out := make([]model.ContentRecord, len(c.records))
	copy(out, c.records)
	return out
}

// Get returns the record with the given ID.
func (c *RecordCatalog) Get(id string) (model.ContentRecord, bool) {
	i, ok := c.byID[id]
	if !ok {
		return model.ContentRecord{}, false
	}
	return c.records[i], true
}

// Len returns the number of records.
func (c *RecordCatalog) Len() int {
	return len(c.records)
}

// CountWithMedia returns how many records already carry media.
func (c *RecordCatalog) CountWithMedia() int {
	n := 0
	for _, r := range c.records {
		if r.HasAssociatedMedia {
			n++
		}
	}
	return n
}

// Eligible returns the records without media, in catalog order. These are
// the records a run may still illustrate.
func (c *RecordCatalog) Eligible() []model.ContentRecord {
	out := make([]model.ContentRecord, 0, len(c.records))
	for _, r := range c.records {
		if !r.HasAssociatedMedia {
			out = append(out, r)
		}
	}
	return out
}
