// Package catalog holds the per-run snapshots of source assets and
// destination records.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/mediamigrate/internal/model"
)

// ErrMissingColumn is returned when the media export lacks a required column.
var ErrMissingColumn = errors.New("missing column")

// Media export column names.
const (
	ColumnTitle        = "Title"
	ColumnFileName     = "File Name"
	ColumnURL          = "URL"
	ColumnDateUploaded = "Date Uploaded"
)

var uploadDateLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// AssetCatalog is the ordered, read-only set of assets for one run.
type AssetCatalog struct {
	byName map[string]int
	assets []model.Asset
}

// NewAssetCatalog builds a catalog keyed by file name. Later duplicates of
// a file name are dropped so identity stays unique.
func NewAssetCatalog(assets []model.Asset) *AssetCatalog {
	c := &AssetCatalog{
		byName: make(map[string]int, len(assets)),
		assets: make([]model.Asset, 0, len(assets)),
	}
	for _, a := range assets {
		a.FileName = strings.TrimSpace(a.FileName)
		if a.FileName == "" {
			continue
		}
		if _, dup := c.byName[a.FileName]; dup {
			slog.Warn("Skipping duplicate asset", "file_name", a.FileName)
			continue
		}
		c.byName[a.FileName] = len(c.assets)
		c.assets = append(c.assets, a)
	}
	return c
}

// All returns the assets in load order.
func (c *AssetCatalog) All() []model.Asset {
	out := make([]model.Asset, len(c.assets))
	copy(out, c.assets)
	return out
}

// Get returns the asset with the given file name.
func (c *AssetCatalog) Get(fileName string) (model.Asset, bool) {
	i, ok := c.byName[fileName]
	if !ok {
		return model.Asset{}, false
	}
	return c.assets[i], true
}

// Len returns the number of assets.
func (c *AssetCatalog) Len() int {
	return len(c.assets)
}

// LoadAssetsCSVFile reads a media export CSV from disk.
func LoadAssetsCSVFile(path string) (*AssetCatalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open media export: %w", err)
	}
	defer f.Close()

	assets, err := ParseAssetsCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse media export %s: %w", path, err)
	}
	return NewAssetCatalog(assets), nil
}

// ParseAssetsCSV reads the legacy platform's media export. Rows without a
// URL or file name are skipped; an unparseable upload date is left unset.
func ParseAssetsCSV(r io.Reader) ([]model.Asset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimPrefix(name, "\ufeff")
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{ColumnFileName, ColumnURL} {
		if _, ok := cols[strings.ToLower(required)]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	field := func(row []string, name string) string {
		i, ok := cols[strings.ToLower(name)]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(strings.ReplaceAll(row[i], `"`, ""))
	}

	var assets []model.Asset
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		asset := model.Asset{
			FileName:      field(row, ColumnFileName),
			DeclaredTitle: field(row, ColumnTitle),
			SourceURL:     field(row, ColumnURL),
		}
		if asset.FileName == "" || asset.SourceURL == "" {
			continue
		}
		if raw := field(row, ColumnDateUploaded); raw != "" {
			if ts, ok := parseUploadDate(raw); ok {
				asset.UploadedAt = &ts
			} else {
				slog.Debug("Ignoring unparseable upload date", "file_name", asset.FileName, "value", raw)
			}
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

func parseUploadDate(raw string) (time.Time, bool) {
	for _, layout := range uploadDateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
