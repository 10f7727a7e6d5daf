package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecordsJSON_Array(t *testing.T) {
	input := `[
		{"id": 10, "slug": "anabbprev-seguro-vida", "titulo": "Seguro de Vida", "createdAt": "2023-03-10T12:00:00Z"},
		{"id": 11, "documentId": "abc123", "slug": "festa", "title": "Festa Junina", "image": [{"id": 4}]},
		{"id": 12, "slug": "posse", "hasMedia": true, "image": null}
	]`

	records, err := ParseRecordsJSON(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "10", records[0].ID)
	assert.Equal(t, "Seguro de Vida", records[0].Title)
	assert.Equal(t, time.Date(2023, 3, 10, 12, 0, 0, 0, time.UTC), records[0].CreatedAt)
	assert.False(t, records[0].HasAssociatedMedia)

	assert.Equal(t, "abc123", records[1].ID)
	assert.Equal(t, "Festa Junina", records[1].Title)
	assert.True(t, records[1].HasAssociatedMedia)

	assert.True(t, records[2].HasAssociatedMedia)
	assert.True(t, records[2].CreatedAt.IsZero())
}

func TestParseRecordsJSON_Envelope(t *testing.T) {
	input := `{"data": [{"id": 1, "slug": "a", "image": []}], "meta": {}}`

	records, err := ParseRecordsJSON(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "1", records[0].ID)
	assert.False(t, records[0].HasAssociatedMedia)
}

func TestParseRecordsJSON_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "not json", input: "slug,title"},
		{name: "missing id", input: `[{"slug": "a"}]`},
		{name: "bad date", input: `[{"id": 1, "createdAt": "yesterday"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecordsJSON(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestLoadRecordsJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id": 3, "slug": "x"}]`), 0o600))

	records, err := LoadRecordsJSONFile(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "x", records[0].Slug)

	_, err = LoadRecordsJSONFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
