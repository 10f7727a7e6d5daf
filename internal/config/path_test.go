package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("MEDIAMIGRATE_TEST_DIR", "/srv/media")

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"~", home},
		{"~/ledger.jsonl", filepath.Join(home, "ledger.jsonl")},
		{"$MEDIAMIGRATE_TEST_DIR/cache", "/srv/media/cache"},
		{"relative/path", "relative/path"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}

func TestExpandPaths(t *testing.T) {
	t.Setenv("MEDIAMIGRATE_TEST_DIR", "/srv/media")
	a, b := "$MEDIAMIGRATE_TEST_DIR/a.db", ""

	expandPaths(&a, &b)

	assert.Equal(t, "/srv/media/a.db", a)
	assert.Empty(t, b)
}

func TestDir(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	dir, err := Dir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "mediamigrate"), dir)
}
