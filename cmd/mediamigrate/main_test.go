package main

import (
	"context"
	"testing"

	"github.com/Veraticus/mediamigrate/internal/config"
	"github.com/Veraticus/mediamigrate/internal/ledger"
	"github.com/Veraticus/mediamigrate/internal/model"
	"github.com/Veraticus/mediamigrate/internal/storage"
	"github.com/Veraticus/mediamigrate/internal/store/httpstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommands(t *testing.T) {
	want := map[string][]string{
		"run":     nil,
		"plan":    nil,
		"ledger":  {"show", "status"},
		"store":   {"seed", "records"},
		"version": nil,
	}

	for name, subs := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
		for _, sub := range subs {
			child, _, err := rootCmd.Find([]string{name, sub})
			require.NoError(t, err, name+" "+sub)
			assert.Equal(t, sub, child.Name())
		}
	}
}

func TestLatestInOrder(t *testing.T) {
	entries := []model.LedgerEntry{
		{Kind: model.EntryDecision, AssetFileName: "b.jpg", Outcome: model.OutcomeFailedFetch},
		{Kind: model.EntryDecision, AssetFileName: "a.jpg", Outcome: model.OutcomeRejectNoCandidate},
		{Kind: model.EntryRunSummary},
		{Kind: model.EntryDecision, AssetFileName: "b.jpg", Outcome: model.OutcomeAccept},
	}

	got := latestInOrder(entries, ledger.Summarize(entries))

	require.Len(t, got, 2)
	assert.Equal(t, "b.jpg", got[0].AssetFileName)
	assert.Equal(t, model.OutcomeAccept, got[0].Outcome)
	assert.Equal(t, "a.jpg", got[1].AssetFileName)
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	cfg := config.Default()
	cfg.Store.Driver = config.DriverSQLite
	cfg.SQLitePath = storage.MemoryPath
	store, closeStore, err := openStore(ctx, &cfg)
	require.NoError(t, err)
	defer closeStore()
	assert.IsType(t, &storage.SQLiteStorage{}, store)

	cfg = config.Default()
	client, closeClient, err := openStore(ctx, &cfg)
	require.NoError(t, err)
	defer closeClient()
	assert.IsType(t, &httpstore.Client{}, client)

	cfg.Store.Driver = "ftp"
	_, closeNothing, err := openStore(ctx, &cfg)
	closeNothing()
	assert.Error(t, err)
}

func TestLoadAssets_Missing(t *testing.T) {
	cfg := config.Default()
	_, err := loadAssets(&cfg)
	assert.Error(t, err)
}
