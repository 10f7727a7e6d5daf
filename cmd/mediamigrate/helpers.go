package main

import (
	"context"
	"fmt"

	"github.com/Veraticus/mediamigrate/internal/catalog"
	"github.com/Veraticus/mediamigrate/internal/common"
	"github.com/Veraticus/mediamigrate/internal/config"
	"github.com/Veraticus/mediamigrate/internal/service"
	"github.com/Veraticus/mediamigrate/internal/storage"
	"github.com/Veraticus/mediamigrate/internal/store/httpstore"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// loadConfig reads the typed configuration after applying command flags
// that override config keys.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	for flag, key := range map[string]string{
		"assets": "assets.csv",
		"ledger": "ledger.path",
		"store":  "store.driver",
	} {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			viper.Set(key, f.Value.String())
		}
	}
	return config.Load(viper.GetViper())
}

// openStore connects to the configured content store. The returned close
// function is always safe to call.
func openStore(ctx context.Context, cfg *config.Config) (service.ContentStore, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		store, err := storage.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, func() {}, err
		}
		return store, func() { _ = store.Close() }, nil
	case config.DriverHTTP:
		client, err := httpstore.New(cfg.HTTPStore())
		if err != nil {
			return nil, func() {}, err
		}
		return client, func() {}, nil
	default:
		return nil, func() {}, fmt.Errorf("%w: unknown store.driver %q", common.ErrInvalidConfig, cfg.Store.Driver)
	}
}

// loadAssets reads the media export named by assets.csv.
func loadAssets(cfg *config.Config) (*catalog.AssetCatalog, error) {
	if cfg.AssetsCSV == "" {
		return nil, common.NewUserError("no media export given (pass --assets or set assets.csv)", common.ErrMissingConfig)
	}
	return catalog.LoadAssetsCSVFile(cfg.AssetsCSV)
}
