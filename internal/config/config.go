package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/mediamigrate/internal/common"
	"github.com/Veraticus/mediamigrate/internal/engine"
	"github.com/Veraticus/mediamigrate/internal/matcher"
	"github.com/Veraticus/mediamigrate/internal/source"
	"github.com/Veraticus/mediamigrate/internal/store/httpstore"
	"github.com/Veraticus/mediamigrate/internal/uploader"
	"github.com/spf13/viper"
)

// Content store drivers.
const (
	DriverHTTP   = "http"
	DriverSQLite = "sqlite"
)

// StoreConfig selects and configures the content store.
type StoreConfig struct {
	Driver     string
	URL        string
	Token      string
	Collection string
	MediaField string
	TitleField string
	PageSize   int
}

// Config is the typed view of the application configuration.
type Config struct {
	Store           StoreConfig
	SQLitePath      string
	LedgerPath      string
	AssetsCSV       string
	CacheDir        string
	Matching        matcher.Config
	Retry           common.RetryPolicy
	Pacing          time.Duration
	HTTPTimeout     time.Duration
	AcceptanceFloor float64
}

// Default returns the built-in configuration.
func Default() Config {
	store := httpstore.DefaultConfig()
	return Config{
		Store: StoreConfig{
			Driver:     DriverHTTP,
			URL:        store.BaseURL,
			Collection: store.Collection,
			MediaField: store.MediaField,
			TitleField: store.TitleField,
			PageSize:   store.PageSize,
		},
		SQLitePath:      "~/.local/share/mediamigrate/content.db",
		LedgerPath:      "migration-ledger.jsonl",
		Matching:        matcher.DefaultConfig(),
		Retry:           common.DefaultRetryPolicy(),
		Pacing:          engine.DefaultPacingDelay,
		HTTPTimeout:     30 * time.Second,
		AcceptanceFloor: engine.DefaultAcceptanceFloor,
	}
}

// Load reads the configuration from v. It follows this precedence:
// 1. Viper configuration (from config file or MEDIAMIGRATE_ env vars)
// 2. Direct environment variables (STRAPI_URL, STRAPI_TOKEN)
// 3. Default values
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default()

	if v.IsSet("store.driver") {
		cfg.Store.Driver = strings.ToLower(v.GetString("store.driver"))
	}
	if s := v.GetString("store.url"); s != "" {
		cfg.Store.URL = s
	} else if s := os.Getenv("STRAPI_URL"); s != "" {
		cfg.Store.URL = s
	}
	if s := v.GetString("store.token"); s != "" {
		cfg.Store.Token = s
	} else {
		cfg.Store.Token = os.Getenv("STRAPI_TOKEN")
	}
	if s := v.GetString("store.collection"); s != "" {
		cfg.Store.Collection = s
	}
	if s := v.GetString("store.media_field"); s != "" {
		cfg.Store.MediaField = s
	}
	if s := v.GetString("store.title_field"); s != "" {
		cfg.Store.TitleField = s
	}
	if v.IsSet("store.page_size") {
		cfg.Store.PageSize = v.GetInt("store.page_size")
	}

	if s := v.GetString("sqlite.path"); s != "" {
		cfg.SQLitePath = s
	}
	if s := v.GetString("ledger.path"); s != "" {
		cfg.LedgerPath = s
	}
	if s := v.GetString("assets.csv"); s != "" {
		cfg.AssetsCSV = s
	}
	if s := v.GetString("assets.cache_dir"); s != "" {
		cfg.CacheDir = s
	}

	if v.IsSet("retry.max_attempts") {
		cfg.Retry.MaxAttempts = v.GetInt("retry.max_attempts")
	}
	if v.IsSet("retry.base_delay") {
		cfg.Retry.BaseDelay = v.GetDuration("retry.base_delay")
	}
	if v.IsSet("retry.multiplier") {
		cfg.Retry.Multiplier = v.GetFloat64("retry.multiplier")
	}
	if v.IsSet("retry.max_delay") {
		cfg.Retry.MaxDelay = v.GetDuration("retry.max_delay")
	}
	if v.IsSet("pacing.delay") {
		cfg.Pacing = v.GetDuration("pacing.delay")
	}
	if v.IsSet("http.timeout") {
		cfg.HTTPTimeout = v.GetDuration("http.timeout")
	}

	if v.IsSet("matching.acceptance_floor") {
		cfg.AcceptanceFloor = v.GetFloat64("matching.acceptance_floor")
	}
	if v.IsSet("matching.min_similarity") {
		cfg.Matching.MinSimilarity = v.GetFloat64("matching.min_similarity")
	}
	if v.IsSet("matching.date_window") {
		cfg.Matching.DateWindow = v.GetDuration("matching.date_window")
	}
	if v.IsSet("matching.id_pattern") {
		cfg.Matching.IDPattern = v.GetString("matching.id_pattern")
	}
	for _, name := range matcher.Signals {
		key := "matching.signals." + string(name)
		sc := cfg.Matching.Signals[name]
		if v.IsSet(key + ".enabled") {
			sc.Enabled = v.GetBool(key + ".enabled")
		}
		if v.IsSet(key + ".weight") {
			sc.Weight = v.GetFloat64(key + ".weight")
		}
		cfg.Matching.Signals[name] = sc
	}

	expandPaths(&cfg.SQLitePath, &cfg.LedgerPath, &cfg.AssetsCSV, &cfg.CacheDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values no run can work with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverHTTP:
		if c.Store.URL == "" {
			return fmt.Errorf("%w: store.url is required for the http driver", common.ErrMissingConfig)
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite.path is required for the sqlite driver", common.ErrMissingConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store.driver %q (want %s or %s)", common.ErrInvalidConfig, c.Store.Driver, DriverHTTP, DriverSQLite)
	}
	if c.LedgerPath == "" {
		return fmt.Errorf("%w: ledger.path", common.ErrMissingConfig)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("%w: retry.max_attempts must be at least 1", common.ErrInvalidConfig)
	}
	if c.Pacing < 0 {
		return fmt.Errorf("%w: pacing.delay cannot be negative", common.ErrInvalidConfig)
	}
	if c.AcceptanceFloor < 0 {
		return fmt.Errorf("%w: matching.acceptance_floor cannot be negative", common.ErrInvalidConfig)
	}
	if c.Matching.MinSimilarity < 0 || c.Matching.MinSimilarity >= 1 {
		return fmt.Errorf("%w: matching.min_similarity must be in [0, 1)", common.ErrInvalidConfig)
	}
	for name, sc := range c.Matching.Signals {
		if sc.Weight < 0 {
			return fmt.Errorf("%w: matching.signals.%s.weight cannot be negative", common.ErrInvalidConfig, name)
		}
	}
	return nil
}

// HTTPStore returns the REST client configuration.
func (c *Config) HTTPStore() httpstore.Config {
	return httpstore.Config{
		BaseURL:    c.Store.URL,
		Token:      c.Store.Token,
		Collection: c.Store.Collection,
		MediaField: c.Store.MediaField,
		TitleField: c.Store.TitleField,
		PageSize:   c.Store.PageSize,
		Timeout:    c.HTTPTimeout,
	}
}

// Source returns the media source configuration.
func (c *Config) Source() source.Config {
	cfg := source.DefaultConfig()
	cfg.CacheDir = c.CacheDir
	cfg.Retry = c.Retry
	if c.HTTPTimeout > 0 {
		cfg.Timeout = c.HTTPTimeout
	}
	return cfg
}

// Reconcile returns the reconciliation configuration.
func (c *Config) Reconcile() engine.Config {
	return engine.Config{AcceptanceFloor: c.AcceptanceFloor}
}

// Run returns the migration run configuration.
func (c *Config) Run() engine.RunConfig {
	upload := uploader.DefaultConfig()
	upload.Retry = c.Retry
	if c.HTTPTimeout > 0 {
		upload.CallTimeout = 2 * c.HTTPTimeout
	}
	return engine.RunConfig{
		Reconcile:   c.Reconcile(),
		Upload:      upload,
		PacingDelay: c.Pacing,
		CallTimeout: c.HTTPTimeout,
	}
}
