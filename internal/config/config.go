package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"fx-market-risk/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Pairs     []PairConfig    `mapstructure:"pairs"`
	Positions PositionsConfig `mapstructure:"positions"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// SchedulerConfig governs the daily recomputation cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// PipelineConfig carries the VaR model parameters.
type PipelineConfig struct {
	ConfidenceLevel       float64 `mapstructure:"confidence_level"`
	PercentileLong        float64 `mapstructure:"percentile_long"`
	PercentileShort       float64 `mapstructure:"percentile_short"`
	WindowSize            int     `mapstructure:"window_size"`
	LookbackCalendarDays  int     `mapstructure:"lookback_calendar_days"`
	MinimumDataDate       string  `mapstructure:"minimum_data_date"`
	ReturnSanityThreshold float64 `mapstructure:"return_sanity_threshold"`
}

// MinimumDate parses the configured cutoff date.
func (p PipelineConfig) MinimumDate() (time.Time, error) {
	return time.Parse("2006-01-02", p.MinimumDataDate)
}

// FeedConfig locates the raw input drop directories.
type FeedConfig struct {
	RatesDir     string `mapstructure:"rates_dir"`
	PositionsDir string `mapstructure:"positions_dir"`
}

// PairConfig describes one configured currency pair.
type PairConfig struct {
	Symbol           string  `mapstructure:"symbol"`
	Name             string  `mapstructure:"name"`
	BaseCurrency     string  `mapstructure:"base_currency"`
	QuoteCurrency    string  `mapstructure:"quote_currency"`
	LiquidityTier    string  `mapstructure:"liquidity_tier"`
	BasePositionSize float64 `mapstructure:"base_position_size"`
}

// PositionsConfig tunes the simulated position generator.
type PositionsConfig struct {
	Desk             string  `mapstructure:"desk"`
	LongProbability  float64 `mapstructure:"long_probability"`
	ShortProbability float64 `mapstructure:"short_probability"`
	FlatProbability  float64 `mapstructure:"flat_probability"`
	MaxDeviation     float64 `mapstructure:"max_deviation"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FXRISK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "fxrisk")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.interval", "24h")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x66787269))
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("pipeline.confidence_level", 0.95)
	v.SetDefault("pipeline.percentile_long", 0.05)
	v.SetDefault("pipeline.percentile_short", 0.95)
	v.SetDefault("pipeline.window_size", 30)
	v.SetDefault("pipeline.lookback_calendar_days", 35)
	v.SetDefault("pipeline.minimum_data_date", "2024-01-01")
	v.SetDefault("pipeline.return_sanity_threshold", 0.15)

	v.SetDefault("feed.rates_dir", "data/raw/fx_rates")
	v.SetDefault("feed.positions_dir", "data/raw/positions")

	v.SetDefault("positions.desk", "FX_TRADING")
	v.SetDefault("positions.long_probability", 0.70)
	v.SetDefault("positions.short_probability", 0.30)
	v.SetDefault("positions.flat_probability", 0.05)
	v.SetDefault("positions.max_deviation", 0.20)

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Pipeline.WindowSize <= 0 {
		return fmt.Errorf("pipeline.window_size must be greater than zero")
	}
	if c.Pipeline.LookbackCalendarDays < c.Pipeline.WindowSize {
		return fmt.Errorf("pipeline.lookback_calendar_days must cover the window size")
	}
	if c.Pipeline.ConfidenceLevel <= 0 || c.Pipeline.ConfidenceLevel >= 1 {
		return fmt.Errorf("pipeline.confidence_level must be in (0, 1)")
	}
	if c.Pipeline.PercentileLong <= 0 || c.Pipeline.PercentileLong >= 1 {
		return fmt.Errorf("pipeline.percentile_long must be in (0, 1)")
	}
	if c.Pipeline.PercentileShort <= 0 || c.Pipeline.PercentileShort >= 1 {
		return fmt.Errorf("pipeline.percentile_short must be in (0, 1)")
	}
	if c.Pipeline.ReturnSanityThreshold <= 0 {
		return fmt.Errorf("pipeline.return_sanity_threshold must be greater than zero")
	}
	if _, err := c.Pipeline.MinimumDate(); err != nil {
		return fmt.Errorf("pipeline.minimum_data_date must be YYYY-MM-DD: %w", err)
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	for i, pair := range c.Pairs {
		if len(pair.Symbol) != 6 {
			return fmt.Errorf("pairs[%d].symbol must be a six-letter code", i)
		}
	}
	if sum := c.Positions.LongProbability + c.Positions.ShortProbability; sum > 1.0001 {
		return fmt.Errorf("positions direction probabilities must not exceed 1")
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
