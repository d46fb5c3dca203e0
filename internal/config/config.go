package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/szhangbiao/price-crawler/internal/logging"
	"github.com/szhangbiao/price-crawler/internal/market"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Calendar CalendarConfig `mapstructure:"calendar"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	Alerting AlertingConfig `mapstructure:"alerting"`
	Export   ExportConfig   `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// MonitorConfig governs polling cadence and circuit breaking.
type MonitorConfig struct {
	TickInterval         time.Duration  `mapstructure:"tick_interval"`
	GoldInterval         time.Duration  `mapstructure:"gold_interval"`
	IndicesInterval      time.Duration  `mapstructure:"indices_interval"`
	ExchangeRateInterval time.Duration  `mapstructure:"exchange_rate_interval"`
	FailureThreshold     int            `mapstructure:"failure_threshold"`
	SeriesThresholds     map[string]int `mapstructure:"series_thresholds"`
}

// Intervals maps the configured cadence onto the scheduler's per-series form.
func (c MonitorConfig) Intervals() map[market.Series]time.Duration {
	return map[market.Series]time.Duration{
		market.SeriesGold:         c.GoldInterval,
		market.SeriesIndices:      c.IndicesInterval,
		market.SeriesExchangeRate: c.ExchangeRateInterval,
	}
}

// Thresholds resolves the per-series breaker limits. FailureThreshold is the
// baseline; series_thresholds entries override it per series.
func (c MonitorConfig) Thresholds() map[market.Series]int {
	out := make(map[market.Series]int, len(market.AllSeries()))
	for _, s := range market.AllSeries() {
		out[s] = c.FailureThreshold
	}
	for key, value := range c.SeriesThresholds {
		series, err := market.ParseSeries(key)
		if err != nil {
			continue
		}
		out[series] = value
	}
	return out
}

// CalendarConfig amends the built-in trading calendar. Dates use YYYY-MM-DD.
type CalendarConfig struct {
	Timezone      string   `mapstructure:"timezone"`
	ExtraHolidays []string `mapstructure:"extra_holidays"`
	ExtraWorkdays []string `mapstructure:"extra_workdays"`
}

// StorageConfig selects and tunes the persistence backend.
type StorageConfig struct {
	Driver          string        `mapstructure:"driver"`
	Dir             string        `mapstructure:"dir"`
	Path            string        `mapstructure:"path"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SourcesConfig carries vendor endpoints and credentials.
type SourcesConfig struct {
	RequestTimeout time.Duration       `mapstructure:"request_timeout"`
	UserAgent      string              `mapstructure:"user_agent"`
	Gold           GoldSourcesConfig   `mapstructure:"gold"`
	Indices        IndicesSourceConfig `mapstructure:"indices"`
	ExchangeRate   RateSourcesConfig   `mapstructure:"exchange_rate"`
}

// GoldSourcesConfig 配置黄金价格数据源。
type GoldSourcesConfig struct {
	CngoldURL     string  `mapstructure:"cngold_url"`
	CngoldKeyword string  `mapstructure:"cngold_keyword"`
	GoldpriceURL  string  `mapstructure:"goldprice_url"`
	JuheURL       string  `mapstructure:"juhe_url"`
	JuheKey       string  `mapstructure:"juhe_key"`
	JuheVariety   string  `mapstructure:"juhe_variety"`
	SyntheticBase float64 `mapstructure:"synthetic_base"`
}

// IndicesSourceConfig 配置大盘指数数据源。
type IndicesSourceConfig struct {
	BaseURL string   `mapstructure:"base_url"`
	Referer string   `mapstructure:"referer"`
	Codes   []string `mapstructure:"codes"`
}

// RateSourcesConfig 配置汇率数据源。
type RateSourcesConfig struct {
	JuheURL        string `mapstructure:"juhe_url"`
	JuheKey        string `mapstructure:"juhe_key"`
	MxnzpURL       string `mapstructure:"mxnzp_url"`
	MxnzpAppID     string `mapstructure:"mxnzp_app_id"`
	MxnzpAppSecret string `mapstructure:"mxnzp_app_secret"`
	From           string `mapstructure:"from"`
	To             string `mapstructure:"to"`
}

// AlertingConfig defines breaker alert routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	Dir           string `mapstructure:"dir"`
	MaxDataPoints int    `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PRICECRAWLER")
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
	v.SetDefault("app.name", "price-crawler")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.enabled", true)
	v.SetDefault("logging.file.path", "logs/price_crawler.log")
	v.SetDefault("logging.file.max_size_mb", 10)
	v.SetDefault("logging.file.max_backups", 5)
	v.SetDefault("logging.file.max_age_days", 30)

	v.SetDefault("monitor.tick_interval", "10s")
	v.SetDefault("monitor.gold_interval", "30m")
	v.SetDefault("monitor.indices_interval", "1m")
	v.SetDefault("monitor.exchange_rate_interval", "30m")
	v.SetDefault("monitor.failure_threshold", 3)

	v.SetDefault("calendar.timezone", "Asia/Shanghai")

	v.SetDefault("storage.driver", "csv")
	v.SetDefault("storage.dir", "data")
	v.SetDefault("storage.path", "data/price_data.db")
	v.SetDefault("storage.max_open_conns", 10)
	v.SetDefault("storage.max_idle_conns", 5)
	v.SetDefault("storage.conn_max_lifetime", "30m")

	v.SetDefault("sources.request_timeout", "10s")
	v.SetDefault("sources.gold.juhe_variety", "Au99.99")
	v.SetDefault("sources.gold.synthetic_base", 450.0)
	v.SetDefault("sources.exchange_rate.from", "USD")
	v.SetDefault("sources.exchange_rate.to", "CNY")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.dir", "export")
	v.SetDefault("export.max_data_points", 100000)
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
	if c.Monitor.TickInterval <= 0 {
		return fmt.Errorf("monitor.tick_interval must be greater than zero")
	}
	for series, interval := range c.Monitor.Intervals() {
		if interval <= 0 {
			return fmt.Errorf("monitor interval for %s must be greater than zero", series)
		}
	}
	if c.Monitor.FailureThreshold < 0 {
		return fmt.Errorf("monitor.failure_threshold cannot be negative")
	}
	for key, value := range c.Monitor.SeriesThresholds {
		if _, err := market.ParseSeries(key); err != nil {
			return fmt.Errorf("monitor.series_thresholds: %w", err)
		}
		if value < 0 {
			return fmt.Errorf("monitor.series_thresholds.%s cannot be negative", key)
		}
	}
	switch c.Storage.Driver {
	case "", "csv", "sqlite", "postgres":
	default:
		return fmt.Errorf("未知存储驱动 %q (可选: csv, sqlite, postgres)", c.Storage.Driver)
	}
	if c.Storage.Driver == "postgres" && c.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn 必须配置 (postgres 驱动)")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
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
