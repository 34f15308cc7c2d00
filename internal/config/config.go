package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"allegro-ops/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Logging    logging.Config   `mapstructure:"logging"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Allegro    AllegroConfig    `mapstructure:"allegro"`
	Sync       SyncConfig       `mapstructure:"sync"`
	Reconciler ReconcilerConfig `mapstructure:"reconciler"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Alerting   AlertingConfig   `mapstructure:"alerting"`
	Export     ExportConfig     `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// HTTPConfig governs the API server.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AppRootURL      string        `mapstructure:"app_root_url"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// AllegroConfig covers marketplace API access.
type AllegroConfig struct {
	ClientID       string        `mapstructure:"client_id"`
	ClientSecret   string        `mapstructure:"client_secret"`
	RedirectURI    string        `mapstructure:"redirect_uri"`
	AuthBaseURL    string        `mapstructure:"auth_base_url"`
	APIBaseURL     string        `mapstructure:"api_base_url"`
	Subject        string        `mapstructure:"subject"`
	PageLimit      int           `mapstructure:"page_limit"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	TokenLifetime  time.Duration `mapstructure:"token_lifetime"`
}

// SyncConfig drives the optional periodic background sync.
type SyncConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Interval        time.Duration `mapstructure:"interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// ReconcilerConfig tunes the background upsert worker.
type ReconcilerConfig struct {
	QueueSize     int           `mapstructure:"queue_size"`
	RecordTimeout time.Duration `mapstructure:"record_timeout"`
}

// CacheConfig captures the optional Redis listing cache.
type CacheConfig struct {
	RedisAddr  string        `mapstructure:"redis_addr"`
	ListingTTL time.Duration `mapstructure:"listing_ttl"`
}

// AlertingConfig defines new-order alert routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes the Telegram bot channel.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxRows int `mapstructure:"max_rows"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ALLEGRO_OPS")
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
	v.SetDefault("app.name", "allegro-ops")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.request_timeout", "15s")
	v.SetDefault("http.shutdown_timeout", "5s")
	v.SetDefault("http.app_root_url", "/")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")

	v.SetDefault("allegro.auth_base_url", "https://allegro.pl/auth/oauth")
	v.SetDefault("allegro.api_base_url", "https://api.allegro.pl")
	v.SetDefault("allegro.subject", "admin")
	v.SetDefault("allegro.page_limit", 20)
	v.SetDefault("allegro.request_timeout", "10s")
	v.SetDefault("allegro.user_agent", "allegro-ops/1.0")
	v.SetDefault("allegro.token_lifetime", "12h")

	v.SetDefault("sync.enabled", false)
	v.SetDefault("sync.interval", "5m")
	v.SetDefault("sync.align_to_bucket", true)
	v.SetDefault("sync.advisory_lock_key", int64(0x414c4f50))
	v.SetDefault("sync.startup_delay", "0s")

	v.SetDefault("reconciler.queue_size", 64)
	v.SetDefault("reconciler.record_timeout", "5s")

	v.SetDefault("cache.listing_ttl", "30s")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_rows", 100000)
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
	if c.Allegro.Subject == "" {
		return fmt.Errorf("allegro.subject must not be empty")
	}
	if c.Allegro.PageLimit < 0 {
		return fmt.Errorf("allegro.page_limit cannot be negative")
	}
	if c.Allegro.TokenLifetime <= 0 {
		return fmt.Errorf("allegro.token_lifetime must be greater than zero")
	}
	if c.Sync.Enabled && c.Sync.Interval <= 0 {
		return fmt.Errorf("sync.interval must be greater than zero when sync is enabled")
	}
	if c.Reconciler.QueueSize <= 0 {
		return fmt.Errorf("reconciler.queue_size must be greater than zero")
	}
	if c.Export.MaxRows <= 0 {
		return fmt.Errorf("export.max_rows must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required")
		}
	}
	return nil
}

// ResolveMaxRows returns either the CLI override or config default.
func (c *Config) ResolveMaxRows(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxRows
}
