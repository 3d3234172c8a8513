// Package config loads the application configuration from environment
// variables and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Access   AccessConfig   `mapstructure:"access"`
	Store    StoreConfig    `mapstructure:"store"`
	Gate     GateConfig     `mapstructure:"gate"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// TelegramConfig configures the Bot API connection.
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	PollingTimeout int           `mapstructure:"polling_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// AccessConfig lists the operators fixed by configuration. AdminIDs is parsed
// from a comma separated value.
type AccessConfig struct {
	OwnerID  int64   `mapstructure:"owner_id"`
	AdminIDs []int64 `mapstructure:"-"`
}

// StoreConfig selects and configures the key-value backend.
type StoreConfig struct {
	Backend       string `mapstructure:"backend"`
	DatabasePath  string `mapstructure:"database_path"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisPrefix   string `mapstructure:"redis_prefix"`
}

// GateConfig tunes cache windows and timeouts.
type GateConfig struct {
	ConfigRefresh   time.Duration `mapstructure:"config_refresh"`
	PassTTL         time.Duration `mapstructure:"pass_ttl"`
	InviteTTL       time.Duration `mapstructure:"invite_ttl"`
	WorkflowTimeout time.Duration `mapstructure:"workflow_timeout"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	JSONFormat bool   `mapstructure:"json_format"`
}

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// envKeys maps configuration keys to their environment variables.
var envKeys = map[string]string{
	"telegram.bot_token":       "TELEGRAM_BOT_TOKEN",
	"telegram.polling_timeout": "POLLING_TIMEOUT",
	"telegram.request_timeout": "REQUEST_TIMEOUT",
	"access.owner_id":          "OWNER_ID",
	"access.admin_ids":         "ADMIN_IDS",
	"store.backend":            "STORE_BACKEND",
	"store.database_path":      "DATABASE_PATH",
	"store.redis_addr":         "REDIS_ADDR",
	"store.redis_password":     "REDIS_PASSWORD",
	"store.redis_db":           "REDIS_DB",
	"store.redis_prefix":       "REDIS_PREFIX",
	"gate.config_refresh":      "CONFIG_REFRESH",
	"gate.pass_ttl":            "PASS_TTL",
	"gate.invite_ttl":          "INVITE_TTL",
	"gate.workflow_timeout":    "WORKFLOW_TIMEOUT",
	"logging.level":            "LOG_LEVEL",
	"logging.json_format":      "LOG_JSON",
}

// Load reads configuration from defaults, the optional config file and
// environment variables, in increasing precedence.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("telegram.polling_timeout", 60)
	v.SetDefault("telegram.request_timeout", "1m")
	v.SetDefault("store.backend", BackendSQLite)
	v.SetDefault("store.database_path", "./data/bot.db")
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_db", 0)
	v.SetDefault("store.redis_prefix", "fsub:")
	v.SetDefault("gate.config_refresh", "60s")
	v.SetDefault("gate.pass_ttl", "5m")
	v.SetDefault("gate.invite_ttl", "5m")
	v.SetDefault("gate.workflow_timeout", "30s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.json_format", false)

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	admins, err := parseIDs(v.GetStringSlice("access.admin_ids"))
	if err != nil {
		return nil, err
	}
	cfg.Access.AdminIDs = admins

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// parseIDs accepts both list items and comma separated strings.
func parseIDs(items []string) ([]int64, error) {
	var ids []int64
	for _, item := range items {
		for _, s := range strings.Split(item, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			uid, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID %q in ADMIN_IDS: %w", s, err)
			}
			ids = append(ids, uid)
		}
	}
	return ids, nil
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if c.Access.OwnerID == 0 {
		return fmt.Errorf("OWNER_ID is required")
	}
	switch c.Store.Backend {
	case BackendSQLite:
		if c.Store.DatabasePath == "" {
			return fmt.Errorf("DATABASE_PATH must not be empty")
		}
	case BackendRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown LOG_LEVEL %q", c.Logging.Level)
	}
	durations := map[string]time.Duration{
		"REQUEST_TIMEOUT":  c.Telegram.RequestTimeout,
		"CONFIG_REFRESH":   c.Gate.ConfigRefresh,
		"PASS_TTL":         c.Gate.PassTTL,
		"INVITE_TTL":       c.Gate.InviteTTL,
		"WORKFLOW_TIMEOUT": c.Gate.WorkflowTimeout,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}

// StaticOperators returns the operator ids fixed by configuration.
func (c *Config) StaticOperators() []int64 {
	return append([]int64{c.Access.OwnerID}, c.Access.AdminIDs...)
}
