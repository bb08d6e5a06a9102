// Package config loads the triage service configuration from defaults, an
// optional YAML file and TRIAGE_* environment variables, in that order of
// precedence.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/triage/pkg/orchestrator"
	"github.com/aretw0/triage/pkg/persistence/middleware"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. TRIAGE_STORE_DRIVER.
const EnvPrefix = "TRIAGE"

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Agent modes.
const (
	AgentsNone    = "none"
	AgentsLocal   = "local"
	AgentsGateway = "gateway"
	AgentsProcess = "process"
)

type Config struct {
	LogLevel     string              `mapstructure:"log_level"`
	Orchestrator orchestrator.Config `mapstructure:"orchestrator"`
	Agents       AgentsConfig        `mapstructure:"agents"`
	Formulary    FormularyConfig     `mapstructure:"formulary"`
	Store        StoreConfig         `mapstructure:"store"`
	HTTP         HTTPConfig          `mapstructure:"http"`
	Metrics      MetricsConfig       `mapstructure:"metrics"`
}

// AgentsConfig selects how the advisory ports are served.
type AgentsConfig struct {
	Mode          string        `mapstructure:"mode"`
	BaseURL       string        `mapstructure:"base_url"`
	APIKey        string        `mapstructure:"api_key"`
	Model         string        `mapstructure:"model"`
	Timeout       time.Duration `mapstructure:"timeout"`
	ProcessConfig string        `mapstructure:"process_config"`
}

type FormularyConfig struct {
	Dir           string `mapstructure:"dir"`
	DefaultLocale string `mapstructure:"default_locale"`
}

// StoreConfig selects the audit store backend.
type StoreConfig struct {
	Driver          string        `mapstructure:"driver"`
	FileDir         string        `mapstructure:"file_dir"`
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	RedisPrefix     string        `mapstructure:"redis_prefix"`
	RedisTTL        time.Duration `mapstructure:"redis_ttl"`
	PostgresDSN     string        `mapstructure:"postgres_dsn"`
	PostgresTable   string        `mapstructure:"postgres_table"`
	EncryptionKey   string        `mapstructure:"encryption_key"`
	DistributedLock bool          `mapstructure:"distributed_lock"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		LogLevel:     "info",
		Orchestrator: orchestrator.DefaultConfig(),
		Agents: AgentsConfig{
			Mode:    AgentsLocal,
			Timeout: 60 * time.Second,
		},
		Store: StoreConfig{
			Driver:      DriverMemory,
			FileDir:     ".triage/bundles",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "triage:bundle:",
		},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Load reads the configuration. path may be empty, in which case only
// defaults and the environment are used.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key, which is also what lets AutomaticEnv
// reach nested keys on Unmarshal.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("log_level", d.LogLevel)

	o := d.Orchestrator
	v.SetDefault("orchestrator.strict_interrupts", o.StrictInterrupts)
	v.SetDefault("orchestrator.doctor_summary_on_referral", o.DoctorSummaryOnReferral)
	v.SetDefault("orchestrator.prescriber_signoff_required", o.PrescriberSignoffRequired)
	v.SetDefault("orchestrator.honor_verifier_escalation", o.HonorVerifierEscalation)
	v.SetDefault("orchestrator.port_timeout", o.PortTimeout)
	v.SetDefault("orchestrator.retry_backoff", o.RetryBackoff)
	v.SetDefault("orchestrator.max_retries", o.MaxRetries)
	v.SetDefault("orchestrator.confidence_threshold", o.ConfidenceThreshold)

	v.SetDefault("agents.mode", d.Agents.Mode)
	v.SetDefault("agents.base_url", d.Agents.BaseURL)
	v.SetDefault("agents.api_key", d.Agents.APIKey)
	v.SetDefault("agents.model", d.Agents.Model)
	v.SetDefault("agents.timeout", d.Agents.Timeout)
	v.SetDefault("agents.process_config", d.Agents.ProcessConfig)

	v.SetDefault("formulary.dir", d.Formulary.Dir)
	v.SetDefault("formulary.default_locale", d.Formulary.DefaultLocale)

	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.file_dir", d.Store.FileDir)
	v.SetDefault("store.redis_addr", d.Store.RedisAddr)
	v.SetDefault("store.redis_password", d.Store.RedisPassword)
	v.SetDefault("store.redis_db", d.Store.RedisDB)
	v.SetDefault("store.redis_prefix", d.Store.RedisPrefix)
	v.SetDefault("store.redis_ttl", d.Store.RedisTTL)
	v.SetDefault("store.postgres_dsn", d.Store.PostgresDSN)
	v.SetDefault("store.postgres_table", d.Store.PostgresTable)
	v.SetDefault("store.encryption_key", d.Store.EncryptionKey)
	v.SetDefault("store.distributed_lock", d.Store.DistributedLock)

	v.SetDefault("http.addr", d.HTTP.Addr)
	v.SetDefault("http.shutdown_timeout", d.HTTP.ShutdownTimeout)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
}

// Validate checks that the configuration is consistent.
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverFile:
		if c.Store.FileDir == "" {
			return fmt.Errorf("store.file_dir is required for the file driver")
		}
	case DriverRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store.redis_addr is required for the redis driver")
		}
	case DriverPostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("store.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("store.driver must be %q, %q, %q or %q, got %q", DriverMemory, DriverFile, DriverRedis, DriverPostgres, c.Store.Driver)
	}
	if c.Store.DistributedLock && c.Store.Driver != DriverRedis {
		return fmt.Errorf("store.distributed_lock requires the redis driver")
	}
	if c.Store.EncryptionKey != "" {
		if _, err := middleware.ParseKey(c.Store.EncryptionKey); err != nil {
			return fmt.Errorf("store.encryption_key: %w", err)
		}
	}

	switch c.Agents.Mode {
	case AgentsNone, AgentsLocal:
	case AgentsGateway:
		if c.Agents.BaseURL == "" {
			return fmt.Errorf("agents.base_url is required in gateway mode")
		}
	case AgentsProcess:
		if c.Agents.ProcessConfig == "" {
			return fmt.Errorf("agents.process_config is required in process mode")
		}
	default:
		return fmt.Errorf("agents.mode must be one of none, local, gateway, process, got %q", c.Agents.Mode)
	}

	if t := c.Orchestrator.ConfidenceThreshold; t < 0 || t > 1 {
		return fmt.Errorf("orchestrator.confidence_threshold must be within [0, 1], got %v", t)
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}
