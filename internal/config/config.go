// Package config loads server configuration from a YAML file with
// MAGE_DUEL_* environment overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// MAGE_DUEL_STORAGE_DRIVER.
const EnvPrefix = "MAGE_DUEL"

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Oracle    OracleConfig    `mapstructure:"oracle"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Game      GameConfig      `mapstructure:"game"`
}

// ServerConfig configures the listeners.
type ServerConfig struct {
	HTTP            HTTPConfig    `mapstructure:"http"`
	GRPC            GRPCConfig    `mapstructure:"grpc"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// HTTPConfig configures the HTTP and websocket listener.
type HTTPConfig struct {
	Address           string        `mapstructure:"address"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
}

// GRPCConfig configures the health-check listener.
type GRPCConfig struct {
	Address              string `mapstructure:"address"`
	MaxConcurrentStreams int    `mapstructure:"max_concurrent_streams"`
}

// DatabaseConfig configures the Postgres pool shared by the postgres
// session store and card oracle.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// StorageConfig selects the session store.
type StorageConfig struct {
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// OracleConfig selects where card data comes from.
type OracleConfig struct {
	Driver    string `mapstructure:"driver"`
	CardsFile string `mapstructure:"cards_file"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	Insecure    bool   `mapstructure:"insecure"`
	ServiceName string `mapstructure:"service_name"`
}

// GameConfig holds rule constants.
type GameConfig struct {
	StartingLife int `mapstructure:"starting_life"`
	HandLimit    int `mapstructure:"hand_limit"`
	OpeningHand  int `mapstructure:"opening_hand"`
	AIStepCap    int `mapstructure:"ai_step_cap"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http.address", ":8080")
	v.SetDefault("server.http.read_header_timeout", 5*time.Second)
	v.SetDefault("server.http.allowed_origins", []string{})
	v.SetDefault("server.grpc.address", ":9090")
	v.SetDefault("server.grpc.max_concurrent_streams", 100)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)

	v.SetDefault("storage.driver", DriverMemory)
	v.SetDefault("storage.sqlite_path", "data/sessions.db")

	v.SetDefault("oracle.driver", DriverMemory)
	v.SetDefault("oracle.cards_file", "config/cards.json")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "localhost:4318")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.service_name", "mage-duel-server")

	v.SetDefault("game.starting_life", 20)
	v.SetDefault("game.hand_limit", 7)
	v.SetDefault("game.opening_hand", 7)
	v.SetDefault("game.ai_step_cap", 64)
}

// Load reads the file at path (skipped when path is empty), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		if strings.TrimSpace(c.Storage.SQLitePath) == "" {
			return fmt.Errorf("storage.sqlite_path is required for the sqlite driver")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.Database.URL) == "" {
			return fmt.Errorf("database.url is required for the postgres storage driver")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}

	switch c.Oracle.Driver {
	case DriverMemory:
		if strings.TrimSpace(c.Oracle.CardsFile) == "" {
			return fmt.Errorf("oracle.cards_file is required for the memory oracle")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.Database.URL) == "" {
			return fmt.Errorf("database.url is required for the postgres oracle")
		}
	default:
		return fmt.Errorf("unknown oracle.driver %q", c.Oracle.Driver)
	}

	if c.Server.HTTP.Address == "" {
		return fmt.Errorf("server.http.address is required")
	}
	if c.Game.StartingLife <= 0 || c.Game.HandLimit <= 0 {
		return fmt.Errorf("game.starting_life and game.hand_limit must be positive")
	}
	if c.Game.OpeningHand < 0 {
		return fmt.Errorf("game.opening_hand must not be negative")
	}
	if c.Game.AIStepCap <= 0 {
		return fmt.Errorf("game.ai_step_cap must be positive")
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry.endpoint is required when telemetry is enabled")
	}
	return nil
}

// UsesPostgres reports whether any component needs the database pool.
func (c *Config) UsesPostgres() bool {
	return c.Storage.Driver == DriverPostgres || c.Oracle.Driver == DriverPostgres
}
