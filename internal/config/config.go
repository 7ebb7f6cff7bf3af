// Package config loads server configuration from a YAML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

// EnvPrefix is prepended to every environment override, e.g.
// FLEET_SERVER_GRPC_ADDRESS.
const EnvPrefix = "FLEET"

// Storage drivers.
const (
	DriverNone     = "none"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is the root configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Game    GameConfig    `mapstructure:"game"`
	Storage StorageConfig `mapstructure:"storage"`
}

// ServerConfig groups the listeners.
type ServerConfig struct {
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
}

// WebSocketConfig configures the client-facing WebSocket endpoint.
type WebSocketConfig struct {
	Address         string   `mapstructure:"address"`
	ReadBufferSize  int      `mapstructure:"read_buffer_size"`
	WriteBufferSize int      `mapstructure:"write_buffer_size"`
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
}

// GRPCConfig configures the health and admin endpoint.
type GRPCConfig struct {
	Address              string `mapstructure:"address"`
	MaxConcurrentStreams int    `mapstructure:"max_concurrent_streams"`
}

// LoggingConfig selects the zap level and encoder.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GameConfig holds engine and room settings.
type GameConfig struct {
	// CardDataPath is a YAML card file; empty uses the embedded set.
	CardDataPath    string `mapstructure:"card_data_path"`
	AIMaxIterations int    `mapstructure:"ai_max_iterations"`
	LogWindow       int    `mapstructure:"log_window"`
	// ReplayDir receives finished game replays; empty disables saving.
	ReplayDir string `mapstructure:"replay_dir"`
}

// StorageConfig selects where finished matches are recorded.
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.websocket.address", ":8080")
	v.SetDefault("server.websocket.read_buffer_size", 1024)
	v.SetDefault("server.websocket.write_buffer_size", 1024)
	v.SetDefault("server.websocket.allowed_origins", []string{})
	v.SetDefault("server.grpc.address", ":9090")
	v.SetDefault("server.grpc.max_concurrent_streams", 100)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("game.card_data_path", "")
	v.SetDefault("game.ai_max_iterations", 100)
	v.SetDefault("game.log_window", 50)
	v.SetDefault("game.replay_dir", "")
	v.SetDefault("storage.driver", DriverNone)
	v.SetDefault("storage.dsn", "")
}

// Load reads the configuration at path. An empty path uses defaults and
// environment variables only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var err error
	if c.Server.WebSocket.Address == "" {
		err = multierr.Append(err, errors.New("server.websocket.address is required"))
	}
	if c.Server.GRPC.Address == "" {
		err = multierr.Append(err, errors.New("server.grpc.address is required"))
	}
	if c.Server.GRPC.MaxConcurrentStreams <= 0 {
		err = multierr.Append(err, fmt.Errorf("server.grpc.max_concurrent_streams must be positive, got %d", c.Server.GRPC.MaxConcurrentStreams))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		err = multierr.Append(err, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	if c.Game.AIMaxIterations <= 0 {
		err = multierr.Append(err, fmt.Errorf("game.ai_max_iterations must be positive, got %d", c.Game.AIMaxIterations))
	}
	if c.Game.LogWindow <= 0 {
		err = multierr.Append(err, fmt.Errorf("game.log_window must be positive, got %d", c.Game.LogWindow))
	}
	switch c.Storage.Driver {
	case DriverNone:
	case DriverPostgres, DriverSQLite:
		if c.Storage.DSN == "" {
			err = multierr.Append(err, fmt.Errorf("storage.dsn is required for driver %q", c.Storage.Driver))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
