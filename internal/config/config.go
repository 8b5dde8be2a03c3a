package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the service configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Model     ModelConfig     `mapstructure:"model"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Recorder  RecorderConfig  `mapstructure:"recorder"`
	Overpass  OverpassConfig  `mapstructure:"overpass"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type ArtifactsConfig struct {
	// Dir holds feature_info.yaml, scaler.yaml, encoder.yaml and mappings.yaml.
	Dir string `mapstructure:"dir"`
}

type ModelConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
	// RequireMetadata makes an unreachable /metadata endpoint fatal at start-up.
	RequireMetadata bool `mapstructure:"require_metadata"`
}

type PostgresConfig struct {
	URL string `mapstructure:"url"`
}

type RecorderConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type OverpassConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
	RadiusM float64       `mapstructure:"radius_m"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("artifacts.dir", "artifacts")

	v.SetDefault("model.url", "http://localhost:3000")
	v.SetDefault("model.timeout", "10s")
	v.SetDefault("model.require_metadata", false)

	v.SetDefault("postgres.url", "")
	v.SetDefault("recorder.enabled", false)

	v.SetDefault("overpass.url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("overpass.timeout", "5s")
	v.SetDefault("overpass.radius_m", 1500)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Flags returns the command line flags Load understands.
func Flags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("energy_service", pflag.ContinueOnError)
	flags.StringP("config", "c", "", "config file (yaml)")
	flags.String("addr", "", "listen address, overrides server.addr")
	flags.String("artifacts", "", "artifacts directory, overrides artifacts.dir")
	return flags
}

// Load layers defaults, an optional config file, .env and the environment
// (ENERGY_ prefix) and the parsed flags, in increasing order of precedence.
func Load(flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix("ENERGY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Variable names used by the BentoML deployment.
	_ = v.BindEnv("model.url", "ENERGY_MODEL_URL", "ML_SERVICE_URL")
	_ = v.BindEnv("postgres.url", "ENERGY_POSTGRES_URL", "POSTGRES_URL")
	_ = v.BindEnv("overpass.url", "ENERGY_OVERPASS_URL", "OVERPASS_URL")
	_ = v.BindEnv("recorder.enabled", "ENERGY_RECORDER_ENABLED", "SAVE_PREDICTIONS")

	if flags != nil {
		if f := flags.Lookup("addr"); f != nil && f.Changed {
			v.Set("server.addr", f.Value.String())
		}
		if f := flags.Lookup("artifacts"); f != nil && f.Changed {
			v.Set("artifacts.dir", f.Value.String())
		}
		if f := flags.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
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

// Validate checks for unusable values.
func (c *Config) Validate() error {
	if c.Artifacts.Dir == "" {
		return fmt.Errorf("artifacts.dir must be set")
	}
	if c.Model.URL == "" {
		return fmt.Errorf("model.url must be set")
	}
	if c.Model.Timeout <= 0 {
		return fmt.Errorf("model.timeout must be positive, got %s", c.Model.Timeout)
	}
	if c.Recorder.Enabled && c.Postgres.URL == "" {
		return fmt.Errorf("recorder.enabled requires postgres.url")
	}
	if c.Overpass.URL != "" && (c.Overpass.Timeout <= 0 || c.Overpass.RadiusM <= 0) {
		return fmt.Errorf("overpass.timeout and overpass.radius_m must be positive")
	}
	return nil
}
