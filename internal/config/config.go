package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/fixtape/fixtape/internal/core"
)

type Config struct {
	Cassette CassetteConfig `mapstructure:"cassette"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type CassetteConfig struct {
	// Dir is where localfs cassettes live.
	Dir string `mapstructure:"dir"`
	// Mode forces "write" or "read"; empty infers from file existence.
	Mode string `mapstructure:"mode"`
}

type BackendConfig struct {
	Type string   `mapstructure:"type"` // "localfs" or "s3"
	S3   S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type LogConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load reads configuration from file
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Cassette: CassetteConfig{
			Dir: "test_data",
		},
		Backend: BackendConfig{
			Type: "localfs",
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Backend.Type {
	case "localfs", "s3":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("backend type must be localfs or s3, got %q", c.Backend.Type))
	}

	if c.Backend.Type == "s3" && c.Backend.S3.Bucket == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("s3 bucket required when backend is s3"))
	}

	switch c.Cassette.Mode {
	case "", "write", "read":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("cassette mode must be write or read, got %q", c.Cassette.Mode))
	}

	if c.Cassette.Dir == "" && c.Backend.Type == "localfs" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("cassette dir required for localfs backend"))
	}

	return nil
}
