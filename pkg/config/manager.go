package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	engerrors "github.com/ducminhle1904/gridscope/internal/errors"
)

// Environment variables holding exchange credentials
const (
	EnvBinanceKey    = "BINANCE_API_KEY"
	EnvBinanceSecret = "BINANCE_API_SECRET"
	EnvBybitKey      = "BYBIT_API_KEY"
	EnvBybitSecret   = "BYBIT_API_SECRET"
)

// LoadEnvFile loads variables from an env file. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("could not load environment file %s: %w", path, err)
	}
	return nil
}

// Load reads configFile over DefaultConfig, applies credentials from the
// environment and validates the result. An empty path yields the defaults.
func Load(configFile string) (*Config, error) {
	cfg := DefaultConfig()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, engerrors.WrapError(err, engerrors.ErrorCategoryConfiguration, "config", "Load")
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, engerrors.WrapError(fmt.Errorf("configuration validation failed: %w", err),
			engerrors.ErrorCategoryConfiguration, "config", "Load")
	}
	return cfg, nil
}

// loadFromFile decodes JSON or YAML depending on the file extension
func loadFromFile(configFile string, cfg *Config) error {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("could not read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(configFile)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("could not parse yaml config %s: %w", configFile, err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("could not parse json config %s: %w", configFile, err)
		}
	}
	return nil
}

// applyEnv fills credentials from the environment and expands ${VAR} references
func (c *Config) applyEnv() {
	fill := func(creds *Credentials, keyVar, secretVar string) {
		creds.APIKey = os.ExpandEnv(creds.APIKey)
		creds.APISecret = os.ExpandEnv(creds.APISecret)
		if creds.APIKey == "" {
			creds.APIKey = os.Getenv(keyVar)
		}
		if creds.APISecret == "" {
			creds.APISecret = os.Getenv(secretVar)
		}
	}
	fill(&c.Exchange.Binance, EnvBinanceKey, EnvBinanceSecret)
	fill(&c.Exchange.Bybit, EnvBybitKey, EnvBybitSecret)
}

// Save writes the configuration as JSON or YAML by extension. Secrets are not written.
func Save(cfg *Config, path string) error {
	out := *cfg
	out.Exchange.Binance.APIKey, out.Exchange.Binance.APISecret = "${"+EnvBinanceKey+"}", "${"+EnvBinanceSecret+"}"
	out.Exchange.Bybit.APIKey, out.Exchange.Bybit.APISecret = "${"+EnvBybitKey+"}", "${"+EnvBybitSecret+"}"

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(&out)
	default:
		data, err = json.MarshalIndent(&out, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0644)
}
