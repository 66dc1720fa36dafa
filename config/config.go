package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds the service configuration.
type Config struct {
	ListenAddress   string `toml:"ListenAddress"`
	RedisURL        string `toml:"RedisURL"`
	IssuerBaseURL   string `toml:"IssuerBaseURL"`
	EthEndpoint     string `toml:"EthEndpoint"`
	ChainID         uint64 `toml:"ChainID"`
	TokenAddress    string `toml:"TokenAddress"`
	ContractAddress string `toml:"ContractAddress"`
	TokenDecimals   int32  `toml:"TokenDecimals"`
	WalletKeyEnv    string `toml:"WalletKeyEnv"`
	LogLevel        string `toml:"LogLevel"`
}

// Default returns the development configuration.
func Default() *Config {
	return &Config{
		ListenAddress: ":9000",
		RedisURL:      "redis://localhost:6379/0",
		ChainID:       1,
		TokenDecimals: 18,
		WalletKeyEnv:  "SALVO_WALLET_KEY",
		LogLevel:      "info",
	}
}

// Load reads the configuration from the given path, falling back to
// defaults for unset fields. The redis URL may be overridden by REDIS_URL.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		cfg.RedisURL = url
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.IssuerBaseURL == "" {
		return fmt.Errorf("IssuerBaseURL is required")
	}
	if c.EthEndpoint == "" {
		return fmt.Errorf("EthEndpoint is required")
	}
	if c.TokenAddress == "" || c.ContractAddress == "" {
		return fmt.Errorf("TokenAddress and ContractAddress are required")
	}
	return nil
}
