package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	RPCAddress           string `toml:"RPCAddress"`
	DataDir              string `toml:"DataDir"`
	NetworkName          string `toml:"NetworkName"`
	RewardTokenSymbol    string `toml:"RewardTokenSymbol"`
	RewardConversionRate string `toml:"RewardConversionRate"`
}

// Load loads the configuration from the given path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s contains unknown key %q", path, undecoded[0].String())
	}

	applyDefaults(cfg)
	if _, err := cfg.ConversionRate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	return cfg, nil
}

// ConversionRate parses the reward conversion rate into an integer multiplier.
func (c *Config) ConversionRate() (*big.Int, error) {
	trimmed := strings.TrimSpace(c.RewardConversionRate)
	if trimmed == "" {
		return big.NewInt(1), nil
	}
	rate, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || rate.Sign() <= 0 {
		return nil, fmt.Errorf("invalid RewardConversionRate %q", c.RewardConversionRate)
	}
	return rate, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8080"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./stakevault-data"
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "svt-local"
	}
	if strings.TrimSpace(cfg.RewardTokenSymbol) == "" {
		cfg.RewardTokenSymbol = "SRWD"
	}
	if strings.TrimSpace(cfg.RewardConversionRate) == "" {
		cfg.RewardConversionRate = "1"
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)

	if err := persist(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
