/*
config.go - YAML configuration for the server

PURPOSE:
  Optional file-based configuration. Flags take precedence over the
  file; the file takes precedence over built-in defaults.

FORMAT:
  port: 8080
  db: batches.db
  stub_funding: 1000000
  treasury:
    account: GTREASURY
    balance: 100000000
*/
package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the file-backed server configuration.
type Config struct {
	Port int    `yaml:"port"`
	DB   string `yaml:"db"`

	// StubFunding is the per-account balance the stub asset client
	// reports for conversions.
	StubFunding int64 `yaml:"stub_funding"`

	// Treasury pre-funds the transfer token client so the admin can
	// disburse immediately after startup.
	Treasury struct {
		Account string `yaml:"account"`
		Balance int64  `yaml:"balance"`
	} `yaml:"treasury"`
}

func defaultConfig() Config {
	cfg := Config{
		Port:        8080,
		DB:          "batches.db",
		StubFunding: 1_000_000,
	}
	return cfg
}

// loadConfig reads the YAML file at path over the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
