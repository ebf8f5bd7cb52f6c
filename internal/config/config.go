// Package config provides centralized configuration for a ledger node.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for a single ledger node.
type Config struct {
	// Identity holds the node's own identifiers.
	Identity IdentityConfig `yaml:"identity"`

	// Network holds this node's listen address and the static peer list.
	Network NetworkConfig `yaml:"network"`

	// Storage holds the on-disk data directory.
	Storage StorageConfig `yaml:"storage"`

	// Logging controls the structured logger.
	Logging LoggingConfig `yaml:"logging"`

	// Difficulty is the number of leading zero hex digits a mined block's
	// hash must carry.
	Difficulty int `yaml:"difficulty"`

	// MiningReward is credited to the miner's balance by a synthetic
	// "Jiocoin"-origin transaction each time a block is mined.
	MiningReward float64 `yaml:"mining_reward"`
}

// IdentityConfig identifies this node among its peers.
type IdentityConfig struct {
	// NodeID is a stable identifier used to namespace this node's on-disk
	// files (its chain database, its private key). Unlike the listen port,
	// it survives being rebound to a different address across restarts.
	NodeID string `yaml:"node_id"`

	// Email is the host identity this node signs and broadcasts under.
	Email string `yaml:"email"`
}

// NetworkConfig holds this node's HTTP address and its peers.
type NetworkConfig struct {
	// ListenAddr is the address this node's NodeAPI binds to.
	ListenAddr string `yaml:"listen_addr"`

	// Peers is the static list of peer node URLs to replicate with.
	Peers []string `yaml:"peers"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	// DataDir is the directory for all data files.
	DataDir string `yaml:"data_dir"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error).
	Level string `yaml:"level"`
}

// DefaultDifficulty and DefaultMiningReward mirror the constants the
// original single-process ledger hardcoded as module-level globals.
const (
	DefaultDifficulty   = 4
	DefaultMiningReward = 10.0
	ConfigFileName      = "config.yaml"
)

// DefaultConfig returns a Config with sensible defaults. A fresh NodeID is
// generated each time so two default configs never collide on disk.
func DefaultConfig() *Config {
	return &Config{
		Identity: IdentityConfig{
			NodeID: uuid.New().String(),
		},
		Network: NetworkConfig{
			ListenAddr: "127.0.0.1:5000",
			Peers:      []string{},
		},
		Storage: StorageConfig{
			DataDir: "~/.jiochain",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Difficulty:   DefaultDifficulty,
		MiningReward: DefaultMiningReward,
	}
}

// LoadConfig loads configuration from a YAML file under dataDir. If the
// file doesn't exist, it creates one with default values.
func LoadConfig(dataDir string) (*Config, error) {
	expandedDir := expandPath(dataDir)
	configPath := filepath.Join(expandedDir, ConfigFileName)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.Storage.DataDir = dataDir
		if err := cfg.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# ledger node configuration\n# generated automatically on first run\n\n")
	data = append(header, data...)

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ConfigPath returns the full path to the config file for the given data
// directory.
func ConfigPath(dataDir string) string {
	return filepath.Join(expandPath(dataDir), ConfigFileName)
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}
