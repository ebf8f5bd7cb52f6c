package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigCreatesDefault(t *testing.T) {
	dir, err := os.MkdirTemp("", "jiochain-config-")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	defer os.RemoveAll(dir)

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Identity.NodeID == "" {
		t.Fatal("expected a generated node id")
	}
	if cfg.Difficulty != DefaultDifficulty {
		t.Errorf("difficulty = %d, want %d", cfg.Difficulty, DefaultDifficulty)
	}
	if cfg.MiningReward != DefaultMiningReward {
		t.Errorf("mining reward = %v, want %v", cfg.MiningReward, DefaultMiningReward)
	}

	if _, err := os.Stat(filepath.Join(dir, ConfigFileName)); err != nil {
		t.Fatalf("expected config file to be written: %v", err)
	}
}

func TestLoadConfigReloadsExisting(t *testing.T) {
	dir, err := os.MkdirTemp("", "jiochain-config-")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	defer os.RemoveAll(dir)

	first, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	first.Network.Peers = []string{"http://127.0.0.1:5001"}
	if err := first.Save(ConfigPath(dir)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	second, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig (second): %v", err)
	}
	if second.Identity.NodeID != first.Identity.NodeID {
		t.Errorf("node id changed across reload: %s != %s", second.Identity.NodeID, first.Identity.NodeID)
	}
	if len(second.Network.Peers) != 1 || second.Network.Peers[0] != "http://127.0.0.1:5001" {
		t.Errorf("peers not persisted: %v", second.Network.Peers)
	}
}
