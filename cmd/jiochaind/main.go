// Package main provides jiochaind, a single ledger node: it holds one
// node identity, one SQLite-backed chain, and replicates with a static
// list of peers over HTTP.
package main

import (
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jiocoin/jiochain/internal/config"
	"github.com/jiocoin/jiochain/internal/ledger"
	"github.com/jiocoin/jiochain/internal/replicator"
	"github.com/jiocoin/jiochain/internal/rpc"
	"github.com/jiocoin/jiochain/internal/storage"
	"github.com/jiocoin/jiochain/internal/wallet"
	"github.com/jiocoin/jiochain/pkg/logging"
)

var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

func main() {
	var (
		dataDir     = flag.String("data-dir", "~/.jiochain", "Data directory")
		configFile  = flag.String("config", "", "Config file path; only its directory is used and config.yaml is read from there (default: <data-dir>/config.yaml)")
		listenAddr  = flag.String("listen", "", "HTTP listen address, overrides config")
		email       = flag.String("email", "", "This node's host identity, overrides config")
		peersFlag   = flag.String("peers", "", "Peer node URLs (comma-separated), overrides config")
		logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error), overrides config")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	log := logging.New(&logging.Config{Level: "info", TimeFormat: time.TimeOnly})
	logging.SetDefault(log)

	if *showVersion {
		log.Infof("jiochaind %s (commit: %s)", version, commit)
		os.Exit(0)
	}

	configDir := *dataDir
	if *configFile != "" {
		configDir = filepath.Dir(*configFile)
	}
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		log.Fatal("failed to load config", "error", err)
	}

	if *listenAddr != "" {
		cfg.Network.ListenAddr = *listenAddr
	}
	if *email != "" {
		cfg.Identity.Email = *email
	}
	if *peersFlag != "" {
		cfg.Network.Peers = parsePeers(*peersFlag)
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	cfg.Storage.DataDir = *dataDir

	log = logging.New(&logging.Config{Level: cfg.Logging.Level, TimeFormat: time.TimeOnly})
	logging.SetDefault(log)
	log.Info("config loaded", "path", config.ConfigPath(configDir))

	if cfg.Identity.Email == "" {
		log.Fatal("node has no host identity; set identity.email in config or pass -email")
	}

	dataPath := expandPath(cfg.Storage.DataDir)

	usersStore, err := storage.Open(filepath.Join(dataPath, "users.db"))
	if err != nil {
		log.Fatal("failed to open users database", "error", err)
	}
	defer usersStore.Close()

	users, err := storage.NewUserDirectory(usersStore)
	if err != nil {
		log.Fatal("failed to initialize user directory", "error", err)
	}

	keys := wallet.NewKeyStore()
	if err := keys.LoadKeys(dataPath, cfg.Identity.NodeID); err != nil {
		if err != wallet.ErrKeysNotFound {
			log.Fatal("failed to load wallet keys", "error", err)
		}
		log.Info("no wallet keys found, generating a new key pair")
		if err := keys.CreateKeys(); err != nil {
			log.Fatal("failed to generate wallet keys", "error", err)
		}
		if err := keys.SaveKeys(dataPath, cfg.Identity.NodeID); err != nil {
			log.Fatal("failed to save wallet keys", "error", err)
		}
	}

	pubPEM, err := keys.PublicKeyPEM()
	if err != nil {
		log.Fatal("failed to read public key", "error", err)
	}

	exists, err := users.Exists(cfg.Identity.Email)
	if err != nil {
		log.Fatal("failed to check user registration", "error", err)
	}
	if !exists {
		if err := users.Register(storage.User{
			Email:     cfg.Identity.Email,
			PublicKey: pubPEM,
			NodeURL:   "http://" + cfg.Network.ListenAddr,
			HasWallet: true,
		}); err != nil {
			log.Fatal("failed to register node identity", "error", err)
		}
		log.Info("registered node identity", "email", cfg.Identity.Email)
	} else {
		if err := users.MarkHasWallet(cfg.Identity.Email, pubPEM); err != nil {
			log.Fatal("failed to update wallet registration", "error", err)
		}
	}

	chainStore, err := storage.Open(filepath.Join(dataPath, cfg.Identity.NodeID, "chain.db"))
	if err != nil {
		log.Fatal("failed to open chain database", "error", err)
	}
	defer chainStore.Close()

	ldg, err := ledger.New(chainStore, users, cfg.Identity.Email, cfg.Difficulty, cfg.MiningReward)
	if err != nil {
		log.Fatal("failed to initialize ledger", "error", err)
	}
	log.Info("ledger initialized", "chain_length", len(ldg.Chain()), "balance", ldg.BalanceOf())

	repl := replicator.New()

	peers := cfg.Network.Peers
	peersFunc := func() []string {
		if len(peers) > 0 {
			return peers
		}
		discovered, err := users.PeerURLsExcluding(cfg.Identity.Email)
		if err != nil {
			log.Warn("failed to discover peers from user directory", "error", err)
			return nil
		}
		return discovered
	}

	server := rpc.NewServer(cfg.Identity.Email, ldg, repl, peersFunc)
	if err := server.Start(cfg.Network.ListenAddr); err != nil {
		log.Fatal("failed to start node API", "error", err)
	}

	printBanner(log, cfg)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down...")
	if err := server.Stop(); err != nil {
		log.Error("error stopping node API", "error", err)
	}
	log.Info("goodbye")
}

func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}

func parsePeers(s string) []string {
	if s == "" {
		return nil
	}
	var peers []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			peers = append(peers, p)
		}
	}
	return peers
}

func printBanner(log *logging.Logger, cfg *config.Config) {
	log.Info("")
	log.Info("=================================================")
	log.Infof("  Jiochain node")
	log.Infof("  Version: %s", version)
	log.Info("=================================================")
	log.Info("")
	log.Infof("  Node ID: %s", cfg.Identity.NodeID)
	log.Infof("  Host:    %s", cfg.Identity.Email)
	log.Info("")
	log.Infof("  API: http://%s", cfg.Network.ListenAddr)
	log.Info("")
	log.Infof("  Difficulty: %d | Mining reward: %v", cfg.Difficulty, cfg.MiningReward)
	log.Infof("  Peers: %v", cfg.Network.Peers)
	log.Infof("  Data dir: %s", expandPath(cfg.Storage.DataDir))
	log.Info("")
	log.Info("=================================================")
	log.Info("")
}
