// Package wallet manages a node's RSA key pair and transaction signing.
package wallet

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jiocoin/jiochain/pkg/logging"
)

// ErrKeysNotFound is returned by LoadKeys when no private key file exists
// yet for a node.
var ErrKeysNotFound = errors.New("wallet: keys not found")

const keyBits = 2048

// KeyStore holds one node's RSA key pair in memory and persists the
// private key to disk, mirroring wallet.py's file-based "private.pem"
// persistence.
type KeyStore struct {
	mu         sync.RWMutex
	privateKey *rsa.PrivateKey
	log        *logging.Logger
}

// NewKeyStore returns an empty KeyStore. Call CreateKeys or LoadKeys
// before signing anything.
func NewKeyStore() *KeyStore {
	return &KeyStore{log: logging.GetDefault().Component("wallet")}
}

// CreateKeys generates a fresh RSA-2048 key pair and holds it in memory.
func (k *KeyStore) CreateKeys() error {
	priv, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}
	k.mu.Lock()
	k.privateKey = priv
	k.mu.Unlock()
	return nil
}

// PublicKeyPEM returns the PEM encoding of the current public key.
func (k *KeyStore) PublicKeyPEM() (string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.privateKey == nil {
		return "", ErrKeysNotFound
	}
	return encodePublicKeyPEM(&k.privateKey.PublicKey)
}

// HasKeys reports whether a key pair is currently loaded.
func (k *KeyStore) HasKeys() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.privateKey != nil
}

// keyPath returns the private key file path for a node, namespaced by
// node ID so that multiple nodes can share one data directory (spec's
// fix for the original's fragile "port as database name" scheme).
func keyPath(dataDir, nodeID string) string {
	return filepath.Join(dataDir, nodeID, "private.pem")
}

// SaveKeys writes the current private key to disk, creating the node's
// data directory if necessary. The write is atomic: it writes to a temp
// file in the same directory and renames it into place, so a crash never
// leaves a truncated key file behind.
func (k *KeyStore) SaveKeys(dataDir, nodeID string) error {
	k.mu.RLock()
	priv := k.privateKey
	k.mu.RUnlock()
	if priv == nil {
		return ErrKeysNotFound
	}

	path := keyPath(dataDir, nodeID)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create key directory: %w", err)
	}

	der := x509.MarshalPKCS1PrivateKey(priv)
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: der}

	tmp, err := os.CreateTemp(dir, "private.pem.tmp-*")
	if err != nil {
		return fmt.Errorf("create temp key file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := pem.Encode(tmp, block); err != nil {
		tmp.Close()
		return fmt.Errorf("encode private key: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod key file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp key file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename key file into place: %w", err)
	}

	k.log.Info("saved wallet keys", "node_id", nodeID)
	return nil
}

// LoadKeys reads a previously saved private key from disk. Returns
// ErrKeysNotFound if no key file exists yet for this node.
func (k *KeyStore) LoadKeys(dataDir, nodeID string) error {
	path := keyPath(dataDir, nodeID)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrKeysNotFound
		}
		return fmt.Errorf("read key file: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return fmt.Errorf("invalid PEM in key file %s", path)
	}

	priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return fmt.Errorf("parse private key: %w", err)
	}

	k.mu.Lock()
	k.privateKey = priv
	k.mu.Unlock()
	return nil
}

func encodePublicKeyPEM(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("marshal public key: %w", err)
	}
	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}
