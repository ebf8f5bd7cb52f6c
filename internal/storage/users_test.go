package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestDirectory(t *testing.T) *UserDirectory {
	t.Helper()
	dir, err := os.MkdirTemp("", "jiochain-users-")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	store, err := Open(filepath.Join(dir, "users.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ud, err := NewUserDirectory(store)
	if err != nil {
		t.Fatalf("NewUserDirectory: %v", err)
	}
	return ud
}

func TestRegisterAndLookup(t *testing.T) {
	ud := newTestDirectory(t)

	if err := ud.Register(User{
		Email:     "alice@example.com",
		Name:      "Alice",
		NodeURL:   "http://127.0.0.1:5000",
		PublicKey: "-----BEGIN PUBLIC KEY-----\n...\n-----END PUBLIC KEY-----",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	exists, err := ud.Exists("alice@example.com")
	if err != nil || !exists {
		t.Fatalf("Exists = %v, %v, want true, nil", exists, err)
	}

	key, err := ud.PublicKeyOf("alice@example.com")
	if err != nil {
		t.Fatalf("PublicKeyOf: %v", err)
	}
	if key == "" {
		t.Error("expected non-empty public key")
	}

	if _, err := ud.PublicKeyOf("nobody@example.com"); err != ErrUserNotFound {
		t.Errorf("PublicKeyOf(unknown) error = %v, want ErrUserNotFound", err)
	}
}

func TestPeerURLsExcluding(t *testing.T) {
	ud := newTestDirectory(t)
	ud.Register(User{Email: "alice@example.com", NodeURL: "http://127.0.0.1:5000"})
	ud.Register(User{Email: "bob@example.com", NodeURL: "http://127.0.0.1:5001"})
	ud.Register(User{Email: "carol@example.com", NodeURL: "http://127.0.0.1:5001"})

	urls, err := ud.PeerURLsExcluding("alice@example.com")
	if err != nil {
		t.Fatalf("PeerURLsExcluding: %v", err)
	}
	if len(urls) != 1 || urls[0] != "http://127.0.0.1:5001" {
		t.Errorf("urls = %v, want [http://127.0.0.1:5001]", urls)
	}
}

func TestMarkHasWallet(t *testing.T) {
	ud := newTestDirectory(t)
	ud.Register(User{Email: "alice@example.com"})

	if err := ud.MarkHasWallet("alice@example.com", "PEMDATA"); err != nil {
		t.Fatalf("MarkHasWallet: %v", err)
	}
	key, err := ud.PublicKeyOf("alice@example.com")
	if err != nil {
		t.Fatalf("PublicKeyOf: %v", err)
	}
	if key != "PEMDATA" {
		t.Errorf("public key = %q, want PEMDATA", key)
	}
}
