package storage

import (
	"errors"
	"fmt"
)

// ErrUserNotFound is returned when a lookup by email finds no such user.
var ErrUserNotFound = errors.New("user not found")

// UsersTable is the shared users table every node on a host reads from.
// Per-node chain state lives in its own SQLiteStore, but the user
// directory is the one table all local nodes are expected to share.
const UsersTable = "users"

var userColumns = []Column{
	{Name: "email", Type: "TEXT", PrimaryKey: true},
	{Name: "name", Type: "TEXT"},
	{Name: "password_hash", Type: "TEXT"},
	{Name: "public_key", Type: "TEXT"},
	{Name: "node_url", Type: "TEXT"},
	{Name: "has_wallet", Type: "INTEGER"},
}

// User is a row of the shared users table. PasswordHash is carried
// through verbatim: hashing a login password is the registration UI's
// job, not this repo's.
type User struct {
	Email        string
	Name         string
	PasswordHash string
	PublicKey    string
	NodeURL      string
	HasWallet    bool
}

// UserDirectory is a thin wrapper over the shared users table used by
// the Signer (to look up a sender's public key) and the Ledger/Replicator
// (to discover peer node URLs).
type UserDirectory struct {
	store Store
}

// NewUserDirectory ensures the users table exists and returns a directory
// over it.
func NewUserDirectory(store Store) (*UserDirectory, error) {
	if err := store.EnsureTable(UsersTable, userColumns); err != nil {
		return nil, fmt.Errorf("ensure users table: %w", err)
	}
	return &UserDirectory{store: store}, nil
}

// Register inserts a new user row. The external registration UI (out of
// scope for this repo) is expected to have already hashed the password.
func (d *UserDirectory) Register(u User) error {
	return d.store.Insert(UsersTable, Row{
		"email":         u.Email,
		"name":          u.Name,
		"password_hash": u.PasswordHash,
		"public_key":    u.PublicKey,
		"node_url":      u.NodeURL,
		"has_wallet":    boolToInt(u.HasWallet),
	})
}

// Exists reports whether a user with the given email has registered.
func (d *UserDirectory) Exists(email string) (bool, error) {
	_, ok, err := d.store.GetOne(UsersTable, "email", email)
	return ok, err
}

// PublicKeyOf returns the PEM-encoded RSA public key registered for
// email. Returns ErrUserNotFound if no such user or key is registered.
func (d *UserDirectory) PublicKeyOf(email string) (string, error) {
	row, ok, err := d.store.GetOne(UsersTable, "email", email)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrUserNotFound
	}
	key, _ := row["public_key"].(string)
	if key == "" {
		return "", ErrUserNotFound
	}
	return key, nil
}

// NodeURLOf returns the peer node URL a user registered under.
func (d *UserDirectory) NodeURLOf(email string) (string, error) {
	row, ok, err := d.store.GetOne(UsersTable, "email", email)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrUserNotFound
	}
	url, _ := row["node_url"].(string)
	return url, nil
}

// PeerURLsExcluding returns the node URLs of every registered user except
// selfEmail, deduplicated and skipping empty URLs. It mirrors the Python
// original's sql_util.nodes() helper.
func (d *UserDirectory) PeerURLsExcluding(selfEmail string) ([]string, error) {
	rows, err := d.store.GetAll(UsersTable)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var urls []string
	for _, row := range rows {
		email, _ := row["email"].(string)
		if email == selfEmail {
			continue
		}
		url, _ := row["node_url"].(string)
		if url == "" || seen[url] {
			continue
		}
		seen[url] = true
		urls = append(urls, url)
	}
	return urls, nil
}

// MarkHasWallet records that email has generated and registered a key
// pair, matching the original's "has_wallet" dashboard flag.
func (d *UserDirectory) MarkHasWallet(email string, publicKeyPEM string) error {
	return d.store.UpdateWhere(UsersTable, "email", email, Row{
		"public_key": publicKeyPEM,
		"has_wallet": boolToInt(true),
	})
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
