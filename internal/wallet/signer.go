package wallet

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/jiocoin/jiochain/pkg/helpers"
)

// ErrInvalidSignature is returned by Verify when a signature fails to
// validate against the sender's registered public key.
var ErrInvalidSignature = errors.New("wallet: invalid signature")

// PublicKeyLookup resolves a sender's PEM-encoded public key. It is kept
// as a small local interface (rather than importing storage.UserDirectory
// directly) so this package never needs to know about SQL storage.
type PublicKeyLookup interface {
	PublicKeyOf(email string) (string, error)
}

// digest returns the RSASSA-PSS digest input for a transfer, matching the
// original wallet.py: sender + recipient + amount, concatenated as text.
func digest(sender, recipient string, amount float64) []byte {
	text := sender + recipient + helpers.FormatAmount(amount)
	sum := sha256.Sum256([]byte(text))
	return sum[:]
}

// Sign produces a hex-encoded RSASSA-PSS signature over the transfer
// digest using the KeyStore's current private key.
func (k *KeyStore) Sign(sender, recipient string, amount float64) (string, error) {
	k.mu.RLock()
	priv := k.privateKey
	k.mu.RUnlock()
	if priv == nil {
		return "", ErrKeysNotFound
	}

	sig, err := rsa.SignPSS(rand.Reader, priv, crypto.SHA256, digest(sender, recipient, amount), nil)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}
	return helpers.BytesToHex(sig), nil
}

// Verify checks a hex-encoded RSASSA-PSS signature against the public
// key lookup's record for sender. A transaction whose sender is the
// reward-emitting identity is never passed to Verify (it carries no
// signature); callers are expected to special-case that before calling
// in, matching the original's behavior of simply never calling
// verify_signature for reward transactions.
func Verify(lookup PublicKeyLookup, sender, recipient string, amount float64, signatureHex string) error {
	pemStr, err := lookup.PublicKeyOf(sender)
	if err != nil {
		return fmt.Errorf("look up sender public key: %w", err)
	}

	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return fmt.Errorf("invalid PEM for sender %s", sender)
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return fmt.Errorf("parse sender public key: %w", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("sender public key is not RSA")
	}

	sig, err := helpers.HexToBytes(signatureHex)
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}

	if err := rsa.VerifyPSS(rsaPub, crypto.SHA256, digest(sender, recipient, amount), sig, nil); err != nil {
		return ErrInvalidSignature
	}
	return nil
}
