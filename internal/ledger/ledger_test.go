package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jiocoin/jiochain/internal/storage"
	"github.com/jiocoin/jiochain/internal/wallet"
)

type fakeLookup map[string]string

func (f fakeLookup) PublicKeyOf(email string) (string, error) {
	key, ok := f[email]
	if !ok {
		return "", wallet.ErrKeysNotFound
	}
	return key, nil
}

func newTestLedger(t *testing.T, host string, lookup fakeLookup) *Ledger {
	t.Helper()
	dir, err := os.MkdirTemp("", "jiochain-ledger-")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	store, err := storage.Open(filepath.Join(dir, "chain.db"))
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	l, err := New(store, lookup, host, 1, 10.0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l
}

func signedTransaction(t *testing.T, ks *wallet.KeyStore, sender, recipient string, amount float64) Transaction {
	t.Helper()
	sig, err := ks.Sign(sender, recipient, amount)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return Transaction{Sender: sender, Recipient: recipient, Amount: amount, Signature: sig}
}

func TestAddTransactionValidAndInvalid(t *testing.T) {
	ks := wallet.NewKeyStore()
	ks.CreateKeys()
	pub, _ := ks.PublicKeyPEM()
	lookup := fakeLookup{"alice@example.com": pub}

	l := newTestLedger(t, "bob@example.com", lookup)

	tx := signedTransaction(t, ks, "alice@example.com", "bob@example.com", 5)
	ok, err := l.AddTransaction(tx)
	if err != nil || !ok {
		t.Fatalf("AddTransaction valid = %v, %v, want true, nil", ok, err)
	}

	tampered := tx
	tampered.Amount = 999
	ok, err = l.AddTransaction(tampered)
	if err != nil {
		t.Fatalf("AddTransaction tampered: %v", err)
	}
	if ok {
		t.Error("expected tampered transaction to be rejected")
	}

	if len(l.OpenTransactions()) != 1 {
		t.Errorf("open pool = %d, want 1", len(l.OpenTransactions()))
	}
}

func TestMineBlockProducesValidChain(t *testing.T) {
	ks := wallet.NewKeyStore()
	ks.CreateKeys()
	pub, _ := ks.PublicKeyPEM()
	lookup := fakeLookup{"alice@example.com": pub}

	l := newTestLedger(t, "bob@example.com", lookup)
	tx := signedTransaction(t, ks, "alice@example.com", "bob@example.com", 5)
	l.AddTransaction(tx)

	block, err := l.MineBlock()
	if err != nil {
		t.Fatalf("MineBlock: %v", err)
	}
	if block.Index != 1 {
		t.Errorf("index = %d, want 1", block.Index)
	}
	if block.PreviousHash != GenesisPreviousHash {
		t.Errorf("previous hash = %s, want genesis", block.PreviousHash)
	}
	if block.Hash[:1] != "0" {
		t.Errorf("hash does not satisfy difficulty: %s", block.Hash)
	}
	if len(l.OpenTransactions()) != 0 {
		t.Error("open pool should be cleared after mining")
	}

	foundReward := false
	for _, txOut := range block.Transactions {
		if txOut.IsReward() && txOut.Recipient == "bob@example.com" {
			foundReward = true
		}
	}
	if !foundReward {
		t.Error("expected mining reward transaction for host")
	}

	if bal := l.BalanceOf(); bal != 15 {
		t.Errorf("balance = %v, want 15", bal)
	}

	if !IsValidChain(l.Chain(), 1) {
		t.Error("mined chain should be valid")
	}
}

func TestAddBlockRejectsBadPreviousHash(t *testing.T) {
	ks := wallet.NewKeyStore()
	ks.CreateKeys()
	lookup := fakeLookup{}

	l := newTestLedger(t, "bob@example.com", lookup)
	block, err := l.MineBlock()
	if err != nil {
		t.Fatalf("MineBlock: %v", err)
	}

	bad := block
	bad.Index = 2
	bad.PreviousHash = "not-the-real-hash"
	bad.Hash = HashBlock(bad)

	ok, err := l.AddBlock(bad)
	if err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if ok {
		t.Error("expected AddBlock to reject a block with a wrong previous hash")
	}
}

func TestResolveKeepsStrictlyLongestValidChain(t *testing.T) {
	lookup := fakeLookup{}
	l := newTestLedger(t, "bob@example.com", lookup)
	l.MineBlock()

	longer := newTestLedger(t, "bob@example.com", lookup)
	longer.MineBlock()
	longer.MineBlock()

	fetcher := fakeFetcher{"peer-a": longer.Chain()}
	updated, err := l.Resolve(context.Background(), []string{"peer-a"}, fetcher)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !updated {
		t.Fatal("expected resolve to adopt the longer chain")
	}
	if len(l.Chain()) != 2 {
		t.Errorf("chain length after resolve = %d, want 2", len(l.Chain()))
	}
}

func TestResolveIgnoresShorterOrInvalidChains(t *testing.T) {
	lookup := fakeLookup{}
	l := newTestLedger(t, "bob@example.com", lookup)
	l.MineBlock()
	l.MineBlock()

	shorter := newTestLedger(t, "bob@example.com", lookup)
	shorter.MineBlock()

	fetcher := fakeFetcher{"peer-a": shorter.Chain()}
	updated, err := l.Resolve(context.Background(), []string{"peer-a"}, fetcher)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if updated {
		t.Error("expected resolve to reject a shorter chain")
	}

	forged := newTestLedger(t, "bob@example.com", lookup)
	forged.MineBlock()
	forged.MineBlock()
	forged.MineBlock()
	tampered := forged.Chain()
	tampered[1].Transactions = []Transaction{{Sender: RewardSender, Recipient: "mallory@example.com", Amount: 1000}}

	fetcher = fakeFetcher{"peer-a": shorter.Chain(), "peer-b": tampered}
	updated, err = l.Resolve(context.Background(), []string{"peer-a", "peer-b"}, fetcher)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if updated {
		t.Error("expected resolve to reject a longer but invalid chain")
	}
}

type fakeFetcher map[string]Chain

func (f fakeFetcher) FetchChain(ctx context.Context, peerURL string) (Chain, error) {
	return f[peerURL], nil
}
