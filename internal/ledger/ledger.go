package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jiocoin/jiochain/internal/storage"
	"github.com/jiocoin/jiochain/internal/wallet"
	"github.com/jiocoin/jiochain/pkg/logging"
)

const (
	blockchainTable       = "blockchain"
	openTransactionsTable = "open_transactions"

	// GenesisPreviousHash is the previous-hash value of the first block,
	// matching the Python original's '0'*62 + 'x0'.
	GenesisPreviousHash = "00000000000000000000000000000000000000000000000000000000000000x0"
)

var blockchainColumns = []storage.Column{
	{Name: "id", Type: "INTEGER", PrimaryKey: true},
	{Name: "hash", Type: "TEXT"},
	{Name: "previous_hash", Type: "TEXT"},
	{Name: "nonce", Type: "INTEGER"},
	{Name: "timestamp", Type: "TEXT"},
	{Name: "transactions", Type: "TEXT"},
}

var openTransactionColumns = []storage.Column{
	{Name: "id", Type: "INTEGER", PrimaryKey: true},
	{Name: "sender", Type: "TEXT"},
	{Name: "recipient", Type: "TEXT"},
	{Name: "amount", Type: "REAL"},
	{Name: "signature", Type: "TEXT"},
}

// ChainFetcher fetches a peer's full chain, the capability Resolve needs
// from the Replicator.
type ChainFetcher interface {
	FetchChain(ctx context.Context, peerURL string) (Chain, error)
}

// BlockBroadcaster sends a newly mined block to a peer and reports
// whether that peer responded with a conflict (409), the capability
// MineBlock's caller needs from the Replicator.
type BlockBroadcaster interface {
	BroadcastBlock(ctx context.Context, peerURL string, b Block) (conflict bool, err error)
}

// Ledger is the chain + open-transaction-pool state machine for one
// node. All mutating operations are serialized by a single write lock;
// reads take the read lock.
type Ledger struct {
	host         string
	difficulty   int
	miningReward float64

	store  storage.Store
	lookup wallet.PublicKeyLookup

	mu    sync.RWMutex
	chain Chain
	open  []Transaction

	log *logging.Logger
}

// New creates a Ledger backed by store, scoped to host's balance, and
// loads any persisted chain/pool state.
func New(store storage.Store, lookup wallet.PublicKeyLookup, host string, difficulty int, miningReward float64) (*Ledger, error) {
	if err := store.EnsureTable(blockchainTable, blockchainColumns); err != nil {
		return nil, fmt.Errorf("ensure blockchain table: %w", err)
	}
	if err := store.EnsureTable(openTransactionsTable, openTransactionColumns); err != nil {
		return nil, fmt.Errorf("ensure open transactions table: %w", err)
	}

	l := &Ledger{
		host:         host,
		difficulty:   difficulty,
		miningReward: miningReward,
		store:        store,
		lookup:       lookup,
		log:          logging.GetDefault().Component("ledger"),
	}
	if err := l.loadData(); err != nil {
		return nil, err
	}
	return l, nil
}

// BalanceOf returns the host's balance: confirmed transactions in every
// block, plus any amount already committed to the open pool (which is
// always a debit, since only the sender of an open transaction is known
// to be moving funds before it's mined).
func (l *Ledger) BalanceOf() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var balance float64
	for _, block := range l.chain {
		for _, tx := range block.Transactions {
			switch {
			case tx.Recipient == l.host:
				balance += tx.Amount
			case tx.Sender == l.host:
				balance -= tx.Amount
			}
		}
	}
	for _, tx := range l.open {
		if tx.Sender == l.host {
			balance -= tx.Amount
		}
	}
	return balance
}

// Chain returns a copy of the current chain.
func (l *Ledger) Chain() Chain {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(Chain, len(l.chain))
	copy(out, l.chain)
	return out
}

// OpenTransactions returns a copy of the current open-transaction pool.
func (l *Ledger) OpenTransactions() []Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Transaction, len(l.open))
	copy(out, l.open)
	return out
}

// AddTransaction validates a transaction's signature against the sender's
// registered public key and appends it to the open pool. It returns
// false, without error, if the signature fails to verify — a rejection,
// not a fault.
func (l *Ledger) AddTransaction(tx Transaction) (bool, error) {
	if !tx.IsReward() {
		if err := wallet.Verify(l.lookup, tx.Sender, tx.Recipient, tx.Amount, tx.Signature); err != nil {
			l.log.Debug("transaction rejected", "sender", tx.Sender, "error", err)
			return false, nil
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tx.Index = len(l.open) + 1
	l.open = append(l.open, tx)
	if err := l.saveOpenTransactions(); err != nil {
		return false, err
	}
	l.log.Info("transaction added", "sender", tx.Sender, "recipient", tx.Recipient, "amount", tx.Amount)
	return true, nil
}

// MineBlock verifies every open transaction, drops any with an invalid
// signature, appends a mining-reward transaction, and performs the
// proof-of-work search for a block hash with `difficulty` leading zero
// hex digits. On success the block is appended to the chain, the open
// pool is cleared, and the mined block is returned for the caller (the
// NodeAPI layer) to broadcast to peers.
func (l *Ledger) MineBlock() (Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.open[:0:0]
	for _, tx := range l.open {
		if tx.IsReward() {
			kept = append(kept, tx)
			continue
		}
		if err := wallet.Verify(l.lookup, tx.Sender, tx.Recipient, tx.Amount, tx.Signature); err != nil {
			l.log.Warn("dropping open transaction with invalid signature", "sender", tx.Sender)
			continue
		}
		kept = append(kept, tx)
	}
	kept = append(kept, Transaction{
		Index:     len(kept) + 1,
		Sender:    RewardSender,
		Recipient: l.host,
		Amount:    l.miningReward,
	})

	previousHash := GenesisPreviousHash
	if len(l.chain) > 0 {
		previousHash = l.chain[len(l.chain)-1].Hash
	}

	block := Block{
		Index:        len(l.chain) + 1,
		PreviousHash: previousHash,
		Timestamp:    nowStamp(),
		Transactions: kept,
		Nonce:        0,
	}

	target := zeroPrefix(l.difficulty)
	hash := HashBlock(block)
	for hash[:l.difficulty] != target {
		block.Nonce++
		block.Timestamp = nowStamp()
		hash = HashBlock(block)
	}
	block.Hash = hash

	l.chain = append(l.chain, block)
	l.open = nil
	if err := l.saveChain(); err != nil {
		return Block{}, err
	}
	if err := l.saveOpenTransactions(); err != nil {
		return Block{}, err
	}

	l.log.Info("block mined", "index", block.Index, "hash", block.Hash, "nonce", block.Nonce)
	return block, nil
}

// AddBlock appends a block received from a peer to the local chain,
// after validating it against the current tip (or, for the first block,
// validating it in isolation). Any open transaction matching one now
// confirmed in block is dropped from the pool.
func (l *Ledger) AddBlock(block Block) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if block.Index == 1 {
		if !isValidBlock(block, nil, l.difficulty) {
			return false, nil
		}
	} else if len(l.chain) == 0 || !isValidBlock(block, &l.chain[len(l.chain)-1], l.difficulty) {
		return false, nil
	}

	l.chain = append(l.chain, block)

	remaining := l.open[:0:0]
	for _, open := range l.open {
		if containsTransaction(block.Transactions, open) {
			continue
		}
		remaining = append(remaining, open)
	}
	l.open = remaining

	if err := l.saveChain(); err != nil {
		return false, err
	}
	if err := l.saveOpenTransactions(); err != nil {
		return false, err
	}

	l.log.Info("block added", "index", block.Index, "hash", block.Hash)
	return true, nil
}

// Resolve asks every peer for its chain and keeps the strictly longest
// valid one seen across the whole call, replacing the local chain if any
// peer's chain beats both the local chain and every other peer's chain
// seen so far. This corrects the original Python implementation, which
// applied the first chain longer than the *starting* local length rather
// than tracking the best candidate across the loop.
func (l *Ledger) Resolve(ctx context.Context, peers []string, fetcher ChainFetcher) (bool, error) {
	l.mu.RLock()
	localLen := len(l.chain)
	l.mu.RUnlock()

	bestLen := localLen
	var best Chain

	for _, peer := range peers {
		peerChain, err := fetcher.FetchChain(ctx, peer)
		if err != nil {
			l.log.Debug("resolve: skipping unreachable peer", "peer", peer, "error", err)
			continue
		}
		if len(peerChain) <= bestLen {
			continue
		}
		if !IsValidChain(peerChain, l.difficulty) {
			continue
		}
		best = peerChain
		bestLen = len(peerChain)
	}

	if best == nil {
		return false, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.chain = best
	l.open = nil
	if err := l.saveChain(); err != nil {
		return false, err
	}
	if err := l.saveOpenTransactions(); err != nil {
		return false, err
	}
	l.log.Info("chain replaced via resolve", "new_length", bestLen)
	return true, nil
}

// IsValidChain reports whether every block in chain is internally
// consistent: each block's stored hash matches its recomputed hash, that
// hash carries the required proof-of-work, and each block correctly
// references the previous block's hash.
func IsValidChain(chain Chain, difficulty int) bool {
	for i, block := range chain {
		if i == 0 {
			if !isValidBlock(block, nil, difficulty) {
				return false
			}
			continue
		}
		if !isValidBlock(block, &chain[i-1], difficulty) {
			return false
		}
	}
	return true
}

func isValidBlock(block Block, prev *Block, difficulty int) bool {
	hash := HashBlock(block)
	if hash != block.Hash {
		return false
	}
	if hash[:difficulty] != zeroPrefix(difficulty) {
		return false
	}
	if prev != nil && block.PreviousHash != prev.Hash {
		return false
	}
	return true
}

func containsTransaction(txs []Transaction, tx Transaction) bool {
	for _, t := range txs {
		if t == tx {
			return true
		}
	}
	return false
}

func zeroPrefix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '0'
	}
	return string(b)
}

func nowStamp() string {
	return strconv.FormatFloat(float64(time.Now().UnixNano())/1e9, 'f', -1, 64)
}

func (l *Ledger) saveChain() error {
	if err := l.store.Truncate(blockchainTable); err != nil {
		return fmt.Errorf("truncate blockchain table: %w", err)
	}
	for _, block := range l.chain {
		txJSON, err := json.Marshal(block.Transactions)
		if err != nil {
			return fmt.Errorf("marshal transactions: %w", err)
		}
		err = l.store.Insert(blockchainTable, storage.Row{
			"id":            block.Index,
			"hash":          block.Hash,
			"previous_hash": block.PreviousHash,
			"nonce":         block.Nonce,
			"timestamp":     block.Timestamp,
			"transactions":  string(txJSON),
		})
		if err != nil {
			return fmt.Errorf("insert block %d: %w", block.Index, err)
		}
	}
	return nil
}

func (l *Ledger) saveOpenTransactions() error {
	if err := l.store.Truncate(openTransactionsTable); err != nil {
		return fmt.Errorf("truncate open transactions table: %w", err)
	}
	for i, tx := range l.open {
		err := l.store.Insert(openTransactionsTable, storage.Row{
			"id":        i + 1,
			"sender":    tx.Sender,
			"recipient": tx.Recipient,
			"amount":    tx.Amount,
			"signature": tx.Signature,
		})
		if err != nil {
			return fmt.Errorf("insert open transaction %d: %w", i, err)
		}
	}
	return nil
}

func (l *Ledger) loadData() error {
	rows, err := l.store.GetAll(blockchainTable)
	if err != nil {
		return fmt.Errorf("load blockchain: %w", err)
	}
	sort.Slice(rows, func(i, j int) bool { return toInt(rows[i]["id"]) < toInt(rows[j]["id"]) })

	chain := make(Chain, 0, len(rows))
	for _, row := range rows {
		var txs []Transaction
		if raw, _ := row["transactions"].(string); raw != "" {
			if err := json.Unmarshal([]byte(raw), &txs); err != nil {
				return fmt.Errorf("unmarshal transactions for block %v: %w", row["id"], err)
			}
		}
		chain = append(chain, Block{
			Index:        toInt(row["id"]),
			Hash:         toStr(row["hash"]),
			PreviousHash: toStr(row["previous_hash"]),
			Nonce:        uint64(toInt(row["nonce"])),
			Timestamp:    toStr(row["timestamp"]),
			Transactions: txs,
		})
	}
	l.chain = chain

	openRows, err := l.store.GetAll(openTransactionsTable)
	if err != nil {
		return fmt.Errorf("load open transactions: %w", err)
	}
	sort.Slice(openRows, func(i, j int) bool { return toInt(openRows[i]["id"]) < toInt(openRows[j]["id"]) })

	open := make([]Transaction, 0, len(openRows))
	for _, row := range openRows {
		open = append(open, Transaction{
			Index:     toInt(row["id"]),
			Sender:    toStr(row["sender"]),
			Recipient: toStr(row["recipient"]),
			Amount:    toFloat(row["amount"]),
			Signature: toStr(row["signature"]),
		})
	}
	l.open = open
	return nil
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	default:
		return 0
	}
}

func toStr(v any) string {
	s, _ := v.(string)
	return s
}
