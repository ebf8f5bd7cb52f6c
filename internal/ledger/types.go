// Package ledger implements the replicated, proof-of-work blockchain:
// transaction pool, mining, chain validation, and longest-chain
// resolution across peers.
package ledger

// RewardSender is the synthetic sender identity mining-reward
// transactions carry. A transaction from this sender is never signed and
// is never passed to wallet.Verify, matching the original wallet.py,
// which simply never calls verify_signature for reward transactions.
const RewardSender = "Jiocoin"

// Transaction is a single signed (or reward) value transfer. Index is its
// monotonically assigned position within the open pool at the time it was
// added, starting at 1 and resetting on each successful mine; it is not
// part of the canonical hash input (see HashBlock), only the wire/storage
// shape.
type Transaction struct {
	Index     int     `json:"index"`
	Sender    string  `json:"sender"`
	Recipient string  `json:"recipient"`
	Amount    float64 `json:"amount"`
	Signature string  `json:"signature"`
}

// IsReward reports whether this is a mining-reward transaction.
func (t Transaction) IsReward() bool {
	return t.Sender == RewardSender
}

// Block is one hash-linked unit of the chain.
type Block struct {
	Index        int           `json:"index"`
	PreviousHash string        `json:"previous_hash"`
	Timestamp    string        `json:"timestamp"`
	Transactions []Transaction `json:"transactions"`
	Nonce        uint64        `json:"nonce"`
	Hash         string        `json:"hash"`
}

// Chain is an ordered sequence of blocks, genesis first.
type Chain []Block
