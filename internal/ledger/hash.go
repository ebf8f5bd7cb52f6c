package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/jiocoin/jiochain/pkg/helpers"
)

// HashBlock computes the canonical SHA-256 hash of a block. Every field
// except Hash itself is included, rendered through the same textual
// encoding the Python original produced via str(block.__dict__): a
// Python-dict-literal-shaped string, field order index, previous_hash,
// nonce, timestamp, transactions, with each transaction rendered as
// sender, recipient, amount, signature. Every peer must produce this
// exact byte sequence for the same block, or chains silently diverge.
func HashBlock(b Block) string {
	sum := sha256.Sum256([]byte(canonicalBlockText(b)))
	return hex.EncodeToString(sum[:])
}

func canonicalBlockText(b Block) string {
	var sb strings.Builder
	sb.WriteByte('{')
	sb.WriteString("'index': ")
	sb.WriteString(strconv.Itoa(b.Index))
	sb.WriteString(", 'previous_hash': ")
	sb.WriteString(pyStr(b.PreviousHash))
	sb.WriteString(", 'nonce': ")
	sb.WriteString(strconv.FormatUint(b.Nonce, 10))
	sb.WriteString(", 'timestamp': ")
	sb.WriteString(pyStr(b.Timestamp))
	sb.WriteString(", 'transactions': [")
	for i, tx := range b.Transactions {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(canonicalTransactionText(tx))
	}
	sb.WriteString("]}")
	return sb.String()
}

func canonicalTransactionText(t Transaction) string {
	var sb strings.Builder
	sb.WriteByte('{')
	sb.WriteString("'sender': ")
	sb.WriteString(pyStr(t.Sender))
	sb.WriteString(", 'recipient': ")
	sb.WriteString(pyStr(t.Recipient))
	sb.WriteString(", 'amount': ")
	sb.WriteString(helpers.FormatAmount(t.Amount))
	sb.WriteString(", 'signature': ")
	sb.WriteString(pyStr(t.Signature))
	sb.WriteByte('}')
	return sb.String()
}

// pyStr renders s the way Python's repr() renders a str: single-quoted,
// with backslashes and embedded single quotes escaped.
func pyStr(s string) string {
	var sb strings.Builder
	sb.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '\'':
			sb.WriteString(`\'`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('\'')
	return sb.String()
}
