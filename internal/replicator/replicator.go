// Package replicator is the peer-facing HTTP client: it broadcasts
// transactions and blocks to other nodes and fetches their chains for
// resolution.
package replicator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jiocoin/jiochain/internal/ledger"
	"github.com/jiocoin/jiochain/pkg/logging"
)

// Replicator broadcasts ledger state to peer nodes over HTTP.
type Replicator struct {
	httpClient *http.Client
	log        *logging.Logger
}

// New returns a Replicator with a bounded per-request timeout, matching
// the teacher's HTTP backends: a slow or dead peer must never stall a
// mine/resolve cycle indefinitely.
func New() *Replicator {
	return &Replicator{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		log:        logging.GetDefault().Component("replicator"),
	}
}

type broadcastTransactionRequest struct {
	Transaction ledger.Transaction `json:"transaction"`
	Node        string             `json:"node"`
}

// BroadcastTransaction sends tx to peerURL's /broadcast-tnx endpoint. It
// returns false (not an error) for a 400 or 500 response — the original
// semantics, where a rejecting peer makes the overall broadcast appear to
// fail even though the transaction was already appended locally. A
// connection error is returned as an error so the caller can choose to
// skip that peer rather than treat it as a rejection.
func (r *Replicator) BroadcastTransaction(ctx context.Context, peerURL string, tx ledger.Transaction) (bool, error) {
	body, err := json.Marshal(broadcastTransactionRequest{Transaction: tx, Node: peerURL})
	if err != nil {
		return false, fmt.Errorf("marshal transaction: %w", err)
	}

	resp, err := r.post(ctx, peerURL+"/broadcast-tnx", body)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusBadRequest, http.StatusInternalServerError:
		return false, nil
	default:
		return false, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, peerURL)
	}
}

type broadcastBlockRequest struct {
	Block ledger.Block `json:"block"`
	Node  string       `json:"node"`
}

// BroadcastBlock sends a newly mined block to peerURL's /broadcast-block
// endpoint. A 409 response means the peer has a conflicting chain and is
// reported back as conflict=true so the caller can tally votes across
// peers, matching mine_block's original conflict-detection behavior.
func (r *Replicator) BroadcastBlock(ctx context.Context, peerURL string, b ledger.Block) (bool, error) {
	body, err := json.Marshal(broadcastBlockRequest{Block: b, Node: peerURL})
	if err != nil {
		return false, fmt.Errorf("marshal block: %w", err)
	}

	resp, err := r.post(ctx, peerURL+"/broadcast-block", body)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return false, nil
	case http.StatusConflict:
		return true, nil
	default:
		return false, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, peerURL)
	}
}

// FetchChain retrieves peerURL's full chain via GET /chain.
func (r *Replicator) FetchChain(ctx context.Context, peerURL string) (ledger.Chain, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, peerURL+"/chain", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch chain from %s: %w", peerURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, peerURL)
	}

	var chain ledger.Chain
	if err := json.NewDecoder(resp.Body).Decode(&chain); err != nil {
		return nil, fmt.Errorf("decode chain from %s: %w", peerURL, err)
	}
	return chain, nil
}

func (r *Replicator) post(ctx context.Context, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post to %s: %w", url, err)
	}
	return resp, nil
}
