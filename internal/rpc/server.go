// Package rpc is the peer- and operator-facing HTTP API for a ledger
// node.
package rpc

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/jiocoin/jiochain/internal/ledger"
	"github.com/jiocoin/jiochain/internal/replicator"
	"github.com/jiocoin/jiochain/pkg/logging"
)

// Server is the node's HTTP API: the peer-facing wire endpoints
// (/broadcast-tnx, /broadcast-block, /chain) plus a small local operator
// surface (/balance, /open-transactions, /transaction, /mine, /resolve)
// that stands in for the excluded web UI.
type Server struct {
	host       string
	ledger     *ledger.Ledger
	replicator *replicator.Replicator
	peers      func() []string
	log        *logging.Logger

	server   *http.Server
	listener net.Listener
}

// NewServer creates an HTTP API server. peers returns the peer URLs to
// replicate with, evaluated at call time (so it can be swapped out under
// test).
func NewServer(host string, l *ledger.Ledger, r *replicator.Replicator, peers func() []string) *Server {
	return &Server{
		host:       host,
		ledger:     l,
		replicator: r,
		peers:      peers,
		log:        logging.GetDefault().Component("rpc"),
	}
}

// Handler returns the server's http.Handler without binding a listener,
// for use in tests with httptest.Server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /broadcast-tnx", s.handleBroadcastTransaction)
	mux.HandleFunc("POST /broadcast-block", s.handleBroadcastBlock)
	mux.HandleFunc("GET /chain", s.handleChain)
	mux.HandleFunc("GET /balance", s.handleBalance)
	mux.HandleFunc("GET /open-transactions", s.handleOpenTransactions)
	mux.HandleFunc("POST /transaction", s.handleCreateTransaction)
	mux.HandleFunc("POST /mine", s.handleMine)
	mux.HandleFunc("POST /resolve", s.handleResolve)
	return mux
}

// Start binds addr and begins serving.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = listener

	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("node API server error", "error", err)
		}
	}()

	s.log.Info("node API started", "addr", addr)
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
