package replicator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jiocoin/jiochain/internal/ledger"
)

func TestBroadcastTransactionStatusCodes(t *testing.T) {
	cases := []struct {
		status  int
		wantOK  bool
		wantErr bool
	}{
		{http.StatusOK, true, false},
		{http.StatusBadRequest, false, false},
		{http.StatusInternalServerError, false, false},
		{http.StatusTeapot, false, true},
	}

	for _, c := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(c.status)
		}))
		r := New()
		ok, err := r.BroadcastTransaction(context.Background(), srv.URL, ledger.Transaction{Sender: "a", Recipient: "b", Amount: 1})
		srv.Close()

		if (err != nil) != c.wantErr {
			t.Errorf("status %d: err = %v, wantErr %v", c.status, err, c.wantErr)
		}
		if ok != c.wantOK {
			t.Errorf("status %d: ok = %v, want %v", c.status, ok, c.wantOK)
		}
	}
}

func TestBroadcastBlockConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	r := New()
	conflict, err := r.BroadcastBlock(context.Background(), srv.URL, ledger.Block{Index: 1})
	if err != nil {
		t.Fatalf("BroadcastBlock: %v", err)
	}
	if !conflict {
		t.Error("expected conflict=true for a 409 response")
	}
}

func TestFetchChain(t *testing.T) {
	want := ledger.Chain{{Index: 1, Hash: "abc"}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(want)
	}))
	defer srv.Close()

	r := New()
	got, err := r.FetchChain(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchChain: %v", err)
	}
	if len(got) != 1 || got[0].Hash != "abc" {
		t.Errorf("got %+v, want %+v", got, want)
	}
}
