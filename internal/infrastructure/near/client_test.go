package near

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/potlock/donation-indexer/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.NEARConfig{
		RPCURL:         server.URL,
		RequestTimeout: 5 * time.Second,
		MaxRetries:     2,
		RetryDelay:     time.Millisecond,
	}
	return NewClient(cfg, zap.NewNop()), server
}

func rpcResult(t *testing.T, w http.ResponseWriter, result interface{}) {
	t.Helper()
	raw, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("failed to marshal result: %v", err)
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      "donation-indexer",
		"result":  json.RawMessage(raw),
	})
}

func TestLatestBlock(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Method != "block" {
			t.Errorf("expected method block, got %s", req.Method)
		}
		params, ok := req.Params.(map[string]interface{})
		if !ok || params["finality"] != "final" {
			t.Errorf("expected finality final, got %v", req.Params)
		}

		rpcResult(t, w, Block{
			Header: BlockHeader{Height: 12345, Hash: "abc", Timestamp: 1700000000000000000},
			Chunks: []ChunkHeader{{ChunkHash: "chunk-1", ShardID: 0}},
		})
	})

	block, err := client.LatestBlock(context.Background())
	if err != nil {
		t.Fatalf("LatestBlock failed: %v", err)
	}
	if block.Header.Height != 12345 {
		t.Errorf("expected height 12345, got %d", block.Header.Height)
	}
	if len(block.Chunks) != 1 || block.Chunks[0].ChunkHash != "chunk-1" {
		t.Errorf("unexpected chunks %+v", block.Chunks)
	}
}

func TestBlockByHeight(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		params := req.Params.(map[string]interface{})
		if params["block_id"] != float64(777) {
			t.Errorf("expected block_id 777, got %v", params["block_id"])
		}

		rpcResult(t, w, Block{Header: BlockHeader{Height: 777, Hash: "def"}})
	})

	block, err := client.BlockByHeight(context.Background(), 777)
	if err != nil {
		t.Fatalf("BlockByHeight failed: %v", err)
	}
	if block.Header.Hash != "def" {
		t.Errorf("unexpected hash %s", block.Header.Hash)
	}
}

func TestChunk(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Method != "chunk" {
			t.Errorf("expected method chunk, got %s", req.Method)
		}

		rpcResult(t, w, ChunkDetails{
			ReceiptExecutionOutcomes: []ReceiptExecutionOutcome{
				{
					Receipt: &Receipt{ReceiptID: "r1", ReceiverID: "donate.potlock.near"},
					ExecutionOutcome: &ExecutionOutcomeWithID{
						ID:      "tx-1",
						Outcome: &ExecutionOutcome{Logs: []string{"hello"}},
					},
				},
			},
		})
	})

	chunk, err := client.Chunk(context.Background(), "chunk-1")
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunk.ReceiptExecutionOutcomes) != 1 {
		t.Fatalf("expected 1 receipt outcome, got %d", len(chunk.ReceiptExecutionOutcomes))
	}
	if chunk.ReceiptExecutionOutcomes[0].ExecutionOutcome.ID != "tx-1" {
		t.Errorf("unexpected outcome id %s", chunk.ReceiptExecutionOutcomes[0].ExecutionOutcome.ID)
	}
}

func TestCallWithRetry_RecoversFromTransientFailure(t *testing.T) {
	var calls atomic.Int32

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		rpcResult(t, w, Block{Header: BlockHeader{Height: 1}})
	})

	block, err := client.LatestBlock(context.Background())
	if err != nil {
		t.Fatalf("expected retry to succeed: %v", err)
	}
	if block.Header.Height != 1 {
		t.Errorf("unexpected height %d", block.Header.Height)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}

func TestCallWithRetry_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	if _, err := client.LatestBlock(context.Background()); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	// MaxRetries 2 means 3 attempts in total
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestCall_RPCError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      "donation-indexer",
			"error": map[string]interface{}{
				"code":    -32000,
				"message": "UNKNOWN_BLOCK",
				"data":    "block 999999 not found",
			},
		})
	})

	if _, err := client.BlockByHeight(context.Background(), 999999); err == nil {
		t.Fatal("expected rpc error")
	}
}

func TestCall_ContextCancellation(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.LatestBlock(ctx); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
