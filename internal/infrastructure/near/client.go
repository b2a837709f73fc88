package near

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/potlock/donation-indexer/internal/config"
)

// Client is a JSON-RPC client for a NEAR RPC endpoint with retry logic
type Client struct {
	httpClient *http.Client
	rpcURL     string
	config     config.NEARConfig
	logger     *zap.Logger
}

// NewClient creates a new NEAR RPC client
func NewClient(cfg config.NEARConfig, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		rpcURL:     cfg.RPCURL,
		config:     cfg,
		logger:     logger,
	}
}

// rpcRequest is the JSON-RPC 2.0 request envelope
type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

// rpcError is the JSON-RPC 2.0 error object
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s %s", e.Code, e.Message, e.Data)
}

// rpcResponse is the JSON-RPC 2.0 response envelope
type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// LatestBlock returns the most recent final block
func (c *Client) LatestBlock(ctx context.Context) (*Block, error) {
	var block Block
	params := map[string]interface{}{"finality": "final"}

	if err := c.callWithRetry(ctx, "block", params, &block); err != nil {
		return nil, fmt.Errorf("failed to get latest block: %w", err)
	}

	return &block, nil
}

// BlockByHeight returns the block at the given height
func (c *Client) BlockByHeight(ctx context.Context, height uint64) (*Block, error) {
	var block Block
	params := map[string]interface{}{"block_id": height}

	if err := c.callWithRetry(ctx, "block", params, &block); err != nil {
		return nil, fmt.Errorf("failed to get block %d: %w", height, err)
	}

	return &block, nil
}

// Chunk returns the full contents of the chunk with the given hash
func (c *Client) Chunk(ctx context.Context, chunkHash string) (*ChunkDetails, error) {
	var chunk ChunkDetails
	params := map[string]interface{}{"chunk_id": chunkHash}

	if err := c.callWithRetry(ctx, "chunk", params, &chunk); err != nil {
		return nil, fmt.Errorf("failed to get chunk %s: %w", chunkHash, err)
	}

	return &chunk, nil
}

// callWithRetry performs one RPC method call, retrying transient failures
// up to the configured limit
func (c *Client) callWithRetry(ctx context.Context, method string, params, result interface{}) error {
	var err error

	for i := 0; i <= c.config.MaxRetries; i++ {
		err = c.call(ctx, method, params, result)
		if err == nil {
			return nil
		}

		c.logger.Warn("RPC call failed, retrying",
			zap.String("method", method),
			zap.Int("attempt", i+1),
			zap.Error(err),
		)

		if i < c.config.MaxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}
	}

	return fmt.Errorf("rpc %s failed after %d retries: %w", method, c.config.MaxRetries, err)
}

// call performs a single JSON-RPC request
func (c *Client) call(ctx context.Context, method string, params, result interface{}) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      "donation-indexer",
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if rpcResp.Error != nil {
		return rpcResp.Error
	}

	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		return fmt.Errorf("failed to unmarshal result: %w", err)
	}

	return nil
}
