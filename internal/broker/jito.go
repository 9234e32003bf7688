package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"solana-swarm-lab/internal/solana"
)

// tipAccounts are the relay's published tip destinations. Any of them
// satisfies the bundle's tip requirement.
var tipAccounts = []string{
	"96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5",
	"HFqU5x63VTqvQss8hp11i4wVV8bD44PvwucfZ2bU7gRe",
	"Cw8CFyM9FkoMi7K7Crf6HNQqf4uEMzpKw6QNghXLvLkY",
	"ADaUMid9yfUytqMBgopwjb2DTLSokTSzL1zt6iGPaS49",
}

var tipIndex atomic.Uint64

// TipAccount returns a relay tip destination, rotating across the
// published set.
func TipAccount() string {
	n := tipIndex.Add(1) - 1
	return tipAccounts[n%uint64(len(tipAccounts))]
}

// BundleClient submits transaction bundles to a tip relay over its
// JSON-RPC surface.
type BundleClient struct {
	httpClient *http.Client
	requestID  atomic.Int64
}

// NewBundleClient creates a bundle client with a sane submit timeout.
func NewBundleClient() *BundleClient {
	return &BundleClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type bundleRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type bundleResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SendBundle submits the signed transactions as one atomic bundle and
// returns the relay's bundle identifier.
func (c *BundleClient) SendBundle(ctx context.Context, relayURL string, txs []*solana.SignedTx) (string, error) {
	if relayURL == "" {
		return "", fmt.Errorf("tip relay URL required")
	}
	if len(txs) == 0 {
		return "", fmt.Errorf("empty bundle")
	}

	encoded := make([]string, len(txs))
	for i, tx := range txs {
		encoded[i] = tx.Base64
	}

	reqBody, err := json.Marshal(bundleRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  "sendBundle",
		Params:  []interface{}{encoded, map[string]string{"encoding": "base64"}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal bundle request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, relayURL, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("create bundle request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send bundle: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read bundle response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("relay returned %d: %s", resp.StatusCode, body)
	}

	var parsed bundleResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode bundle response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("relay error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	return parsed.Result, nil
}
