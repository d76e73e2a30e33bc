// Package directory fetches the current service-node pool from a seed
// node's JSON-RPC endpoint.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/msgmaxim/onionreq/pkg/onion"
)

// fieldMask is the exact field set the seed's get_n_service_nodes method
// expects; the server only returns fields present here, so trimming it
// would silently drop data callers rely on.
var fieldMask = map[string]bool{
	"public_ip":           true,
	"storage_port":        true,
	"storage_lmq_port":    true,
	"service_node_pubkey": true,
	"operator_address":    true,
	"pubkey_x25519":       true,
	"pubkey_ed25519":      true,
	"swarm_id":            true,
}

type rpcRequest struct {
	JSONRPC string     `json:"jsonrpc"`
	ID      string     `json:"id"`
	Method  string     `json:"method"`
	Params  rpcParams  `json:"params"`
}

type rpcParams struct {
	Limit      uint32          `json:"limit"`
	Fields     map[string]bool `json:"fields"`
	ActiveOnly bool            `json:"active_only"`
}

type rpcResponse struct {
	Result struct {
		ServiceNodeStates []onion.ServiceNode `json:"service_node_states"`
	} `json:"result"`
}

// Client fetches the service-node pool from a single seed URL and caches
// the most recently successful fetch.
type Client struct {
	seedURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	nodes []onion.ServiceNode
}

// NewClient builds a directory client against seedURL, the seed node's
// json_rpc endpoint.
func NewClient(seedURL string) *Client {
	return &Client{
		seedURL: seedURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// FetchNodes requests every active service node from the seed (limit=0
// means "all") and replaces the cached pool on success.
func (c *Client) FetchNodes(ctx context.Context) ([]onion.ServiceNode, error) {
	body := rpcRequest{
		JSONRPC: "2.0",
		ID:      "0",
		Method:  "get_n_service_nodes",
		Params: rpcParams{
			Limit:      0,
			Fields:     fieldMask,
			ActiveOnly: true,
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, onion.NewError(onion.KindDirectory, "marshaling get_n_service_nodes request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.seedURL, bytes.NewReader(payload))
	if err != nil {
		return nil, onion.NewError(onion.KindDirectory, "building seed request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, onion.NewError(onion.KindDirectory, "contacting seed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, onion.NewError(onion.KindDirectory, "reading seed response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, onion.NewError(onion.KindDirectory, fmt.Sprintf("seed returned %s: %s", resp.Status, raw), nil)
	}

	var parsed rpcResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, onion.NewError(onion.KindDirectory, "parsing seed response", err)
	}

	nodes := parsed.Result.ServiceNodeStates
	c.mu.Lock()
	c.nodes = nodes
	c.mu.Unlock()

	return nodes, nil
}

// Refresh re-fetches the pool and returns any error without logging it; on
// failure the previously cached pool is left intact.
func (c *Client) Refresh(ctx context.Context) error {
	_, err := c.FetchNodes(ctx)
	return err
}

// Nodes returns the most recently fetched pool without making a network
// call.
func (c *Client) Nodes() []onion.ServiceNode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]onion.ServiceNode, len(c.nodes))
	copy(out, c.nodes)
	return out
}

// GetSwarmForPubkey asks sn directly (over clearnet, not onion-wrapped)
// which nodes hold the swarm for pk. Used to resolve the swarm owning a
// particular key before routing a request to it.
func (c *Client) GetSwarmForPubkey(ctx context.Context, sn onion.ServiceNode, pk string) ([]onion.ServiceNode, error) {
	url := fmt.Sprintf("https://%s:%d/storage_rpc/v1", sn.PublicIP, sn.StoragePort)

	body := map[string]interface{}{
		"method": "get_snodes_for_pubkey",
		"params": map[string]string{"pubKey": pk},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, onion.NewError(onion.KindDirectory, "marshaling get_snodes_for_pubkey request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, onion.NewError(onion.KindDirectory, "building swarm request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, onion.NewError(onion.KindDirectory, "contacting node", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, onion.NewError(onion.KindDirectory, "reading swarm response", err)
	}

	var parsed struct {
		Snodes []onion.ServiceNode `json:"snodes"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, onion.NewError(onion.KindDirectory, "parsing swarm response", err)
	}
	return parsed.Snodes, nil
}
