package directory

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/msgmaxim/onionreq/pkg/onion"
)

func TestFetchNodesParsesServiceNodeStates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("server failed to decode request: %v", err)
		}
		if req.Method != "get_n_service_nodes" {
			t.Errorf("method = %q, want get_n_service_nodes", req.Method)
		}
		if !req.Params.ActiveOnly {
			t.Error("expected active_only=true")
		}
		for field := range fieldMask {
			if !req.Params.Fields[field] {
				t.Errorf("missing field %q in request mask", field)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"result": map[string]interface{}{
				"service_node_states": []map[string]interface{}{
					{
						"public_ip":           "1.2.3.4",
						"storage_port":        22021,
						"storage_lmq_port":    22022,
						"service_node_pubkey": "snpk",
						"operator_address":    "op",
						"pubkey_x25519":       "x25519hex",
						"pubkey_ed25519":      "ed25519hex",
						"swarm_id":            42,
					},
				},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	nodes, err := client.FetchNodes(context.Background())
	if err != nil {
		t.Fatalf("FetchNodes failed: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("got %d nodes, want 1", len(nodes))
	}
	if nodes[0].PublicIP != "1.2.3.4" {
		t.Errorf("PublicIP = %q, want 1.2.3.4", nodes[0].PublicIP)
	}
	if nodes[0].SwarmID != 42 {
		t.Errorf("SwarmID = %d, want 42", nodes[0].SwarmID)
	}

	cached := client.Nodes()
	if len(cached) != 1 {
		t.Fatalf("Nodes() returned %d entries, want 1", len(cached))
	}
}

func TestFetchNodesPropagatesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	if _, err := client.FetchNodes(context.Background()); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestRefreshRetainsPoolOnError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"result": map[string]interface{}{
					"service_node_states": []map[string]interface{}{
						{"public_ip": "1.1.1.1", "storage_port": 1},
					},
				},
			})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	if err := client.Refresh(context.Background()); err != nil {
		t.Fatalf("first Refresh failed: %v", err)
	}
	if len(client.Nodes()) != 1 {
		t.Fatalf("expected cached pool of 1 after first refresh")
	}

	if err := client.Refresh(context.Background()); err == nil {
		t.Error("expected error on second refresh")
	}
	if len(client.Nodes()) != 1 {
		t.Error("pool should remain unchanged after a failed refresh")
	}
}

func TestGetSwarmForPubkeyParsesSnodes(t *testing.T) {
	var sawMethod string
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		sawMethod, _ = body["method"].(string)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"snodes": []map[string]interface{}{
				{"public_ip": "5.6.7.8", "storage_port": 22021},
			},
		})
	}))
	defer srv.Close()

	host, portStr, err := net.SplitHostPort(strings.TrimPrefix(srv.URL, "https://"))
	if err != nil {
		t.Fatalf("parsing test server URL: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parsing test server port: %v", err)
	}

	client := NewClient("unused")
	client.httpClient = srv.Client()

	sn, err := client.GetSwarmForPubkey(context.Background(), onion.ServiceNode{PublicIP: host, StoragePort: uint16(port)}, "deadbeef")
	if err != nil {
		t.Fatalf("GetSwarmForPubkey failed: %v", err)
	}
	if sawMethod != "get_snodes_for_pubkey" {
		t.Errorf("method = %q, want get_snodes_for_pubkey", sawMethod)
	}
	if len(sn) != 1 || sn[0].PublicIP != "5.6.7.8" {
		t.Fatalf("snodes = %+v, want one node at 5.6.7.8", sn)
	}
}
