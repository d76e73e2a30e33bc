// Package transport dispatches onion-wrapped and clearnet HTTP requests.
package transport

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/msgmaxim/onionreq/internal/metrics"
	"github.com/msgmaxim/onionreq/pkg/onion"
)

// requestTimeout bounds a single onion round trip, guard connect through
// final-hop response.
const requestTimeout = 60 * time.Second

// Request is a single HTTP dispatch: a fully formed URL, method and body.
type Request struct {
	URL    string
	Method string
	Body   []byte
}

// Transport sends a prepared request to its first hop and returns the raw
// response body. Callers are responsible for any onion decryption; a
// Transport only moves bytes.
type Transport interface {
	Send(ctx context.Context, req Request) (string, error)
}

// guardTransport posts to a service node's onion_req/v2 endpoint. Guard
// nodes present self-signed certificates, so verification is always
// disabled for this strategy regardless of configuration.
type guardTransport struct {
	client  *http.Client
	metrics *metrics.PrometheusMetrics
}

// NewGuardTransport builds a Transport for sending onion-wrapped payloads
// to a guard node.
func NewGuardTransport(m *metrics.PrometheusMetrics) Transport {
	return &guardTransport{
		client: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		metrics: m,
	}
}

func (t *guardTransport) Send(ctx context.Context, req Request) (string, error) {
	return doSend(ctx, t.client, t.metrics, "onion_guard", req)
}

// clearnetTransport posts to a regular HTTPS endpoint, e.g. a Session Open
// Group server queried directly rather than through the onion network.
type clearnetTransport struct {
	client  *http.Client
	metrics *metrics.PrometheusMetrics
}

// NewClearnetTransport builds a Transport for direct HTTPS dispatch.
// insecureSkipVerify mirrors a configuration toggle; production
// deployments should leave it false.
func NewClearnetTransport(m *metrics.PrometheusMetrics, insecureSkipVerify bool) Transport {
	return &clearnetTransport{
		client: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: insecureSkipVerify},
			},
		},
		metrics: m,
	}
}

func (t *clearnetTransport) Send(ctx context.Context, req Request) (string, error) {
	if req.Method != http.MethodPost {
		return "", onion.NewError(onion.KindTransport, "clearnet transport only supports POST", nil)
	}
	return doSend(ctx, t.client, t.metrics, "clearnet", req)
}

func doSend(ctx context.Context, client *http.Client, m *metrics.PrometheusMetrics, strategy string, req Request) (string, error) {
	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, strings.NewReader(string(req.Body)))
	if err != nil {
		recordOutcome(m, strategy, start, "failure")
		return "", onion.NewError(onion.KindTransport, "failed to build request", err)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		recordOutcome(m, strategy, start, "failure")
		return "", onion.NewError(onion.KindTransport, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		recordOutcome(m, strategy, start, "failure")
		return "", onion.NewError(onion.KindTransport, "failed to read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		recordOutcome(m, strategy, start, "failure")
		return "", onion.NewError(onion.KindTransport, "non-success status: "+resp.Status, nil)
	}

	recordOutcome(m, strategy, start, "success")
	return string(body), nil
}

func recordOutcome(m *metrics.PrometheusMetrics, strategy string, start time.Time, outcome string) {
	if m == nil {
		return
	}
	m.RecordTransport(strategy, outcome, time.Since(start).Seconds())
}
