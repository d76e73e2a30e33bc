package driver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/msgmaxim/onionreq/internal/logging"
	"github.com/msgmaxim/onionreq/internal/metrics"
)

func TestHandleDataServesAggregatedBuckets(t *testing.T) {
	agg := NewAggregator()
	agg.Push(Result{Time: time.Now(), Success: true})
	agg.Aggregate(time.Now())

	logger := logging.NewLogger(logging.LogConfig{Level: "info", Format: "json", Output: new(bytes.Buffer)})
	srv := NewServer(agg, nil, metrics.NewHealthChecker("test"), logger, metrics.NewPrometheusMetrics(), ServerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/data", nil)
	rec := httptest.NewRecorder()
	srv.handleData(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected permissive CORS header on /data")
	}

	var buckets []AggregatedBucket
	if err := json.Unmarshal(rec.Body.Bytes(), &buckets); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if len(buckets) != 1 {
		t.Fatalf("len(buckets) = %d, want 1", len(buckets))
	}
	if buckets[0].Total != 1 {
		t.Errorf("buckets[0].Total = %d, want 1", buckets[0].Total)
	}
}
