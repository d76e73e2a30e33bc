package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/msgmaxim/onionreq/internal/metrics"
)

func TestGuardTransportSendReturnsBody(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("encrypted-body"))
	}))
	defer srv.Close()

	tr := NewGuardTransport(metrics.NewPrometheusMetrics())
	body, err := tr.Send(context.Background(), Request{URL: srv.URL, Method: http.MethodPost, Body: []byte("payload")})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if body != "encrypted-body" {
		t.Errorf("body = %q, want %q", body, "encrypted-body")
	}
}

func TestGuardTransportSendPropagatesFailureStatus(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr := NewGuardTransport(metrics.NewPrometheusMetrics())
	if _, err := tr.Send(context.Background(), Request{URL: srv.URL, Method: http.MethodPost}); err == nil {
		t.Error("expected error on non-success status")
	}
}

func TestClearnetTransportRejectsNonPost(t *testing.T) {
	tr := NewClearnetTransport(metrics.NewPrometheusMetrics(), false)
	if _, err := tr.Send(context.Background(), Request{URL: "https://example.invalid", Method: http.MethodGet}); err == nil {
		t.Error("expected error for non-POST method")
	}
}

func TestClearnetTransportSendReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	tr := NewClearnetTransport(metrics.NewPrometheusMetrics(), false)
	body, err := tr.Send(context.Background(), Request{URL: srv.URL, Method: http.MethodPost, Body: []byte("x")})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if body != "ok" {
		t.Errorf("body = %q, want ok", body)
	}
}
