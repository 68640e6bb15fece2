// SPDX-FileCopyrightText: 2024 The scrate Authors
//
// SPDX-License-Identifier: MIT

package pki

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientFetchKeyPairSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/keypair" {
			t.Errorf("path = %q, want /v1/keypair", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(KeyPairResponse{Priv: "priv", Pub: "pub", KeyID: "k1"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	resp, err := c.FetchKeyPair(context.Background(), BaseConfig{Algo: "ecdsa"})
	if err != nil {
		t.Fatalf("FetchKeyPair error: %v", err)
	}
	if resp.Priv != "priv" || resp.Pub != "pub" || resp.KeyID != "k1" {
		t.Errorf("FetchKeyPair() = %+v, want priv/pub/k1", resp)
	}
}

func TestClientNoRetryOnHTTPErrorResponse(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRetry(5, time.Millisecond))
	_, err := c.FetchKeyPair(context.Background(), BaseConfig{})
	if err == nil {
		t.Fatal("expected an error for a 500 response, got nil")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (no retry on an HTTP response, even 5xx)", attempts)
	}
	pe, ok := err.(*Error)
	if !ok {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if pe.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", pe.StatusCode)
	}
}

func TestClientRetriesOnTransportFailure(t *testing.T) {
	// Point at a closed port: every attempt fails at the transport level,
	// so the client should retry retryTimes times before giving up.
	c := NewClient("http://127.0.0.1:1", WithRetry(2, time.Millisecond))
	_, err := c.FetchKeyPair(context.Background(), BaseConfig{})
	if err == nil {
		t.Fatal("expected a transport-failure error, got nil")
	}
}

func TestWithRetryClampsRange(t *testing.T) {
	c := NewClient("http://example.invalid", WithRetry(0, 0))
	if c.retryTimes != 1 {
		t.Errorf("retryTimes = %d, want clamped to 1", c.retryTimes)
	}
	if c.retryDelay != time.Millisecond {
		t.Errorf("retryDelay = %v, want clamped to 1ms", c.retryDelay)
	}

	c2 := NewClient("http://example.invalid", WithRetry(1000, time.Hour))
	if c2.retryTimes != 100 {
		t.Errorf("retryTimes = %d, want clamped to 100", c2.retryTimes)
	}
	if c2.retryDelay != 60*time.Second {
		t.Errorf("retryDelay = %v, want clamped to 60s", c2.retryDelay)
	}
}
