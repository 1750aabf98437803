package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestFaucetFundSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("addr"); got != "GTEST" {
			t.Errorf("addr = %q, want GTEST", got)
		}
		w.Write([]byte(`{"hash":"abc"}`))
	}))
	defer server.Close()

	f := NewFaucetClient(server.URL, "", time.Second)
	ok, err := f.Fund(context.Background(), "GTEST")
	if err != nil || !ok {
		t.Errorf("Fund = (%v, %v), want (true, nil)", ok, err)
	}
}

func TestFaucetAlreadyFundedIsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"account already funded to starting balance"}`))
	}))
	defer server.Close()

	f := NewFaucetClient(server.URL, "", time.Second)
	ok, err := f.Fund(context.Background(), "GTEST")
	if err != nil || !ok {
		t.Errorf("Fund = (%v, %v), want (true, nil)", ok, err)
	}
}

func TestFaucetBadRequestWithoutMarkerFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"invalid address"}`))
	}))
	defer server.Close()

	f := NewFaucetClient(server.URL, "", time.Second)
	ok, err := f.Fund(context.Background(), "GBAD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("Fund = true, want false")
	}
}

func TestFaucetFallsBackOnTransportFailure(t *testing.T) {
	var fallbackCalls atomic.Int32
	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fallbackCalls.Add(1)
		w.Write([]byte(`{"hash":"abc"}`))
	}))
	defer fallback.Close()

	// Primary points at a closed port.
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()

	f := NewFaucetClient(dead.URL, fallback.URL, time.Second)
	ok, err := f.Fund(context.Background(), "GTEST")
	if err != nil || !ok {
		t.Errorf("Fund = (%v, %v), want (true, nil)", ok, err)
	}
	if fallbackCalls.Load() != 1 {
		t.Errorf("fallback calls = %d, want 1", fallbackCalls.Load())
	}
}
