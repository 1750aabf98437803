package horizon

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchAccountTransactions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Path; got != "/accounts/GTEST/transactions" {
			t.Errorf("path = %q", got)
		}
		q := r.URL.Query()
		if q.Get("order") != "desc" || q.Get("limit") != "2" || q.Get("include_failed") != "true" {
			t.Errorf("unexpected query: %v", q)
		}
		if q.Get("cursor") != "12345" {
			t.Errorf("cursor = %q, want 12345", q.Get("cursor"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"_embedded":{"records":[
			{"id":"1","hash":"aaa","created_at":"2026-01-02T03:04:05Z","source_account":"GTEST","fee_charged":"100","operation_count":1,"successful":true,"paging_token":"t1"},
			{"id":"2","hash":"bbb","created_at":"2026-01-01T00:00:00Z","source_account":"GOTHER","fee_charged":"200","operation_count":2,"memo":"hi","successful":false,"paging_token":"t2"}
		]}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 1, 10*time.Millisecond)
	txs, err := client.FetchAccountTransactions(context.Background(), "GTEST", 2, "12345")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("len(txs) = %d, want 2", len(txs))
	}
	if txs[0].Hash != "aaa" || txs[0].PagingToken != "t1" {
		t.Errorf("first record = %+v", txs[0])
	}
	if txs[1].Successful {
		t.Error("second record should be failed")
	}
	if txs[1].Memo != "hi" {
		t.Errorf("memo = %q, want hi", txs[1].Memo)
	}
}

func TestFetchTransactionOperations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Path; got != "/transactions/abc/operations" {
			t.Errorf("path = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"_embedded":{"records":[
			{"id":"10","type":"payment","from":"GA","to":"GB","amount":"10.5","asset_type":"native"},
			{"id":"11","type":"change_trust","asset_code":"USDC","limit":"1000000"}
		]}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 1, 10*time.Millisecond)
	ops, err := client.FetchTransactionOperations(context.Background(), "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("len(ops) = %d, want 2", len(ops))
	}
	if ops[0].Type != "payment" || ops[0].Amount != "10.5" {
		t.Errorf("first op = %+v", ops[0])
	}
	if ops[1].Limit != "1000000" {
		t.Errorf("trust limit = %q", ops[1].Limit)
	}
}

func TestSubmitTransactionRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parsing form: %v", err)
		}
		if r.PostForm.Get("tx") != "AAAA" {
			t.Errorf("tx = %q, want AAAA", r.PostForm.Get("tx"))
		}
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"tx failed","extras":{"result_codes":{"transaction":"tx_bad_seq"}}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 1, 10*time.Millisecond)
	_, err := client.SubmitTransaction(context.Background(), "AAAA")
	if err == nil {
		t.Fatal("expected rejection error, got nil")
	}

	var herr *Error
	if !errors.As(err, &herr) {
		t.Fatalf("error %v is not *horizon.Error", err)
	}
	if herr.ResultCodes == nil || herr.ResultCodes.Transaction != "tx_bad_seq" {
		t.Errorf("result codes = %+v", herr.ResultCodes)
	}
}
