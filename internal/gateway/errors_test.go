package gateway

import (
	"errors"
	"fmt"
	"testing"

	"github.com/trustbridge/walletd/internal/horizon"
)

func TestNormalizeRejectionMessages(t *testing.T) {
	tests := []struct {
		name    string
		txCode  string
		opCodes []string
		want    string
	}{
		{"insufficient balance", "tx_insufficient_balance", nil, "Insufficient balance to complete the transaction"},
		{"bad sequence", "tx_bad_seq", nil, "Transaction sequence error. Please try again"},
		{"no destination", "tx_failed", []string{"op_no_destination"}, "Destination account does not exist"},
		{"underfunded", "tx_failed", []string{"op_underfunded"}, "Insufficient funds for this transaction"},
		{"under dest min", "tx_failed", []string{"op_under_dest_min"}, "Swap would return less than the minimum specified"},
		{"too few offers", "tx_failed", []string{"op_too_few_offers"}, "Not enough liquidity available for this swap"},
		{"line full", "tx_failed", []string{"op_line_full"}, "Trustline limit would be exceeded"},
		{"unmapped code", "tx_something_new", nil, "Transaction failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := &horizon.Error{
				StatusCode:  400,
				Detail:      "transaction failed",
				ResultCodes: &horizon.ResultCodes{Transaction: tt.txCode, Operations: tt.opCodes},
			}
			got := normalize(fmt.Errorf("submitting: %w", raw), "Failed to submit transaction")
			if got.Kind != FailureRejection {
				t.Errorf("Kind = %q, want rejection", got.Kind)
			}
			if got.Message != tt.want {
				t.Errorf("Message = %q, want %q", got.Message, tt.want)
			}
			if got.Retryable() {
				t.Error("rejections must not be retryable")
			}
		})
	}
}

func TestNormalizeTransport(t *testing.T) {
	got := normalize(errors.New("dial tcp: connection refused"), "Failed to load balances")
	if got.Kind != FailureTransport {
		t.Errorf("Kind = %q, want transport", got.Kind)
	}
	if !got.Retryable() {
		t.Error("transport errors must be retryable")
	}
}

func TestNormalizeNotFound(t *testing.T) {
	raw := &horizon.Error{StatusCode: 404, Detail: "not found"}
	got := normalize(fmt.Errorf("fetching: %w", raw), "Account not found")
	if got.Kind != FailureNotFound {
		t.Errorf("Kind = %q, want not_found", got.Kind)
	}
}

func TestNormalizePreservesGatewayError(t *testing.T) {
	original := validationError("Invalid amount")
	got := normalize(original, "fallback")
	if got != original {
		t.Errorf("normalize rewrapped an already-typed error: %v", got)
	}
}
