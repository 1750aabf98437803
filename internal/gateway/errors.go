package gateway

import (
	"context"
	"errors"
	"log/slog"

	"github.com/trustbridge/walletd/internal/horizon"
)

// FailureKind classifies every failure the gateway can surface.
type FailureKind string

const (
	// FailureValidation is a locally detected malformed input. Never retried.
	FailureValidation FailureKind = "validation"
	// FailureNotFound is a ledger 404 for an operation that requires the
	// resource to exist. Balance and history reads fold 404 into empty results
	// before this kind is ever produced.
	FailureNotFound FailureKind = "not_found"
	// FailureTransport is a timeout, abort or connection error. Retryable.
	FailureTransport FailureKind = "transport"
	// FailureRejection means the ledger accepted the request but rejected the
	// transaction with a structured reason code.
	FailureRejection FailureKind = "rejection"
)

// Error is the gateway's normalized failure type. Message is safe to show to
// an end user; the raw cause is only logged.
type Error struct {
	Kind    FailureKind
	Message string
	cause   error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.cause }

// Retryable reports whether the caller may usefully retry the operation.
func (e *Error) Retryable() bool { return e.Kind == FailureTransport }

func validationError(msg string) *Error {
	return &Error{Kind: FailureValidation, Message: msg}
}

// rejectionMessages maps Horizon result codes to the fixed set of
// human-readable messages. Unmapped codes fall back to a generic message.
var rejectionMessages = map[string]string{
	"tx_insufficient_balance": "Insufficient balance to complete the transaction",
	"tx_bad_seq":              "Transaction sequence error. Please try again",
	"op_no_destination":       "Destination account does not exist",
	"op_underfunded":          "Insufficient funds for this transaction",
	"op_over_source_max":      "Swap amount exceeds maximum allowed",
	"op_under_dest_min":       "Swap would return less than the minimum specified",
	"op_too_few_offers":       "Not enough liquidity available for this swap",
	"op_line_full":            "Trustline limit would be exceeded",
}

// normalize maps raw transport and Horizon errors into the closed taxonomy.
// The rest of the system consumes only *Error values, never raw failures.
func normalize(err error, fallback string) *Error {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr
	}

	var herr *horizon.Error
	if errors.As(err, &herr) {
		if herr.StatusCode == 404 {
			return &Error{Kind: FailureNotFound, Message: fallback, cause: err}
		}
		if codes := herr.ResultCodes; codes != nil {
			if msg, ok := rejectionMessages[codes.Transaction]; ok {
				return &Error{Kind: FailureRejection, Message: msg, cause: err}
			}
			for _, op := range codes.Operations {
				if msg, ok := rejectionMessages[op]; ok {
					return &Error{Kind: FailureRejection, Message: msg, cause: err}
				}
			}
			// Raw codes are logged, never shown to the user.
			slog.Warn("unmapped ledger rejection", "transaction", codes.Transaction, "operations", codes.Operations)
			return &Error{Kind: FailureRejection, Message: "Transaction failed", cause: err}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Kind: FailureTransport, Message: fallback + ". Please try again", cause: err}
	}

	return &Error{Kind: FailureTransport, Message: fallback + ". Please try again", cause: err}
}
