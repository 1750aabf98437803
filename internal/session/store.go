package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/strkey"

	"github.com/trustbridge/walletd/internal/domain"
	"github.com/trustbridge/walletd/internal/gateway"
	"github.com/trustbridge/walletd/internal/worker"
)

var (
	// ErrNoWallet is returned by operations that require a connected wallet.
	ErrNoWallet = errors.New("no wallet connected")

	// ErrInvalidKey indicates a secret that does not parse as a valid keypair.
	ErrInvalidKey = errors.New("invalid secret key format")
)

// maxSwapFeeReserve is the native-asset buffer withheld from the max swap
// amount so the account can still pay network fees.
var maxSwapFeeReserve = decimal.NewFromInt(1)

// Ledger is the subset of the ledger gateway the session store drives.
type Ledger interface {
	LoadBalances(ctx context.Context, address string) ([]domain.BalanceEntry, error)
	SubmitPayment(ctx context.Context, secret, destination, amount, memo string) (string, error)
	SubmitSwap(ctx context.Context, secret, sendAmount, minReceiveAmount string) (gateway.SwapResult, error)
	FundViaFaucet(ctx context.Context, address string) (bool, error)
}

// Status is a read-only snapshot of the session. The secret key is never part
// of it.
type Status struct {
	Connected bool                  `json:"connected"`
	PublicKey string                `json:"publicKey,omitempty"`
	IsPasskey bool                  `json:"isPasskey,omitempty"`
	Balances  []domain.BalanceEntry `json:"balances"`
	LastError string                `json:"lastError,omitempty"`
}

// SendResult is the discriminated outcome of a payment. Exactly one of Hash
// and Error is meaningful.
type SendResult struct {
	Success bool   `json:"success"`
	Hash    string `json:"transactionHash,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SwapOutcome is the discriminated outcome of an asset swap.
type SwapOutcome struct {
	Success        bool   `json:"success"`
	Hash           string `json:"transactionHash,omitempty"`
	ReceivedAmount string `json:"receivedAmount,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Store owns the wallet session: who is connected, their balances, the
// persisted credential record and the periodic balance refresh. All mutation
// goes through its methods; balance refreshes triggered by the timer and by
// callers may interleave, last write wins.
type Store struct {
	ledger Ledger
	repo   Repository

	refreshInterval time.Duration
	settleDelay     time.Duration

	mu        sync.Mutex
	connected bool
	publicKey string
	secretKey string
	isPasskey bool
	balances  []domain.BalanceEntry
	lastError string

	timerMu sync.Mutex
	refresh *worker.Handle
}

// NewStore creates a disconnected session store.
func NewStore(ledger Ledger, repo Repository, refreshInterval, settleDelay time.Duration) *Store {
	return &Store{
		ledger:          ledger,
		repo:            repo,
		refreshInterval: refreshInterval,
		settleDelay:     settleDelay,
	}
}

// Restore rehydrates the session from the persisted record, if one exists.
// Called once at startup; a missing record leaves the store disconnected.
func (s *Store) Restore(ctx context.Context) error {
	rec, err := s.repo.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("restoring wallet session: %w", err)
	}

	s.setSession(rec)
	s.StartAutoRefresh()
	slog.Info("session restored", "publicKey", rec.PublicKey, "passkey", rec.IsPasskey)
	return nil
}

// CreateWallet generates a fresh keypair, persists it and connects the
// session.
func (s *Store) CreateWallet(ctx context.Context) (Status, error) {
	kp, err := keypair.Random()
	if err != nil {
		s.setLastError("Failed to generate a wallet key")
		return s.Status(), fmt.Errorf("generating keypair: %w", err)
	}
	return s.connect(ctx, WalletRecord{PublicKey: kp.Address(), SecretKey: kp.Seed()})
}

// ImportWallet derives the public key from a user-supplied secret and
// connects. An unparseable secret leaves any prior session untouched.
func (s *Store) ImportWallet(ctx context.Context, secret string) (Status, error) {
	kp, err := keypair.ParseFull(secret)
	if err != nil {
		s.setLastError("Invalid secret key format")
		return s.Status(), ErrInvalidKey
	}
	return s.connect(ctx, WalletRecord{PublicKey: kp.Address(), SecretKey: secret})
}

// ConnectPasskeyWallet connects with a credential obtained from an external
// authenticator exchange. The secret must match the claimed address.
func (s *Store) ConnectPasskeyWallet(ctx context.Context, publicKey, secret string) (Status, error) {
	kp, err := keypair.ParseFull(secret)
	if err != nil || kp.Address() != publicKey {
		s.setLastError("Credential does not match the provided address")
		return s.Status(), ErrInvalidKey
	}
	return s.connect(ctx, WalletRecord{PublicKey: publicKey, SecretKey: secret, IsPasskey: true})
}

// Disconnect clears the in-memory session and the persisted record and stops
// the refresh timer. Idempotent.
func (s *Store) Disconnect(ctx context.Context) error {
	s.StopAutoRefresh()

	s.mu.Lock()
	was := s.connected
	s.connected = false
	s.publicKey = ""
	s.secretKey = ""
	s.isPasskey = false
	s.balances = nil
	s.lastError = ""
	s.mu.Unlock()

	if err := s.repo.Delete(ctx); err != nil {
		return fmt.Errorf("clearing wallet record: %w", err)
	}
	if was {
		slog.Info("session disconnected")
	}
	return nil
}

// RefreshBalance replaces the balance list with a fresh read. On failure the
// previous balances are preserved and lastError records a retryable message.
func (s *Store) RefreshBalance(ctx context.Context) error {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return ErrNoWallet
	}
	address := s.publicKey
	s.mu.Unlock()

	balances, err := s.ledger.LoadBalances(ctx, address)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastError = userMessage(err)
		return fmt.Errorf("refreshing balances: %w", err)
	}
	s.balances = balances
	s.lastError = ""
	return nil
}

// FundAccount requests test-network funding for the connected wallet. The
// funding effect is not visible synchronously, so a delayed refresh is
// scheduled instead of an immediate one.
func (s *Store) FundAccount(ctx context.Context) error {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return ErrNoWallet
	}
	address := s.publicKey
	s.mu.Unlock()

	funded, err := s.ledger.FundViaFaucet(ctx, address)
	if err != nil {
		s.setLastError(userMessage(err))
		return fmt.Errorf("funding account: %w", err)
	}
	if !funded {
		s.setLastError("Funding request was declined")
		return errors.New("faucet declined funding request")
	}

	s.scheduleSettledRefresh()
	return nil
}

// SendMoney validates the destination and amount, then submits a payment.
// It reports failure through the result, never by panicking or leaking raw
// transport errors.
func (s *Store) SendMoney(ctx context.Context, destination, amount, memo string) SendResult {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return SendResult{Error: ErrNoWallet.Error()}
	}
	secret := s.secretKey
	s.mu.Unlock()

	if !strkey.IsValidEd25519PublicKey(destination) {
		return SendResult{Error: "Invalid destination address"}
	}
	amt, err := decimal.NewFromString(amount)
	if err != nil || !amt.IsPositive() {
		return SendResult{Error: "Amount must be greater than zero"}
	}

	hash, err := s.ledger.SubmitPayment(ctx, secret, destination, amount, memo)
	if err != nil {
		return SendResult{Error: userMessage(err)}
	}

	s.scheduleSettledRefresh()
	return SendResult{Success: true, Hash: hash}
}

// SwapAssetPair submits a path-payment swap of the session's native balance.
func (s *Store) SwapAssetPair(ctx context.Context, sendAmount, minReceiveAmount string) SwapOutcome {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return SwapOutcome{Error: ErrNoWallet.Error()}
	}
	secret := s.secretKey
	s.mu.Unlock()

	amt, err := decimal.NewFromString(sendAmount)
	if err != nil || !amt.IsPositive() {
		return SwapOutcome{Error: "Amount must be greater than zero"}
	}

	result, err := s.ledger.SubmitSwap(ctx, secret, sendAmount, minReceiveAmount)
	if err != nil {
		return SwapOutcome{Error: userMessage(err)}
	}

	s.scheduleSettledRefresh()
	return SwapOutcome{Success: true, Hash: result.Hash, ReceivedAmount: result.ReceivedAmount}
}

// MaxSwapAmount returns the native balance minus the fee reserve, floored at
// zero.
func (s *Store) MaxSwapAmount() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.balances {
		if b.AssetType == "native" {
			available := domain.SafeParse(b.Amount).Sub(maxSwapFeeReserve)
			if available.IsNegative() {
				return "0"
			}
			return domain.FormatAmount(available)
		}
	}
	return "0"
}

// StartAutoRefresh starts the periodic balance refresh, cancelling and
// replacing any existing timer. At most one timer is active per session.
func (s *Store) StartAutoRefresh() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	s.refresh.Stop()
	s.refresh = worker.Schedule("balance-refresh", s.refreshInterval, func(ctx context.Context) error {
		err := s.RefreshBalance(ctx)
		if errors.Is(err, ErrNoWallet) {
			return nil
		}
		return err
	})
}

// StopAutoRefresh cancels the refresh timer. Safe when no timer exists.
func (s *Store) StopAutoRefresh() {
	s.timerMu.Lock()
	h := s.refresh
	s.refresh = nil
	s.timerMu.Unlock()

	h.Stop()
}

// Status returns a snapshot of the session without the secret key.
func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	balances := make([]domain.BalanceEntry, len(s.balances))
	copy(balances, s.balances)
	return Status{
		Connected: s.connected,
		PublicKey: s.publicKey,
		IsPasskey: s.isPasskey,
		Balances:  balances,
		LastError: s.lastError,
	}
}

// SigningSecret hands the session's secret to trusted in-process callers that
// sign on the wallet's behalf. Callers must not log or persist it.
func (s *Store) SigningSecret() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return "", ErrNoWallet
	}
	return s.secretKey, nil
}

// PublicKey returns the connected wallet's address.
func (s *Store) PublicKey() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return "", ErrNoWallet
	}
	return s.publicKey, nil
}

func (s *Store) connect(ctx context.Context, rec WalletRecord) (Status, error) {
	if err := s.repo.Save(ctx, rec); err != nil {
		s.setLastError("Failed to persist the wallet session")
		return s.Status(), fmt.Errorf("persisting wallet record: %w", err)
	}

	s.setSession(rec)
	s.StartAutoRefresh()
	slog.Info("session connected", "publicKey", rec.PublicKey, "passkey", rec.IsPasskey)
	return s.Status(), nil
}

func (s *Store) setSession(rec WalletRecord) {
	s.mu.Lock()
	s.connected = true
	s.publicKey = rec.PublicKey
	s.secretKey = rec.SecretKey
	s.isPasskey = rec.IsPasskey
	s.balances = nil
	s.lastError = ""
	s.mu.Unlock()
}

func (s *Store) setLastError(msg string) {
	s.mu.Lock()
	s.lastError = msg
	s.mu.Unlock()
}

// scheduleSettledRefresh refreshes balances after the settle delay, giving
// the network time to make the just-submitted change visible.
func (s *Store) scheduleSettledRefresh() {
	time.AfterFunc(s.settleDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.RefreshBalance(ctx); err != nil && !errors.Is(err, ErrNoWallet) {
			slog.Warn("post-transaction refresh failed", "error", err)
		}
	})
}

// userMessage extracts the normalized user-facing message from a gateway
// error, with a generic retryable fallback for anything else.
func userMessage(err error) string {
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		return gwErr.Message
	}
	return "Something went wrong. Please try again"
}
