package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/trustbridge/walletd/internal/domain"
)

// ErrInvalidAmount rejects non-positive or unparseable movement amounts
// before any network call.
var ErrInvalidAmount = errors.New("amount must be a positive number")

// API is the yield-aggregator surface the service orchestrates.
type API interface {
	RequestDeposit(ctx context.Context, vaultAddress, from, amount string) (string, error)
	RequestWithdraw(ctx context.Context, vaultAddress, from, amount string) (string, error)
	Send(ctx context.Context, vaultAddress, signedXDR string) (SendResponse, error)
	Balance(ctx context.Context, vaultAddress, from string) (string, error)
	APY(ctx context.Context, vaultAddress string) (float64, error)
}

// Signer signs a transaction envelope with the wallet's key.
type Signer interface {
	SignEnvelope(secret, envelopeXDR string) (string, error)
}

// Session supplies the connected wallet's credentials.
type Session interface {
	PublicKey() (string, error)
	SigningSecret() (string, error)
}

// Service orchestrates the deposit/withdraw exchange: request an unsigned
// envelope from the remote API, sign it locally so the key never leaves the
// process, send it back, and record the movement in the local ledger.
type Service struct {
	api     API
	repo    Repository
	signer  Signer
	session Session
	vault   string
}

// NewService creates a vault service bound to one vault address.
func NewService(api API, repo Repository, signer Signer, session Session, vaultAddress string) *Service {
	return &Service{
		api:     api,
		repo:    repo,
		signer:  signer,
		session: session,
		vault:   vaultAddress,
	}
}

// Deposit moves funds from the wallet into the vault and records the
// movement. Returns the submitted transaction's hash when the API reports
// one.
func (s *Service) Deposit(ctx context.Context, amount string) (SendResponse, error) {
	return s.execute(ctx, ActionDeposit, amount, s.api.RequestDeposit)
}

// Withdraw moves funds from the vault back to the wallet.
func (s *Service) Withdraw(ctx context.Context, amount string) (SendResponse, error) {
	return s.execute(ctx, ActionWithdraw, amount, s.api.RequestWithdraw)
}

func (s *Service) execute(ctx context.Context, action, amount string,
	request func(ctx context.Context, vaultAddress, from, amount string) (string, error)) (SendResponse, error) {

	amt, err := decimal.NewFromString(amount)
	if err != nil || !amt.IsPositive() {
		return SendResponse{}, fmt.Errorf("vault %s: %w", action, ErrInvalidAmount)
	}

	from, err := s.session.PublicKey()
	if err != nil {
		return SendResponse{}, err
	}
	secret, err := s.session.SigningSecret()
	if err != nil {
		return SendResponse{}, err
	}

	unsigned, err := request(ctx, s.vault, from, amount)
	if err != nil {
		return SendResponse{}, fmt.Errorf("building vault %s: %w", action, err)
	}

	signed, err := s.signer.SignEnvelope(secret, unsigned)
	if err != nil {
		return SendResponse{}, fmt.Errorf("signing vault %s: %w", action, err)
	}

	resp, err := s.api.Send(ctx, s.vault, signed)
	if err != nil {
		return SendResponse{}, fmt.Errorf("sending vault %s: %w", action, err)
	}

	// The movement already settled remotely; a bookkeeping failure must not
	// fail the operation.
	if err := s.repo.RecordActivity(ctx, from, action, amount, resp.Hash); err != nil {
		slog.Warn("vault: recording activity failed", "action", action, "error", err)
	}

	slog.Info("vault: movement settled", "action", action, "amount", amount, "hash", resp.Hash)
	return resp, nil
}

// Position returns the connected wallet's vault holding with gains derived
// by the strategy of record.
func (s *Service) Position(ctx context.Context) (Position, error) {
	from, err := s.session.PublicKey()
	if err != nil {
		return Position{}, err
	}

	balance, err := s.remoteBalance(ctx, from)
	if err != nil {
		return Position{}, err
	}

	totals, err := s.repo.Totals(ctx, from)
	if err != nil {
		return Position{}, err
	}

	return ResolvePosition(balance, totals), nil
}

// APY returns the vault's current yield.
func (s *Service) APY(ctx context.Context) (float64, error) {
	apy, err := s.api.APY(ctx, s.vault)
	if err != nil {
		return 0, fmt.Errorf("loading vault APY: %w", err)
	}
	return apy, nil
}

// Activities returns the connected wallet's recent vault movements.
func (s *Service) Activities(ctx context.Context, limit int) ([]Activity, error) {
	from, err := s.session.PublicKey()
	if err != nil {
		return nil, err
	}
	return s.repo.Activities(ctx, from, limit)
}

// Sync compares the remote balance against the local ledger and logs the
// drift. It changes nothing; the remote figure stays the value of record.
func (s *Service) Sync(ctx context.Context) error {
	from, err := s.session.PublicKey()
	if err != nil {
		// No wallet connected, nothing to reconcile.
		return nil
	}

	balance, err := s.remoteBalance(ctx, from)
	if err != nil {
		return err
	}
	totals, err := s.repo.Totals(ctx, from)
	if err != nil {
		return err
	}

	net := netDeposited(totals)
	drift := balance.Sub(net)
	if net.IsPositive() && !drift.IsZero() {
		slog.Info("vault: local ledger drift",
			"remoteBalance", domain.FormatAmount(balance),
			"netDeposited", domain.FormatAmount(net),
			"drift", domain.FormatAmount(drift))
	}
	return nil
}

// remoteBalance reads the vault balance, reported by the API in base units,
// and converts it to display units.
func (s *Service) remoteBalance(ctx context.Context, from string) (decimal.Decimal, error) {
	raw, err := s.api.Balance(ctx, s.vault, from)
	if err != nil {
		return decimal.Zero, fmt.Errorf("loading vault balance: %w", err)
	}
	return domain.SafeParse(domain.StroopsToLumens(raw)), nil
}
