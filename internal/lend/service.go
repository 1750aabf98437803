package lend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
)

// ErrNotLendingPool indicates the configured pool ID does not resolve to a
// valid pool on the lending protocol.
var ErrNotLendingPool = errors.New("not a lending pool")

// ErrInvalidAmount rejects non-positive or unparseable supply amounts before
// any network call.
var ErrInvalidAmount = errors.New("amount must be a positive number")

// assetScale converts display amounts to the protocol's 7-decimal base units.
var assetScale = decimal.NewFromInt(10_000_000)

// API is the lending-protocol surface the service orchestrates.
type API interface {
	PoolMeta(ctx context.Context, poolID string) (PoolMeta, error)
	PoolOracle(ctx context.Context, poolID string) (Oracle, error)
	UserPositions(ctx context.Context, poolID, userAddress string) (Positions, error)
	BuildSupply(ctx context.Context, poolID, from, assetAddress, amount string) (string, error)
	Submit(ctx context.Context, poolID, signedXDR string) (SubmitResponse, error)
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

// PoolInfo is the combined pool view served to callers.
type PoolInfo struct {
	Meta   PoolMeta `json:"meta"`
	Oracle Oracle   `json:"oracle"`
}

// Standing is a user's position with the net worth derived locally.
type Standing struct {
	Positions
	NetWorth float64 `json:"netWorth"`
}

// Service orchestrates lending-protocol calls: load pool state, load user
// positions, and run the supply-collateral flow (build remotely, sign
// locally, submit). All pool math stays on the protocol side.
type Service struct {
	api     API
	signer  Signer
	session Session
	poolID  string
}

// NewService creates a lending service bound to one pool.
func NewService(api API, signer Signer, session Session, poolID string) *Service {
	return &Service{
		api:     api,
		signer:  signer,
		session: session,
		poolID:  poolID,
	}
}

// PoolInfo loads the pool's metadata and oracle. A pool without a backstop or
// oracle is not a valid lending pool.
func (s *Service) PoolInfo(ctx context.Context) (PoolInfo, error) {
	meta, err := s.api.PoolMeta(ctx, s.poolID)
	if err != nil {
		return PoolInfo{}, fmt.Errorf("loading pool metadata: %w", err)
	}
	if meta.Backstop == "" || meta.Oracle == "" {
		return PoolInfo{}, fmt.Errorf("pool %s: %w", s.poolID, ErrNotLendingPool)
	}

	oracle, err := s.api.PoolOracle(ctx, s.poolID)
	if err != nil {
		return PoolInfo{}, fmt.Errorf("loading pool oracle: %w", err)
	}

	return PoolInfo{Meta: meta, Oracle: oracle}, nil
}

// UserStanding loads the connected wallet's positions in the pool.
func (s *Service) UserStanding(ctx context.Context) (Standing, error) {
	user, err := s.session.PublicKey()
	if err != nil {
		return Standing{}, err
	}

	positions, err := s.api.UserPositions(ctx, s.poolID, user)
	if err != nil {
		return Standing{}, fmt.Errorf("loading user positions: %w", err)
	}

	return Standing{
		Positions: positions,
		NetWorth:  positions.TotalSupplied - positions.TotalBorrowed,
	}, nil
}

// SupplyCollateral supplies the given display-unit amount of an asset as
// collateral. The envelope is built remotely and signed locally.
func (s *Service) SupplyCollateral(ctx context.Context, assetAddress, amount string) (SubmitResponse, error) {
	amt, err := decimal.NewFromString(amount)
	if err != nil || !amt.IsPositive() {
		return SubmitResponse{}, fmt.Errorf("supplying collateral: %w", ErrInvalidAmount)
	}
	baseUnits := amt.Mul(assetScale).Truncate(0).String()

	from, err := s.session.PublicKey()
	if err != nil {
		return SubmitResponse{}, err
	}
	secret, err := s.session.SigningSecret()
	if err != nil {
		return SubmitResponse{}, err
	}

	unsigned, err := s.api.BuildSupply(ctx, s.poolID, from, assetAddress, baseUnits)
	if err != nil {
		return SubmitResponse{}, fmt.Errorf("building supply: %w", err)
	}

	signed, err := s.signer.SignEnvelope(secret, unsigned)
	if err != nil {
		return SubmitResponse{}, fmt.Errorf("signing supply: %w", err)
	}

	resp, err := s.api.Submit(ctx, s.poolID, signed)
	if err != nil {
		return SubmitResponse{}, fmt.Errorf("submitting supply: %w", err)
	}

	slog.Info("lend: collateral supplied", "asset", assetAddress, "amount", amount, "hash", resp.Hash)
	return resp, nil
}
