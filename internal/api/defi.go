package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/trustbridge/walletd/internal/lend"
	"github.com/trustbridge/walletd/internal/session"
	"github.com/trustbridge/walletd/internal/vault"
)

// DefiHandler serves the yield-vault and lending endpoints. Either service
// may be nil when its integration is not configured; routes are only
// registered for the ones that exist.
type DefiHandler struct {
	vault *vault.Service
	lend  *lend.Service
}

// NewDefiHandler creates a handler for the configured integrations.
func NewDefiHandler(vaultSvc *vault.Service, lendSvc *lend.Service) *DefiHandler {
	return &DefiHandler{vault: vaultSvc, lend: lendSvc}
}

// HasVault reports whether the vault integration is configured.
func (h *DefiHandler) HasVault() bool { return h.vault != nil }

// HasLend reports whether the lending integration is configured.
func (h *DefiHandler) HasLend() bool { return h.lend != nil }

// GetVaultPosition handles GET /api/v1/vault/position.
func (h *DefiHandler) GetVaultPosition(w http.ResponseWriter, r *http.Request) {
	position, err := h.vault.Position(r.Context())
	if err != nil {
		writeDefiError(w, "The yield vault", err)
		return
	}
	writeJSON(w, http.StatusOK, position)
}

// GetVaultAPY handles GET /api/v1/vault/apy.
func (h *DefiHandler) GetVaultAPY(w http.ResponseWriter, r *http.Request) {
	apy, err := h.vault.APY(r.Context())
	if err != nil {
		writeDefiError(w, "The yield vault", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"apy": apy})
}

// GetVaultActivity handles GET /api/v1/vault/activity.
func (h *DefiHandler) GetVaultActivity(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil {
			limit = n
		}
	}

	activities, err := h.vault.Activities(r.Context(), limit)
	if err != nil {
		writeDefiError(w, "The yield vault", err)
		return
	}
	if activities == nil {
		activities = []vault.Activity{}
	}
	writeJSON(w, http.StatusOK, activities)
}

// VaultDeposit handles POST /api/v1/vault/deposit.
func (h *DefiHandler) VaultDeposit(w http.ResponseWriter, r *http.Request) {
	h.vaultMovement(w, r, h.vault.Deposit)
}

// VaultWithdraw handles POST /api/v1/vault/withdraw.
func (h *DefiHandler) VaultWithdraw(w http.ResponseWriter, r *http.Request) {
	h.vaultMovement(w, r, h.vault.Withdraw)
}

func (h *DefiHandler) vaultMovement(w http.ResponseWriter, r *http.Request,
	move func(ctx context.Context, amount string) (vault.SendResponse, error)) {

	var req struct {
		Amount string `json:"amount"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := move(r.Context(), req.Amount)
	if err != nil {
		writeDefiError(w, "The yield vault", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetLendPool handles GET /api/v1/lend/pool.
func (h *DefiHandler) GetLendPool(w http.ResponseWriter, r *http.Request) {
	info, err := h.lend.PoolInfo(r.Context())
	if err != nil {
		writeDefiError(w, "The lending protocol", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// GetLendPositions handles GET /api/v1/lend/positions.
func (h *DefiHandler) GetLendPositions(w http.ResponseWriter, r *http.Request) {
	standing, err := h.lend.UserStanding(r.Context())
	if err != nil {
		writeDefiError(w, "The lending protocol", err)
		return
	}
	writeJSON(w, http.StatusOK, standing)
}

// LendSupply handles POST /api/v1/lend/supply.
func (h *DefiHandler) LendSupply(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Asset  string `json:"asset"`
		Amount string `json:"amount"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := h.lend.SupplyCollateral(r.Context(), req.Asset, req.Amount)
	if err != nil {
		writeDefiError(w, "The lending protocol", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeDefiError distinguishes session preconditions from true integration
// failures. The latter never crash the wallet session; they arrive as a
// scoped upstream error.
func writeDefiError(w http.ResponseWriter, service string, err error) {
	if errors.Is(err, session.ErrNoWallet) {
		writeError(w, http.StatusConflict, session.ErrNoWallet.Error())
		return
	}
	if errors.Is(err, vault.ErrInvalidAmount) || errors.Is(err, lend.ErrInvalidAmount) {
		writeError(w, http.StatusBadRequest, "Amount must be greater than zero")
		return
	}
	writeIntegrationError(w, service, err)
}
