package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/trustbridge/walletd/internal/domain"
	"github.com/trustbridge/walletd/internal/gateway"
	"github.com/trustbridge/walletd/internal/session"
)

// fallbackXLMUSDCPrice is the estimate served when the order book has no
// liquidity to derive a price from. Responses carrying it are marked as
// estimated so callers can tell it apart from a live quote.
const fallbackXLMUSDCPrice = "0.120000"

// Market quotes an asset pair from the order book.
type Market interface {
	LoadMarketPrice(ctx context.Context, base, quote domain.AssetInfo) (gateway.MarketPrice, error)
}

// Handler provides the wallet, payment, swap and market endpoints.
type Handler struct {
	store  *session.Store
	market Market
}

// NewHandler creates a new wallet API handler.
func NewHandler(store *session.Store, market Market) *Handler {
	return &Handler{store: store, market: market}
}

// GetWallet handles GET /api/v1/wallet.
func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Status())
}

// CreateWallet handles POST /api/v1/wallet.
func (h *Handler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	status, err := h.store.CreateWallet(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, status)
}

// ImportWallet handles POST /api/v1/wallet/import.
func (h *Handler) ImportWallet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Secret string `json:"secret"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	status, err := h.store.ImportWallet(r.Context(), req.Secret)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// ConnectPasskey handles POST /api/v1/wallet/passkey.
func (h *Handler) ConnectPasskey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PublicKey string `json:"publicKey"`
		Secret    string `json:"secret"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	status, err := h.store.ConnectPasskeyWallet(r.Context(), req.PublicKey, req.Secret)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// Disconnect handles DELETE /api/v1/wallet.
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Disconnect(r.Context()); err != nil {
		writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RefreshBalance handles POST /api/v1/wallet/refresh.
func (h *Handler) RefreshBalance(w http.ResponseWriter, r *http.Request) {
	if err := h.store.RefreshBalance(r.Context()); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.store.Status())
}

// FundWallet handles POST /api/v1/wallet/fund.
func (h *Handler) FundWallet(w http.ResponseWriter, r *http.Request) {
	if err := h.store.FundAccount(r.Context()); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"funded": true})
}

// SendPayment handles POST /api/v1/payments. The result is discriminated:
// validation and submission failures arrive with success=false rather than a
// transport-level error status.
func (h *Handler) SendPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Destination string `json:"destination"`
		Amount      string `json:"amount"`
		Memo        string `json:"memo"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	result := h.store.SendMoney(r.Context(), req.Destination, req.Amount, req.Memo)
	writeJSON(w, http.StatusOK, result)
}

// SubmitSwap handles POST /api/v1/swaps.
func (h *Handler) SubmitSwap(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SendAmount       string `json:"sendAmount"`
		MinReceiveAmount string `json:"minReceiveAmount"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	outcome := h.store.SwapAssetPair(r.Context(), req.SendAmount, req.MinReceiveAmount)
	writeJSON(w, http.StatusOK, outcome)
}

// MaxSwapAmount handles GET /api/v1/swaps/max.
func (h *Handler) MaxSwapAmount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"maxAmount": h.store.MaxSwapAmount()})
}

type marketPriceResponse struct {
	Price         string `json:"price"`
	SpreadPercent string `json:"spreadPercent"`
	Estimated     bool   `json:"estimated"`
}

// GetMarketPrice handles GET /api/v1/market-price. When the order book has no
// liquidity the response falls back to a fixed estimate, clearly marked.
func (h *Handler) GetMarketPrice(w http.ResponseWriter, r *http.Request) {
	base, ok := assetFromSymbol(r.URL.Query().Get("base"), domain.XLMAsset())
	if !ok {
		writeError(w, http.StatusBadRequest, "unsupported base asset")
		return
	}
	quote, ok := assetFromSymbol(r.URL.Query().Get("quote"), domain.USDCAsset())
	if !ok {
		writeError(w, http.StatusBadRequest, "unsupported quote asset")
		return
	}

	price, err := h.market.LoadMarketPrice(r.Context(), base, quote)
	if err != nil {
		if errors.Is(err, gateway.ErrNoMarketData) {
			slog.Warn("market price unavailable, serving estimate",
				"base", base.Symbol(), "quote", quote.Symbol())
			writeJSON(w, http.StatusOK, marketPriceResponse{
				Price:         fallbackXLMUSDCPrice,
				SpreadPercent: "0.00",
				Estimated:     true,
			})
			return
		}
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, marketPriceResponse{
		Price:         price.Price,
		SpreadPercent: price.SpreadPercent,
	})
}

func assetFromSymbol(symbol string, fallback domain.AssetInfo) (domain.AssetInfo, bool) {
	switch strings.ToUpper(strings.TrimSpace(symbol)) {
	case "":
		return fallback, true
	case "XLM":
		return domain.XLMAsset(), true
	case "USDC":
		return domain.USDCAsset(), true
	default:
		return domain.AssetInfo{}, false
	}
}
