package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"
)

// NewServer creates an HTTP server with all routes configured. Mutating
// endpoints require the bearer key when one is set; read endpoints stay
// open. The defi handler may be nil when neither integration is configured.
func NewServer(port string, handler *Handler, hist *HistoryHandler, defi *DefiHandler, apiKey string) *http.Server {
	mux := http.NewServeMux()

	protect := func(h http.HandlerFunc) http.Handler {
		if apiKey == "" {
			return h
		}
		return requireAuth(apiKey, h)
	}

	mux.HandleFunc("GET /api/v1/wallet", handler.GetWallet)
	mux.Handle("POST /api/v1/wallet", protect(handler.CreateWallet))
	mux.Handle("POST /api/v1/wallet/import", protect(handler.ImportWallet))
	mux.Handle("POST /api/v1/wallet/passkey", protect(handler.ConnectPasskey))
	mux.Handle("DELETE /api/v1/wallet", protect(handler.Disconnect))
	mux.Handle("POST /api/v1/wallet/refresh", protect(handler.RefreshBalance))
	mux.Handle("POST /api/v1/wallet/fund", protect(handler.FundWallet))

	mux.Handle("POST /api/v1/payments", protect(handler.SendPayment))
	mux.Handle("POST /api/v1/swaps", protect(handler.SubmitSwap))
	mux.HandleFunc("GET /api/v1/swaps/max", handler.MaxSwapAmount)
	mux.HandleFunc("GET /api/v1/market-price", handler.GetMarketPrice)

	mux.HandleFunc("GET /api/v1/history", hist.GetHistory)
	mux.Handle("POST /api/v1/history/refresh", protect(hist.RefreshHistory))
	mux.Handle("POST /api/v1/history/more", protect(hist.LoadMoreHistory))
	mux.HandleFunc("GET /api/v1/history/export", hist.ExportHistory)

	if defi != nil && defi.HasVault() {
		mux.HandleFunc("GET /api/v1/vault/position", defi.GetVaultPosition)
		mux.HandleFunc("GET /api/v1/vault/apy", defi.GetVaultAPY)
		mux.HandleFunc("GET /api/v1/vault/activity", defi.GetVaultActivity)
		mux.Handle("POST /api/v1/vault/deposit", protect(defi.VaultDeposit))
		mux.Handle("POST /api/v1/vault/withdraw", protect(defi.VaultWithdraw))
	}
	if defi != nil && defi.HasLend() {
		mux.HandleFunc("GET /api/v1/lend/pool", defi.GetLendPool)
		mux.HandleFunc("GET /api/v1/lend/positions", defi.GetLendPositions)
		mux.Handle("POST /api/v1/lend/supply", protect(defi.LendSupply))
	}

	return &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func requireAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
