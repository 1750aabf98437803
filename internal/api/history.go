package api

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/trustbridge/walletd/internal/export"
	"github.com/trustbridge/walletd/internal/history"
	"github.com/trustbridge/walletd/internal/session"
)

// HistoryHandler serves the transaction history endpoints. The aggregator is
// bound to the connected wallet's address and rebuilt when the wallet
// changes.
type HistoryHandler struct {
	store    *session.Store
	ledger   history.Ledger
	pageSize int

	mu      sync.Mutex
	agg     *history.Aggregator
	address string
}

// NewHistoryHandler creates a history handler.
func NewHistoryHandler(store *session.Store, ledger history.Ledger, pageSize int) *HistoryHandler {
	return &HistoryHandler{
		store:    store,
		ledger:   ledger,
		pageSize: pageSize,
	}
}

type historyResponse struct {
	Transactions []history.ProcessedTransaction `json:"transactions"`
	HasMore      bool                           `json:"hasMore"`
	Stats        history.Stats                  `json:"stats"`
}

// GetHistory handles GET /api/v1/history. Search and type filters apply to
// the already-loaded list; stats always cover the unfiltered list.
func (h *HistoryHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	agg, err := h.aggregator(r)
	if err != nil {
		writeFailure(w, err)
		return
	}

	filters := history.Filters{
		SearchTerm: r.URL.Query().Get("search"),
		Type:       history.FilterType(r.URL.Query().Get("type")),
	}
	if filters.Type == "" {
		filters.Type = history.FilterAll
	}

	writeJSON(w, http.StatusOK, historyResponse{
		Transactions: agg.Filtered(filters),
		HasMore:      agg.HasMore(),
		Stats:        agg.Stats(),
	})
}

// RefreshHistory handles POST /api/v1/history/refresh.
func (h *HistoryHandler) RefreshHistory(w http.ResponseWriter, r *http.Request) {
	agg, err := h.aggregator(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if err := agg.Refresh(r.Context()); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{
		Transactions: agg.Transactions(),
		HasMore:      agg.HasMore(),
		Stats:        agg.Stats(),
	})
}

// LoadMoreHistory handles POST /api/v1/history/more.
func (h *HistoryHandler) LoadMoreHistory(w http.ResponseWriter, r *http.Request) {
	agg, err := h.aggregator(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if err := agg.LoadMore(r.Context()); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{
		Transactions: agg.Transactions(),
		HasMore:      agg.HasMore(),
		Stats:        agg.Stats(),
	})
}

// ExportHistory handles GET /api/v1/history/export, streaming the full loaded
// list as an xlsx workbook.
func (h *HistoryHandler) ExportHistory(w http.ResponseWriter, r *http.Request) {
	agg, err := h.aggregator(r)
	if err != nil {
		writeFailure(w, err)
		return
	}

	txs := agg.Transactions()
	if len(txs) == 0 {
		if err := agg.Refresh(r.Context()); err != nil {
			writeFailure(w, err)
			return
		}
		txs = agg.Transactions()
	}

	filename := fmt.Sprintf("history-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := export.WriteHistory(w, txs, agg.Stats()); err != nil {
		// Headers are out; all that is left is logging.
		writeFailure(w, err)
	}
}

// aggregator returns the aggregator for the connected wallet, loading the
// first page when the wallet changed since the last request.
func (h *HistoryHandler) aggregator(r *http.Request) (*history.Aggregator, error) {
	address, err := h.store.PublicKey()
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.agg == nil || h.address != address {
		h.agg = history.NewAggregator(h.ledger, address, h.pageSize)
		h.address = address
		if err := h.agg.Refresh(r.Context()); err != nil {
			h.agg = nil
			h.address = ""
			return nil, err
		}
	}
	return h.agg, nil
}
