package history

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/trustbridge/walletd/internal/gateway"
	"github.com/trustbridge/walletd/internal/horizon"
)

// operationFetchLimit bounds the per-transaction detail fan-out.
const operationFetchLimit = 4

// Ledger provides the paginated transaction feed the aggregator consumes.
type Ledger interface {
	FetchTransactionPage(ctx context.Context, address string, pageSize int, cursor string) (gateway.TransactionPage, error)
	FetchOperations(ctx context.Context, txHash string) ([]horizon.Operation, error)
}

// Aggregator materializes an account's transaction history page by page,
// classifying each transaction into its user-facing form. Successive pages
// are appended; a refresh replaces the whole list. Overlapping page loads are
// prevented by an in-flight guard, since interleaved appends would duplicate
// entries.
type Aggregator struct {
	ledger   Ledger
	address  string
	pageSize int

	mu         sync.Mutex
	loading    bool
	txs        []ProcessedTransaction
	hasMore    bool
	nextCursor string
}

// NewAggregator creates an aggregator for the given account address.
func NewAggregator(ledger Ledger, address string, pageSize int) *Aggregator {
	return &Aggregator{
		ledger:   ledger,
		address:  address,
		pageSize: pageSize,
	}
}

// Refresh restarts from the first page and replaces the in-memory list.
// A no-op while another load is in flight.
func (a *Aggregator) Refresh(ctx context.Context) error {
	if !a.begin() {
		return nil
	}
	defer a.end()

	page, err := a.loadPage(ctx, "")
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.txs = page.processed
	a.hasMore = page.hasMore
	a.nextCursor = page.nextCursor
	a.mu.Unlock()
	return nil
}

// LoadMore appends the next page. A no-op unless more pages exist, a cursor
// is known, and no load is already in flight.
func (a *Aggregator) LoadMore(ctx context.Context) error {
	a.mu.Lock()
	cursor := a.nextCursor
	ok := a.hasMore && cursor != ""
	a.mu.Unlock()
	if !ok {
		return nil
	}

	if !a.begin() {
		return nil
	}
	defer a.end()

	page, err := a.loadPage(ctx, cursor)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.txs = append(a.txs, page.processed...)
	a.hasMore = page.hasMore
	a.nextCursor = page.nextCursor
	a.mu.Unlock()
	return nil
}

// Transactions returns a copy of the full loaded list.
func (a *Aggregator) Transactions() []ProcessedTransaction {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]ProcessedTransaction, len(a.txs))
	copy(out, a.txs)
	return out
}

// HasMore reports whether another page is believed to exist.
func (a *Aggregator) HasMore() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hasMore
}

// Filtered returns the transactions matching the given filters.
func (a *Aggregator) Filtered(f Filters) []ProcessedTransaction {
	return Apply(a.Transactions(), f, a.address)
}

// Stats computes counts and the fee total over the full unfiltered list.
func (a *Aggregator) Stats() Stats {
	return ComputeStats(a.Transactions())
}

type loadedPage struct {
	processed  []ProcessedTransaction
	hasMore    bool
	nextCursor string
}

// loadPage fetches one transaction page and enriches every record with its
// operations. The detail calls run as a bounded fan-out; one failure aborts
// the entire page so callers never see a partially enriched result.
func (a *Aggregator) loadPage(ctx context.Context, cursor string) (loadedPage, error) {
	page, err := a.ledger.FetchTransactionPage(ctx, a.address, a.pageSize, cursor)
	if err != nil {
		return loadedPage{}, err
	}

	processed := make([]ProcessedTransaction, len(page.Transactions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(operationFetchLimit)

	for i, tx := range page.Transactions {
		i, tx := i, tx
		g.Go(func() error {
			ops, err := a.ledger.FetchOperations(gctx, tx.Hash)
			if err != nil {
				return fmt.Errorf("enriching transaction %s: %w", tx.Hash, err)
			}
			processed[i] = Classify(tx, ops, a.address)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return loadedPage{}, err
	}

	return loadedPage{
		processed:  processed,
		hasMore:    page.HasMore,
		nextCursor: page.NextCursor,
	}, nil
}

func (a *Aggregator) begin() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.loading {
		return false
	}
	a.loading = true
	return true
}

func (a *Aggregator) end() {
	a.mu.Lock()
	a.loading = false
	a.mu.Unlock()
}
