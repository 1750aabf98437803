package horizon

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// FetchAccountTransactions retrieves one page of an account's transactions in
// descending ledger order, failed ones included. An empty cursor starts from
// the most recent transaction.
func (c *Client) FetchAccountTransactions(ctx context.Context, accountID string, limit int, cursor string) ([]Transaction, error) {
	params := url.Values{}
	params.Set("order", "desc")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("include_failed", "true")
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	var resp transactionsResponse
	path := fmt.Sprintf("/accounts/%s/transactions?%s", accountID, params.Encode())
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("fetching transactions for %s: %w", accountID, err)
	}
	return resp.Embedded.Records, nil
}

// FetchTransactionOperations retrieves the ordered operations of a single
// transaction by hash.
func (c *Client) FetchTransactionOperations(ctx context.Context, txHash string) ([]Operation, error) {
	var resp operationsResponse
	path := fmt.Sprintf("/transactions/%s/operations?limit=200", txHash)
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("fetching operations for %s: %w", txHash, err)
	}
	return resp.Embedded.Records, nil
}
