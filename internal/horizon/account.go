package horizon

import (
	"context"
	"fmt"
)

// FetchAccount retrieves a Stellar account's details including balances and
// the current sequence number. Unfunded accounts yield a 404 *Error; callers
// decide whether that is an empty state or a failure.
func (c *Client) FetchAccount(ctx context.Context, accountID string) (Account, error) {
	var account Account
	if err := c.getJSON(ctx, fmt.Sprintf("/accounts/%s", accountID), &account); err != nil {
		return Account{}, fmt.Errorf("fetching account %s: %w", accountID, err)
	}
	return account, nil
}
