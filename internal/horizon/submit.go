package horizon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// SubmitTransaction posts a signed base64 transaction envelope to Horizon.
// A ledger rejection comes back as *Error with the structured result codes.
func (c *Client) SubmitTransaction(ctx context.Context, envelopeXDR string) (SubmitResponse, error) {
	form := url.Values{}
	form.Set("tx", envelopeXDR)

	body, err := c.postForm(ctx, "/transactions", form)
	if err != nil {
		return SubmitResponse{}, fmt.Errorf("submitting transaction: %w", err)
	}

	var resp SubmitResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return SubmitResponse{}, fmt.Errorf("parsing submit response: %w", err)
	}
	return resp, nil
}
