package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the yield-aggregator HTTP API. Deposits and withdrawals are
// a two-step exchange: the API returns an unsigned transaction envelope, the
// caller signs it locally and posts it back through Send.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a yield-aggregator API client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type buildRequest struct {
	Amounts []json.Number `json:"amounts"`
	From    string        `json:"from"`
}

type sendRequest struct {
	XDR string `json:"xdr"`
}

// SendResponse is the API's acknowledgement of a submitted envelope.
type SendResponse struct {
	Hash   string `json:"hash"`
	Status string `json:"status"`
}

// RequestDeposit asks the API to build an unsigned deposit transaction for
// the given account and amount. The returned string is a base64 envelope.
func (c *Client) RequestDeposit(ctx context.Context, vaultAddress, from, amount string) (string, error) {
	return c.requestEnvelope(ctx, vaultAddress, "deposit", from, amount)
}

// RequestWithdraw asks the API to build an unsigned withdrawal transaction.
func (c *Client) RequestWithdraw(ctx context.Context, vaultAddress, from, amount string) (string, error) {
	return c.requestEnvelope(ctx, vaultAddress, "withdraw", from, amount)
}

func (c *Client) requestEnvelope(ctx context.Context, vaultAddress, endpoint, from, amount string) (string, error) {
	var out struct {
		XDR string `json:"xdr"`
	}
	err := c.post(ctx, vaultAddress, endpoint, buildRequest{
		Amounts: []json.Number{json.Number(amount)},
		From:    from,
	}, &out)
	if err != nil {
		return "", err
	}
	if out.XDR == "" {
		return "", fmt.Errorf("vault %s response carried no transaction envelope", endpoint)
	}
	return out.XDR, nil
}

// Send submits a locally signed envelope back to the API.
func (c *Client) Send(ctx context.Context, vaultAddress, signedXDR string) (SendResponse, error) {
	var out SendResponse
	if err := c.post(ctx, vaultAddress, "send", sendRequest{XDR: signedXDR}, &out); err != nil {
		return SendResponse{}, err
	}
	return out, nil
}

// Balance returns the account's vault balance in base units. The API is loose
// about the response shape, so several known variants are accepted.
func (c *Client) Balance(ctx context.Context, vaultAddress, from string) (string, error) {
	var raw map[string]json.RawMessage
	err := c.get(ctx, vaultAddress, "balance", url.Values{"from": {from}}, &raw)
	if err != nil {
		return "", err
	}
	return parseBalance(raw)
}

// APY returns the vault's current yield as a percentage.
func (c *Client) APY(ctx context.Context, vaultAddress string) (float64, error) {
	var out struct {
		APY float64 `json:"apy"`
	}
	if err := c.get(ctx, vaultAddress, "apy", nil, &out); err != nil {
		return 0, err
	}
	return out.APY, nil
}

func parseBalance(raw map[string]json.RawMessage) (string, error) {
	if msg, ok := raw["underlyingBalance"]; ok {
		var amounts []json.Number
		if err := json.Unmarshal(msg, &amounts); err == nil && len(amounts) > 0 {
			return amounts[0].String(), nil
		}
	}
	if msg, ok := raw["balance"]; ok {
		var n json.Number
		if err := json.Unmarshal(msg, &n); err == nil {
			return n.String(), nil
		}
		var s string
		if err := json.Unmarshal(msg, &s); err == nil && s != "" {
			return s, nil
		}
	}
	return "", fmt.Errorf("unrecognized vault balance response")
}

func (c *Client) post(ctx context.Context, vaultAddress, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding vault %s request: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpointURL(vaultAddress, endpoint, nil), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating vault %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, endpoint, out)
}

func (c *Client) get(ctx context.Context, vaultAddress, endpoint string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.endpointURL(vaultAddress, endpoint, query), nil)
	if err != nil {
		return fmt.Errorf("creating vault %s request: %w", endpoint, err)
	}
	return c.do(req, endpoint, out)
}

func (c *Client) do(req *http.Request, endpoint string, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling vault %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("vault %s returned status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding vault %s response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) endpointURL(vaultAddress, endpoint string, query url.Values) string {
	u := fmt.Sprintf("%s/vault/%s/%s", c.baseURL, vaultAddress, endpoint)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}
