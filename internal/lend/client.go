package lend

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

// Client talks to the lending-protocol API. All pool math happens remotely;
// this client only moves requests and envelopes back and forth.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a lending API client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// PoolMeta describes a lending pool.
type PoolMeta struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Backstop    string   `json:"backstop"`
	Oracle      string   `json:"oracle"`
	ReserveList []string `json:"reserveList"`
	Version     string   `json:"version"`
}

// Oracle carries the pool's price feed.
type Oracle struct {
	Address  string             `json:"address"`
	Decimals int                `json:"decimals"`
	Prices   map[string]float64 `json:"prices"`
}

// Positions summarizes a user's standing in a pool. Figures are quoted in the
// oracle's denomination.
type Positions struct {
	TotalSupplied  float64 `json:"totalSupplied"`
	TotalBorrowed  float64 `json:"totalBorrowed"`
	BorrowLimit    float64 `json:"borrowLimit"`
	BorrowCapacity float64 `json:"borrowCapacity"`
}

// SubmitResponse acknowledges a submitted supply transaction.
type SubmitResponse struct {
	Hash   string `json:"hash"`
	Status string `json:"status"`
}

// PoolMeta loads the pool's metadata.
func (c *Client) PoolMeta(ctx context.Context, poolID string) (PoolMeta, error) {
	var meta PoolMeta
	if err := c.get(ctx, poolID, "meta", nil, &meta); err != nil {
		return PoolMeta{}, err
	}
	return meta, nil
}

// PoolOracle loads the pool's oracle and prices.
func (c *Client) PoolOracle(ctx context.Context, poolID string) (Oracle, error) {
	var oracle Oracle
	if err := c.get(ctx, poolID, "oracle", nil, &oracle); err != nil {
		return Oracle{}, err
	}
	return oracle, nil
}

// UserPositions loads the user's positions in the pool.
func (c *Client) UserPositions(ctx context.Context, poolID, userAddress string) (Positions, error) {
	var positions Positions
	if err := c.get(ctx, poolID, "positions", url.Values{"user": {userAddress}}, &positions); err != nil {
		return Positions{}, err
	}
	return positions, nil
}

// BuildSupply asks the API to build an unsigned supply-collateral
// transaction. The amount is in the asset's base units.
func (c *Client) BuildSupply(ctx context.Context, poolID, from, assetAddress, amount string) (string, error) {
	var out struct {
		XDR string `json:"xdr"`
	}
	err := c.post(ctx, poolID, "supply", map[string]string{
		"from":   from,
		"asset":  assetAddress,
		"amount": amount,
	}, &out)
	if err != nil {
		return "", err
	}
	if out.XDR == "" {
		return "", fmt.Errorf("supply response carried no transaction envelope")
	}
	return out.XDR, nil
}

// Submit sends a locally signed supply envelope.
func (c *Client) Submit(ctx context.Context, poolID, signedXDR string) (SubmitResponse, error) {
	var out SubmitResponse
	if err := c.post(ctx, poolID, "submit", map[string]string{"xdr": signedXDR}, &out); err != nil {
		return SubmitResponse{}, err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, poolID, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding pool %s request: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpointURL(poolID, endpoint, nil), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating pool %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, endpoint, out)
}

func (c *Client) get(ctx context.Context, poolID, endpoint string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.endpointURL(poolID, endpoint, query), nil)
	if err != nil {
		return fmt.Errorf("creating pool %s request: %w", endpoint, err)
	}
	return c.do(req, endpoint, out)
}

func (c *Client) do(req *http.Request, endpoint string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling pool %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("pool %s returned status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding pool %s response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) endpointURL(poolID, endpoint string, query url.Values) string {
	u := fmt.Sprintf("%s/pool/%s/%s", c.baseURL, poolID, endpoint)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}
