package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// alreadyFundedMarkers are the response fragments the faucet uses to say the
// account is already funded. All of them count as success.
var alreadyFundedMarkers = []string{
	"op_already_exists",
	"already exists",
	"already funded",
	"account already funded to starting balance",
	"createAccountAlreadyExist",
}

// FaucetClient calls the test-network faucet, falling back to an alternate
// endpoint on timeout or transport failure.
type FaucetClient struct {
	primaryURL  string
	fallbackURL string
	httpClient  *http.Client
}

// NewFaucetClient creates a faucet client with a bounded per-request timeout.
func NewFaucetClient(primaryURL, fallbackURL string, timeout time.Duration) *FaucetClient {
	return &FaucetClient{
		primaryURL:  primaryURL,
		fallbackURL: fallbackURL,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// Fund asks the faucet to credit the address with starting funds. A hung
// faucet cannot stall the caller beyond the configured timeout; on transport
// failure the fallback endpoint is tried before giving up.
func (f *FaucetClient) Fund(ctx context.Context, address string) (bool, error) {
	ok, err := f.request(ctx, f.primaryURL, address)
	if err == nil {
		return ok, nil
	}
	if f.fallbackURL == "" {
		return false, err
	}

	ok, fallbackErr := f.request(ctx, f.fallbackURL, address)
	if fallbackErr != nil {
		return false, fmt.Errorf("faucet failed (primary: %v): %w", err, fallbackErr)
	}
	return ok, nil
}

func (f *FaucetClient) request(ctx context.Context, baseURL, address string) (bool, error) {
	reqURL := fmt.Sprintf("%s?addr=%s", baseURL, url.QueryEscape(address))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return false, fmt.Errorf("creating faucet request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("faucet request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("reading faucet response: %w", err)
	}

	if resp.StatusCode == http.StatusOK {
		return true, nil
	}
	if resp.StatusCode == http.StatusBadRequest {
		text := string(body)
		for _, marker := range alreadyFundedMarkers {
			if strings.Contains(text, marker) {
				return true, nil
			}
		}
		return false, nil
	}
	return false, nil
}
