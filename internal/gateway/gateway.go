package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"

	"github.com/trustbridge/walletd/internal/domain"
	"github.com/trustbridge/walletd/internal/horizon"
)

// ErrNoMarketData indicates that the orderbook has no liquidity on at least
// one side. Callers may substitute a fallback estimate; the gateway does not.
var ErrNoMarketData = errors.New("no market data available")

// usdcTrustlineLimit is the trust limit set when the swap auto-creates the
// USDC trustline.
const usdcTrustlineLimit = "1000000"

// Gateway is the only component that talks to the Stellar network. It wraps
// the Horizon client with transaction building/signing and normalizes network
// failures into the closed error taxonomy.
type Gateway struct {
	horizon           *horizon.Client
	faucet            *FaucetClient
	networkPassphrase string
	submitTimeout     time.Duration
	prices            *priceCache
}

// New creates a Gateway over the given Horizon client and faucet.
func New(hz *horizon.Client, faucet *FaucetClient, networkPassphrase string, submitTimeout time.Duration) *Gateway {
	return &Gateway{
		horizon:           hz,
		faucet:            faucet,
		networkPassphrase: networkPassphrase,
		submitTimeout:     submitTimeout,
		prices:            newPriceCache(),
	}
}

// LoadBalances returns the account's balance entries in ledger order. An
// account that does not exist on the ledger yet yields an empty list, not an
// error.
func (g *Gateway) LoadBalances(ctx context.Context, address string) ([]domain.BalanceEntry, error) {
	account, err := g.horizon.FetchAccount(ctx, address)
	if err != nil {
		if horizon.IsNotFound(err) {
			return []domain.BalanceEntry{}, nil
		}
		return nil, normalize(err, "Failed to load balances")
	}

	entries := make([]domain.BalanceEntry, 0, len(account.Balances))
	for _, b := range account.Balances {
		switch b.AssetType {
		case "native":
			entries = append(entries, domain.BalanceEntry{
				Asset: "XLM", Amount: b.Balance, AssetType: b.AssetType,
			})
		case "credit_alphanum4", "credit_alphanum12":
			entries = append(entries, domain.BalanceEntry{
				Asset: b.AssetCode, Issuer: b.AssetIssuer, Amount: b.Balance, AssetType: b.AssetType,
			})
		default:
			// Liquidity pool shares and future asset types.
			entries = append(entries, domain.BalanceEntry{
				Asset: "Unknown Asset", Amount: b.Balance, AssetType: b.AssetType,
			})
		}
	}
	return entries, nil
}

// MarketPrice is a mid-market quote derived from the best bid and ask.
type MarketPrice struct {
	Price         string `json:"price"`
	SpreadPercent string `json:"spreadPercent"`
}

// LoadMarketPrice derives the mid price and spread for base/quote from the
// orderbook's best bid and ask. Fails with ErrNoMarketData when either side
// is empty.
func (g *Gateway) LoadMarketPrice(ctx context.Context, base, quote domain.AssetInfo) (MarketPrice, error) {
	key := base.Canonical() + "=>" + quote.Canonical()
	if cached, ok := g.prices.get(key); ok {
		return cached, nil
	}

	ob, err := g.horizon.FetchOrderbook(ctx, base, quote, 1)
	if err != nil {
		return MarketPrice{}, normalize(err, "Failed to load market price")
	}
	if len(ob.Bids) == 0 || len(ob.Asks) == 0 {
		return MarketPrice{}, ErrNoMarketData
	}

	bid, bidErr := decimal.NewFromString(ob.Bids[0].Price)
	ask, askErr := decimal.NewFromString(ob.Asks[0].Price)
	if bidErr != nil || askErr != nil {
		return MarketPrice{}, fmt.Errorf("unparseable orderbook prices: bid %q, ask %q", ob.Bids[0].Price, ob.Asks[0].Price)
	}

	two := decimal.NewFromInt(2)
	hundred := decimal.NewFromInt(100)
	mid := bid.Add(ask).Div(two)
	if mid.IsZero() {
		return MarketPrice{}, ErrNoMarketData
	}
	spread := ask.Sub(bid).Div(mid).Mul(hundred)

	price := MarketPrice{
		Price:         mid.StringFixed(6),
		SpreadPercent: spread.StringFixed(2),
	}
	g.prices.set(key, price)
	return price, nil
}

// SubmitPayment builds, signs and submits a native-asset transfer. The memo
// is attached only if non-empty after trimming. The transaction carries a
// validity window of submitTimeout, after which the network itself rejects a
// late submission.
func (g *Gateway) SubmitPayment(ctx context.Context, secret, destination, amount, memo string) (string, error) {
	kp, err := keypair.ParseFull(secret)
	if err != nil {
		return "", validationError("Invalid secret key")
	}

	ops := []txnbuild.Operation{
		&txnbuild.Payment{
			Destination: destination,
			Amount:      amount,
			Asset:       txnbuild.NativeAsset{},
		},
	}

	var txMemo txnbuild.Memo
	if trimmed := strings.TrimSpace(memo); trimmed != "" {
		txMemo = txnbuild.MemoText(trimmed)
	}

	resp, err := g.buildSignSubmit(ctx, kp, ops, txMemo)
	if err != nil {
		return "", err
	}
	return resp.Hash, nil
}

// SwapResult is the outcome of a successful path-payment swap.
type SwapResult struct {
	Hash           string `json:"hash"`
	ReceivedAmount string `json:"receivedAmount"`
}

// SubmitSwap converts sendAmount XLM into USDC via a path payment to self.
// If the account lacks a USDC trustline, the trust-establishing operation is
// prepended in the same transaction so both apply atomically or not at all.
// The received amount is recovered by re-reading the submitted transaction's
// operations; if that secondary lookup fails the swap still reports success
// with a zero amount.
func (g *Gateway) SubmitSwap(ctx context.Context, secret, sendAmount, minReceiveAmount string) (SwapResult, error) {
	kp, err := keypair.ParseFull(secret)
	if err != nil {
		return SwapResult{}, validationError("Invalid secret key")
	}

	account, err := g.horizon.FetchAccount(ctx, kp.Address())
	if err != nil {
		return SwapResult{}, normalize(err, "Failed to load account")
	}

	usdc := domain.USDCAsset()
	destAsset := txnbuild.CreditAsset{Code: usdc.Code, Issuer: usdc.Issuer}

	var ops []txnbuild.Operation
	if !hasTrustline(account, usdc) {
		ops = append(ops, &txnbuild.ChangeTrust{
			Line:  txnbuild.ChangeTrustAssetWrapper{Asset: destAsset},
			Limit: usdcTrustlineLimit,
		})
	}
	ops = append(ops, &txnbuild.PathPaymentStrictSend{
		SendAsset:   txnbuild.NativeAsset{},
		SendAmount:  sendAmount,
		Destination: kp.Address(),
		DestAsset:   destAsset,
		DestMin:     minReceiveAmount,
		Path:        []txnbuild.Asset{},
	})

	resp, err := g.submitWithAccount(ctx, kp, account, ops, nil)
	if err != nil {
		return SwapResult{}, err
	}

	result := SwapResult{Hash: resp.Hash, ReceivedAmount: "0"}
	opsRecords, opErr := g.horizon.FetchTransactionOperations(ctx, resp.Hash)
	if opErr != nil {
		slog.Warn("could not recover swap received amount", "hash", resp.Hash, "error", opErr)
		return result, nil
	}
	for _, op := range opsRecords {
		if op.Type == "path_payment_strict_send" {
			result.ReceivedAmount = op.Amount
			break
		}
	}
	return result, nil
}

// FundViaFaucet requests test-network funding for the address.
func (g *Gateway) FundViaFaucet(ctx context.Context, address string) (bool, error) {
	return g.faucet.Fund(ctx, address)
}

// TransactionPage is one page of raw account transactions. HasMore is a
// heuristic: true iff the page came back full.
type TransactionPage struct {
	Transactions []horizon.Transaction
	HasMore      bool
	NextCursor   string
}

// FetchTransactionPage reads a single page of the account's transaction
// history. An account with no history (or one that never existed) yields an
// empty page, not an error.
func (g *Gateway) FetchTransactionPage(ctx context.Context, address string, pageSize int, cursor string) (TransactionPage, error) {
	records, err := g.horizon.FetchAccountTransactions(ctx, address, pageSize, cursor)
	if err != nil {
		if horizon.IsNotFound(err) {
			return TransactionPage{}, nil
		}
		return TransactionPage{}, normalize(err, "Failed to load transaction history")
	}

	page := TransactionPage{
		Transactions: records,
		HasMore:      len(records) == pageSize,
	}
	if len(records) > 0 {
		page.NextCursor = records[len(records)-1].PagingToken
	}
	return page, nil
}

// FetchOperations returns the ordered operations of a transaction by hash.
func (g *Gateway) FetchOperations(ctx context.Context, txHash string) ([]horizon.Operation, error) {
	ops, err := g.horizon.FetchTransactionOperations(ctx, txHash)
	if err != nil {
		return nil, normalize(err, "Failed to load transaction operations")
	}
	return ops, nil
}

// SignEnvelope signs a base64 transaction envelope (e.g. one prepared by the
// vault API) with the given secret and returns the signed envelope.
func (g *Gateway) SignEnvelope(secret, envelopeXDR string) (string, error) {
	kp, err := keypair.ParseFull(secret)
	if err != nil {
		return "", validationError("Invalid secret key")
	}

	generic, err := txnbuild.TransactionFromXDR(envelopeXDR)
	if err != nil {
		return "", validationError("Invalid transaction envelope")
	}
	tx, ok := generic.Transaction()
	if !ok {
		return "", validationError("Unsupported transaction envelope")
	}

	signed, err := tx.Sign(g.networkPassphrase, kp)
	if err != nil {
		return "", fmt.Errorf("signing envelope: %w", err)
	}
	return signed.Base64()
}

func (g *Gateway) buildSignSubmit(ctx context.Context, kp *keypair.Full, ops []txnbuild.Operation, memo txnbuild.Memo) (horizon.SubmitResponse, error) {
	account, err := g.horizon.FetchAccount(ctx, kp.Address())
	if err != nil {
		return horizon.SubmitResponse{}, normalize(err, "Failed to load account")
	}
	return g.submitWithAccount(ctx, kp, account, ops, memo)
}

func (g *Gateway) submitWithAccount(ctx context.Context, kp *keypair.Full, account horizon.Account, ops []txnbuild.Operation, memo txnbuild.Memo) (horizon.SubmitResponse, error) {
	seq, err := strconv.ParseInt(account.Sequence, 10, 64)
	if err != nil {
		return horizon.SubmitResponse{}, fmt.Errorf("parsing account sequence %q: %w", account.Sequence, err)
	}

	source := txnbuild.SimpleAccount{AccountID: kp.Address(), Sequence: seq}
	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount:        &source,
		IncrementSequenceNum: true,
		BaseFee:              txnbuild.MinBaseFee,
		Operations:           ops,
		Memo:                 memo,
		Preconditions: txnbuild.Preconditions{
			TimeBounds: txnbuild.NewTimeout(int64(g.submitTimeout.Seconds())),
		},
	})
	if err != nil {
		return horizon.SubmitResponse{}, fmt.Errorf("building transaction: %w", err)
	}

	tx, err = tx.Sign(g.networkPassphrase, kp)
	if err != nil {
		return horizon.SubmitResponse{}, fmt.Errorf("signing transaction: %w", err)
	}

	envelope, err := tx.Base64()
	if err != nil {
		return horizon.SubmitResponse{}, fmt.Errorf("encoding transaction: %w", err)
	}

	resp, err := g.horizon.SubmitTransaction(ctx, envelope)
	if err != nil {
		return horizon.SubmitResponse{}, normalize(err, "Failed to submit transaction")
	}
	return resp, nil
}

func hasTrustline(account horizon.Account, asset domain.AssetInfo) bool {
	for _, b := range account.Balances {
		if b.AssetType != "native" && b.AssetCode == asset.Code && b.AssetIssuer == asset.Issuer {
			return true
		}
	}
	return false
}
