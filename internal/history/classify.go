package history

import (
	"fmt"
	"strings"

	"github.com/trustbridge/walletd/internal/domain"
	"github.com/trustbridge/walletd/internal/horizon"
)

// Operation type tokens as reported by Horizon.
const (
	opPayment                  = "payment"
	opCreateAccount            = "create_account"
	opPathPaymentStrictReceive = "path_payment_strict_receive"
	opPathPaymentStrictSend    = "path_payment_strict_send"
	opManageSellOffer          = "manage_sell_offer"
	opManageBuyOffer           = "manage_buy_offer"
	opChangeTrust              = "change_trust"
	opAccountMerge             = "account_merge"
	opInflation                = "inflation"
	opManageData               = "manage_data"
	opBumpSequence             = "bump_sequence"
	opCreateClaimableBalance   = "create_claimable_balance"
	opClaimClaimableBalance    = "claim_claimable_balance"
	opBeginSponsoring          = "begin_sponsoring_future_reserves"
	opEndSponsoring            = "end_sponsoring_future_reserves"
	opRevokeSponsorship        = "revoke_sponsorship"
	opClawback                 = "clawback"
	opClawbackClaimable        = "clawback_claimable_balance"
	opSetTrustLineFlags        = "set_trust_line_flags"
	opLiquidityPoolDeposit     = "liquidity_pool_deposit"
	opLiquidityPoolWithdraw    = "liquidity_pool_withdraw"
)

// ProcessedTransaction is the user-facing view of one ledger transaction,
// derived from the raw transaction and its operations. Never mutated after
// creation.
type ProcessedTransaction struct {
	ID             string              `json:"id"`
	Hash           string              `json:"hash"`
	Date           string              `json:"date"`
	Type           string              `json:"type"`
	Amount         string              `json:"amount"`
	Asset          string              `json:"asset"`
	From           string              `json:"from,omitempty"`
	To             string              `json:"to,omitempty"`
	Memo           string              `json:"memo,omitempty"`
	Successful     bool                `json:"successful"`
	Fee            string              `json:"fee"`
	OperationCount int                 `json:"operationCount"`
	Operations     []horizon.Operation `json:"operations"`
}

// Classify derives the semantic view of a transaction from its first
// operation. It is a pure function: the same input always yields the same
// output. The fee is converted from stroops to XLM display units here so that
// downstream accumulation stays in one unit.
func Classify(tx horizon.Transaction, ops []horizon.Operation, userAddress string) ProcessedTransaction {
	label := "Unknown"
	amount := "0"
	asset := "XLM"
	var from, to string

	if len(ops) > 0 {
		label, amount, asset, from, to = classifyOperation(ops[0], userAddress)
	}

	if len(ops) > 1 {
		label += fmt.Sprintf(" (+%d ops)", len(ops)-1)
	}

	return ProcessedTransaction{
		ID:             tx.ID,
		Hash:           tx.Hash,
		Date:           tx.CreatedAt,
		Type:           label,
		Amount:         amount,
		Asset:          asset,
		From:           from,
		To:             to,
		Memo:           tx.Memo,
		Successful:     tx.Successful,
		Fee:            domain.StroopsToLumens(tx.FeeCharged),
		OperationCount: tx.OperationCount,
		Operations:     ops,
	}
}

func classifyOperation(op horizon.Operation, userAddress string) (label, amount, asset, from, to string) {
	amount = "0"
	asset = "XLM"

	switch op.Type {
	case opPayment:
		if op.From == userAddress {
			label = "Send"
		} else {
			label = "Receive"
		}
		amount = orDefault(op.Amount, "0")
		asset = assetSymbol(op.AssetType, op.AssetCode)
		from, to = op.From, op.To

	case opCreateAccount:
		if op.Funder == userAddress {
			label = "Account Created (Sent)"
		} else {
			label = "Account Created (Received)"
		}
		amount = orDefault(op.StartingBalance, "0")
		from, to = op.Funder, op.Account

	case opPathPaymentStrictReceive, opPathPaymentStrictSend:
		if op.From == userAddress {
			label = "Path Payment (Send)"
		} else {
			label = "Path Payment (Receive)"
		}
		amount = orDefault(op.Amount, "0")
		asset = assetSymbol(op.AssetType, op.AssetCode)
		from, to = op.From, op.To

	case opManageSellOffer, opManageBuyOffer:
		label = "Trade Offer"
		amount = orDefault(op.Amount, "0")
		asset = assetSymbol(op.SellingAssetType, op.SellingAssetCode)

	case opChangeTrust:
		label = "Trust Line"
		amount = orDefault(op.Limit, "0")
		asset = orDefault(op.AssetCode, "Unknown")

	case opAccountMerge:
		label = "Account Merge"
		from, to = op.Account, op.Into

	case opInflation:
		label = "Inflation"

	case opManageData:
		label = "Manage Data"

	case opBumpSequence:
		label = "Bump Sequence"

	case opCreateClaimableBalance:
		label = "Create Claimable Balance"
		amount = orDefault(op.Amount, "0")
		asset = assetSymbol(op.AssetType, op.AssetCode)

	case opClaimClaimableBalance:
		label = "Claim Balance"

	case opBeginSponsoring:
		label = "Begin Sponsoring"

	case opEndSponsoring:
		label = "End Sponsoring"

	case opRevokeSponsorship:
		label = "Revoke Sponsorship"

	case opClawback:
		label = "Clawback"
		amount = orDefault(op.Amount, "0")
		asset = orDefault(op.AssetCode, "Unknown")
		from = op.From

	case opClawbackClaimable:
		label = "Clawback Claimable Balance"

	case opSetTrustLineFlags:
		label = "Set Trust Line Flags"
		asset = orDefault(op.AssetCode, "Unknown")

	case opLiquidityPoolDeposit:
		label = "LP Deposit"

	case opLiquidityPoolWithdraw:
		label = "LP Withdraw"

	default:
		// Unrecognized types get a readable rendering of the raw token.
		label = titleFromToken(op.Type)
	}

	return label, amount, asset, from, to
}

func assetSymbol(assetType, assetCode string) string {
	if assetType == "native" {
		return "XLM"
	}
	return orDefault(assetCode, "Unknown")
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// titleFromToken turns "some_new_op" into "Some New Op".
func titleFromToken(token string) string {
	words := strings.Split(token, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
