package vault

import (
	"github.com/shopspring/decimal"

	"github.com/trustbridge/walletd/internal/domain"
)

// Position is the computed view of an address's vault holding. Balance always
// carries the remote vault's figure; the strategies differ only in what they
// use as the cost basis for the gains calculation.
type Position struct {
	Balance      string `json:"balance"`
	NetDeposited string `json:"netDeposited"`
	Gains        string `json:"gains"`
	GainPercent  string `json:"gainPercent"`
	Basis        string `json:"basis"`
}

// GainsStrategy derives a position from the remote balance and the locally
// tracked totals.
type GainsStrategy interface {
	Name() string
	Position(remoteBalance decimal.Decimal, totals Totals) Position
}

// LocalLedgerStrategy uses the locally recorded net deposits as the cost
// basis. It drifts when movements happen outside this wallet.
type LocalLedgerStrategy struct{}

func (LocalLedgerStrategy) Name() string { return "local-ledger" }

func (s LocalLedgerStrategy) Position(remoteBalance decimal.Decimal, totals Totals) Position {
	net := netDeposited(totals)
	gains := remoteBalance.Sub(net)

	percent := decimal.Zero
	if net.IsPositive() {
		percent = gains.Div(net).Mul(decimal.NewFromInt(100))
	}

	return Position{
		Balance:      domain.FormatAmount(remoteBalance),
		NetDeposited: domain.FormatAmount(net),
		Gains:        domain.FormatAmount(gains),
		GainPercent:  percent.StringFixed(2),
		Basis:        s.Name(),
	}
}

// RemoteBalanceStrategy treats the remote balance itself as the cost basis.
// Gains are always zero under it; it exists for addresses with no usable
// local ledger, where the balance is all that is known.
type RemoteBalanceStrategy struct{}

func (RemoteBalanceStrategy) Name() string { return "remote-balance" }

func (s RemoteBalanceStrategy) Position(remoteBalance decimal.Decimal, totals Totals) Position {
	return Position{
		Balance:      domain.FormatAmount(remoteBalance),
		NetDeposited: domain.FormatAmount(remoteBalance),
		Gains:        "0",
		GainPercent:  "0.00",
		Basis:        s.Name(),
	}
}

// ResolvePosition picks the strategy of record: the local ledger when it has
// a positive net-deposit basis, otherwise the remote balance. In either case
// the remote balance is what the position reports as the holding.
func ResolvePosition(remoteBalance decimal.Decimal, totals Totals) Position {
	if netDeposited(totals).IsPositive() {
		return LocalLedgerStrategy{}.Position(remoteBalance, totals)
	}
	return RemoteBalanceStrategy{}.Position(remoteBalance, totals)
}

func netDeposited(totals Totals) decimal.Decimal {
	return domain.SafeParse(totals.Deposited).Sub(domain.SafeParse(totals.Withdrawn))
}
