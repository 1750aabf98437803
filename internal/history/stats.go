package history

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/trustbridge/walletd/internal/domain"
)

// Stats summarizes the full loaded history, not the filtered view. Fees are
// accumulated as decimals in XLM display units to avoid float drift over many
// additions.
type Stats struct {
	Total      int    `json:"total"`
	Successful int    `json:"successful"`
	Failed     int    `json:"failed"`
	TotalFees  string `json:"totalFees"`
}

// ComputeStats derives counts and the deterministic fee sum.
func ComputeStats(txs []ProcessedTransaction) Stats {
	successful := lo.CountBy(txs, func(tx ProcessedTransaction) bool {
		return tx.Successful
	})

	totalFees := lo.Reduce(txs, func(acc decimal.Decimal, tx ProcessedTransaction, _ int) decimal.Decimal {
		return domain.SafeSum(acc, domain.SafeParse(tx.Fee))
	}, decimal.Zero)

	return Stats{
		Total:      len(txs),
		Successful: successful,
		Failed:     len(txs) - successful,
		TotalFees:  domain.FormatAmount(totalFees),
	}
}
