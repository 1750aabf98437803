package history

import (
	"strings"

	"github.com/samber/lo"
)

// FilterType narrows the transaction list by direction or outcome.
type FilterType string

const (
	FilterAll     FilterType = "all"
	FilterSend    FilterType = "send"
	FilterReceive FilterType = "receive"
	FilterFailed  FilterType = "failed"
)

// Filters is a pure predicate over the processed transaction list. Search and
// type conditions are a conjunction.
type Filters struct {
	SearchTerm string
	Type       FilterType
}

// Apply returns the transactions satisfying both the search term and the type
// filter.
func Apply(txs []ProcessedTransaction, f Filters, userAddress string) []ProcessedTransaction {
	return lo.Filter(txs, func(tx ProcessedTransaction, _ int) bool {
		return f.matchSearch(tx) && f.matchType(tx, userAddress)
	})
}

func (f Filters) matchSearch(tx ProcessedTransaction) bool {
	term := strings.ToLower(strings.TrimSpace(f.SearchTerm))
	if term == "" {
		return true
	}
	for _, field := range []string{tx.Hash, tx.Type, tx.From, tx.To, tx.Memo} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func (f Filters) matchType(tx ProcessedTransaction, userAddress string) bool {
	label := strings.ToLower(tx.Type)
	switch f.Type {
	case FilterSend:
		return strings.Contains(label, "send") ||
			(tx.From == userAddress && strings.Contains(label, "payment"))
	case FilterReceive:
		return strings.Contains(label, "receive") ||
			(tx.To == userAddress && strings.Contains(label, "payment"))
	case FilterFailed:
		return !tx.Successful
	default:
		return true
	}
}
