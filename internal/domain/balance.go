package domain

// BalanceEntry is a single asset balance held by the wallet account.
// Amount is a decimal string exactly as reported by the ledger.
type BalanceEntry struct {
	Asset     string `json:"asset"`
	Issuer    string `json:"issuer,omitempty"`
	Amount    string `json:"amount"`
	AssetType string `json:"assetType"`
}
