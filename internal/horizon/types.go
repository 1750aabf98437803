package horizon

// Account represents the JSON response from GET /accounts/{id}.
type Account struct {
	ID       string    `json:"id"`
	Sequence string    `json:"sequence"`
	Balances []Balance `json:"balances"`
}

// Balance represents a single balance entry in an account response.
type Balance struct {
	AssetType   string `json:"asset_type"`
	AssetCode   string `json:"asset_code"`
	AssetIssuer string `json:"asset_issuer"`
	Balance     string `json:"balance"`
	Limit       string `json:"limit,omitempty"`
}

// Orderbook represents the JSON response from GET /order_book.
type Orderbook struct {
	Bids []OrderbookEntry `json:"bids"`
	Asks []OrderbookEntry `json:"asks"`
}

// OrderbookEntry represents a single bid or ask in an orderbook.
type OrderbookEntry struct {
	Price  string `json:"price"`
	Amount string `json:"amount"`
}

// Transaction represents a transaction record from GET /accounts/{id}/transactions.
type Transaction struct {
	ID             string `json:"id"`
	Hash           string `json:"hash"`
	CreatedAt      string `json:"created_at"`
	SourceAccount  string `json:"source_account"`
	FeeCharged     string `json:"fee_charged"`
	OperationCount int    `json:"operation_count"`
	Memo           string `json:"memo"`
	Successful     bool   `json:"successful"`
	PagingToken    string `json:"paging_token"`
}

// Operation represents an operation record from GET /transactions/{hash}/operations.
// Only the fields relevant to the operation's type are populated by Horizon.
type Operation struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	TransactionHash string `json:"transaction_hash"`
	SourceAccount   string `json:"source_account"`
	From            string `json:"from,omitempty"`
	To              string `json:"to,omitempty"`
	Amount          string `json:"amount,omitempty"`
	AssetType       string `json:"asset_type,omitempty"`
	AssetCode       string `json:"asset_code,omitempty"`
	AssetIssuer     string `json:"asset_issuer,omitempty"`
	StartingBalance string `json:"starting_balance,omitempty"`
	Funder          string `json:"funder,omitempty"`
	Account         string `json:"account,omitempty"`
	Into            string `json:"into,omitempty"`
	Limit           string `json:"limit,omitempty"`
	SellingAssetType string `json:"selling_asset_type,omitempty"`
	SellingAssetCode string `json:"selling_asset_code,omitempty"`
}

// SubmitResponse represents the JSON response from POST /transactions.
type SubmitResponse struct {
	Hash       string `json:"hash"`
	Ledger     int64  `json:"ledger"`
	Successful bool   `json:"successful"`
}

// transactionsResponse wraps the embedded records of a transactions page.
type transactionsResponse struct {
	Embedded struct {
		Records []Transaction `json:"records"`
	} `json:"_embedded"`
}

// operationsResponse wraps the embedded records of an operations listing.
type operationsResponse struct {
	Embedded struct {
		Records []Operation `json:"records"`
	} `json:"_embedded"`
}
