package domain

import "fmt"

// AssetType represents the Stellar asset type classification.
type AssetType string

const (
	AssetTypeNative           AssetType = "native"
	AssetTypeCreditAlphanum4  AssetType = "credit_alphanum4"
	AssetTypeCreditAlphanum12 AssetType = "credit_alphanum12"
)

// AssetInfo describes a Stellar asset.
type AssetInfo struct {
	Code   string    `json:"code"`
	Issuer string    `json:"issuer"`
	Type   AssetType `json:"type"`
}

// IsNative returns true if this asset is the native XLM.
func (a AssetInfo) IsNative() bool {
	return a.Type == AssetTypeNative
}

// Canonical returns a canonical string representation: "native" for XLM, "CODE:ISSUER" for credits.
func (a AssetInfo) Canonical() string {
	if a.IsNative() {
		return "native"
	}
	return fmt.Sprintf("%s:%s", a.Code, a.Issuer)
}

// Symbol returns the user-facing symbol: "XLM" for the native asset, else the code.
func (a AssetInfo) Symbol() string {
	if a.IsNative() {
		return "XLM"
	}
	return a.Code
}

// AssetTypeFromCode determines the Stellar asset type from the code string.
func AssetTypeFromCode(code string) AssetType {
	if code == "XLM" || code == "native" {
		return AssetTypeNative
	}
	if len(code) <= 4 {
		return AssetTypeCreditAlphanum4
	}
	return AssetTypeCreditAlphanum12
}

// NewAssetInfo creates an AssetInfo with the correct type inferred from the code.
func NewAssetInfo(code, issuer string) AssetInfo {
	return AssetInfo{
		Code:   code,
		Issuer: issuer,
		Type:   AssetTypeFromCode(code),
	}
}

// USDCIssuerAddress is Circle's USDC issuer on the Stellar test network.
const USDCIssuerAddress = "GBBD47IF6LWK7P7MDEVSCWR7DPUWV3NY3DTQEVFL4NAT4AQH3ZLLFLA5"

// usdcAsset and xlmAsset are unexported to prevent external mutation.
var (
	usdcAsset = AssetInfo{
		Code:   "USDC",
		Issuer: USDCIssuerAddress,
		Type:   AssetTypeCreditAlphanum4,
	}
	xlmAsset = AssetInfo{
		Code: "XLM",
		Type: AssetTypeNative,
	}
)

// USDCAsset returns the testnet USDC asset info.
func USDCAsset() AssetInfo { return usdcAsset }

// XLMAsset returns the Stellar native asset info.
func XLMAsset() AssetInfo { return xlmAsset }
