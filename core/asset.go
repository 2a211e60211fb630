package core

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// TokenBalance holds the fungible balance reported by the indexer
type TokenBalance struct {
	Symbol   *string          `json:"symbol,omitempty"`
	Balance  *decimal.Decimal `json:"balance,omitempty"`
	Decimals *int             `json:"decimals,omitempty"`
	UIAmount *decimal.Decimal `json:"uiAmount,omitempty"`
}

// UnmarshalJSON accepts the UI amount under either ui_amount or uiAmount
func (b *TokenBalance) UnmarshalJSON(data []byte) error {
	type plain TokenBalance
	var aux struct {
		plain
		SnakeUIAmount *decimal.Decimal `json:"ui_amount,omitempty"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*b = TokenBalance(aux.plain)
	if b.UIAmount == nil {
		b.UIAmount = aux.SnakeUIAmount
	}
	return nil
}

// VintageAsset is a fungible vintage token held by the connected wallet
type VintageAsset struct {
	Mint      string        `json:"mint"`
	Name      *string       `json:"name"`
	Symbol    *string       `json:"symbol"`
	URI       *string       `json:"uri"`
	TokenInfo *TokenBalance `json:"tokenInfo"`
}

// Amount returns the display amount: the UI amount when reported, otherwise
// balance scaled by decimals, otherwise "-".
func (a VintageAsset) Amount() string {
	if a.TokenInfo == nil {
		return "-"
	}
	if a.TokenInfo.UIAmount != nil {
		return a.TokenInfo.UIAmount.String()
	}
	if a.TokenInfo.Balance != nil && a.TokenInfo.Decimals != nil {
		return a.TokenInfo.Balance.Shift(int32(-*a.TokenInfo.Decimals)).String()
	}
	return "-"
}

// Decimals returns the token decimals, zero when unknown
func (a VintageAsset) Decimals() int {
	if a.TokenInfo == nil || a.TokenInfo.Decimals == nil {
		return 0
	}
	return *a.TokenInfo.Decimals
}

// IndexedAsset is an asset as returned by the owner indexer, before filtering
type IndexedAsset struct {
	ID          string
	Authorities []string
	Name        *string
	Symbol      *string
	JSONURI     *string
	TokenInfo   *TokenBalance
}
