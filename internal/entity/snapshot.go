package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ChainSnapshot is the reconciled presale state for a single chain.
// All amounts are human units (raw on-chain integers divided by the
// token's declared decimals).
type ChainSnapshot struct {
	ChainID            uint64
	SaleStatus         bool
	TotalTokensSold    decimal.Decimal
	TotalTokensForSale decimal.Decimal
	Prices             map[string]decimal.Decimal
	Balances           map[string]decimal.Decimal
	LockedAmount       decimal.Decimal
}

// PurchaseReceipt records a confirmed buy or unlock transaction.
type PurchaseReceipt struct {
	Kind      string          `json:"kind"` // "buy" or "unlock"
	ChainID   uint64          `json:"chain_id"`
	Buyer     string          `json:"buyer"`
	PaySymbol string          `json:"pay_symbol,omitempty"`
	PayAmount decimal.Decimal `json:"pay_amount,omitempty"`
	TxHash    string          `json:"tx_hash"`
	Time      time.Time       `json:"time"`
}

// PurchaseReceiptRecord bundles a receipt with the journal index it came from.
type PurchaseReceiptRecord struct {
	Index   uint64
	Receipt PurchaseReceipt
}
