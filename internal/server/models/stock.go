package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stock is one holding owned by a user. Dividends are populated only by
// listing queries.
type Stock struct {
	ID            int64
	UserID        int64
	AccountName   string
	StockName     string
	StockCode     string
	PurchasePrice decimal.Decimal
	Shares        int64
	TotalAmount   decimal.Decimal
	DividendCycle string
	CurrentPrice  decimal.Decimal
	SellAmount    decimal.Decimal
	IsSold        bool
	CreatedAt     time.Time

	Dividends []Dividend
}

// StockUpdate carries an edit to an existing holding. When Sale is set the
// sell amount and sold flag are written; otherwise the purchase price.
type StockUpdate struct {
	Shares        int64
	TotalAmount   decimal.Decimal
	PurchasePrice decimal.Decimal
	Sale          *Sale
}

type Sale struct {
	SellAmount decimal.Decimal
	IsSold     bool
}
