package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Dividend struct {
	ID           int64
	StockID      int64
	UserID       int64
	DividendDate string
	Amount       decimal.Decimal
	CreatedAt    time.Time
}
