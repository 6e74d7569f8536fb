package httpapi

import (
	"time"

	"github.com/dmitrijs2005/divkeeper/internal/server/models"
	"github.com/shopspring/decimal"
)

// number is a decimal that travels as a bare JSON number. Quoted numbers
// are accepted on input.
type number decimal.Decimal

func (n number) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(n).String()), nil
}

func (n *number) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if string(b) == "null" {
		*n = number(decimal.Zero)
		return nil
	}
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	*n = number(d)
	return nil
}

func (n number) dec() decimal.Decimal { return decimal.Decimal(n) }

type dividendDTO struct {
	ID     int64  `json:"id"`
	Date   string `json:"date"`
	Amount number `json:"amount"`
}

type stockDTO struct {
	ID            int64         `json:"id"`
	AccountName   string        `json:"accountName"`
	StockName     string        `json:"stockName"`
	StockCode     string        `json:"stockCode"`
	PurchasePrice number        `json:"purchasePrice"`
	Shares        int64         `json:"shares"`
	TotalAmount   number        `json:"totalAmount"`
	DividendCycle string        `json:"dividendCycle"`
	CurrentPrice  number        `json:"currentPrice"`
	SellAmount    number        `json:"sellAmount"`
	IsSold        bool          `json:"isSold"`
	Dividends     []dividendDTO `json:"dividends"`
}

func toStockDTO(s models.Stock) stockDTO {
	out := stockDTO{
		ID:            s.ID,
		AccountName:   s.AccountName,
		StockName:     s.StockName,
		StockCode:     s.StockCode,
		PurchasePrice: number(s.PurchasePrice),
		Shares:        s.Shares,
		TotalAmount:   number(s.TotalAmount),
		DividendCycle: s.DividendCycle,
		CurrentPrice:  number(s.CurrentPrice),
		SellAmount:    number(s.SellAmount),
		IsSold:        s.IsSold,
		Dividends:     make([]dividendDTO, 0, len(s.Dividends)),
	}
	for _, d := range s.Dividends {
		out.Dividends = append(out.Dividends, dividendDTO{ID: d.ID, Date: d.DividendDate, Amount: number(d.Amount)})
	}
	return out
}

type createStockRequest struct {
	AccountName   string `json:"accountName"`
	StockName     string `json:"stockName"`
	StockCode     string `json:"stockCode"`
	PurchasePrice number `json:"purchasePrice"`
	Shares        int64  `json:"shares"`
	TotalAmount   number `json:"totalAmount"`
	DividendCycle string `json:"dividendCycle"`
}

func (r createStockRequest) model() *models.Stock {
	return &models.Stock{
		AccountName:   r.AccountName,
		StockName:     r.StockName,
		StockCode:     r.StockCode,
		PurchasePrice: r.PurchasePrice.dec(),
		Shares:        r.Shares,
		TotalAmount:   r.TotalAmount.dec(),
		DividendCycle: r.DividendCycle,
	}
}

// updateStockRequest is either a sale edit (isSold present) or a purchase
// edit.
type updateStockRequest struct {
	Shares        int64  `json:"shares"`
	TotalAmount   number `json:"totalAmount"`
	PurchasePrice number `json:"purchasePrice"`
	SellAmount    number `json:"sellAmount"`
	IsSold        *bool  `json:"isSold"`
}

func (r updateStockRequest) model() models.StockUpdate {
	upd := models.StockUpdate{
		Shares:        r.Shares,
		TotalAmount:   r.TotalAmount.dec(),
		PurchasePrice: r.PurchasePrice.dec(),
	}
	if r.IsSold != nil {
		upd.Sale = &models.Sale{SellAmount: r.SellAmount.dec(), IsSold: *r.IsSold}
	}
	return upd
}

type createDividendRequest struct {
	StockID int64  `json:"stockId"`
	Date    string `json:"date"`
	Amount  number `json:"amount"`
}

type updatePriceRequest struct {
	StockID      int64  `json:"stockId"`
	CurrentPrice number `json:"currentPrice"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userDTO struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"isAdmin"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserDTO(u *models.User) userDTO {
	return userDTO{ID: u.ID, Email: u.Email, IsAdmin: u.IsAdmin, IsActive: u.IsActive, CreatedAt: u.CreatedAt}
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"isAdmin"`
}

type updateUserRequest struct {
	Password *string `json:"password"`
	IsAdmin  *bool   `json:"isAdmin"`
	IsActive *bool   `json:"isActive"`
}
