package database

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicate          = errors.New("already exists")
	ErrInsufficientFunds  = errors.New("insufficient balance")
	ErrInsufficientShares = errors.New("insufficient shares")
)

type User struct {
	ID             string          `db:"id" json:"id"`
	Email          string          `db:"email" json:"email"`
	DisplayName    string          `db:"display_name" json:"displayName"`
	VirtualBalance decimal.Decimal `db:"virtual_balance" json:"virtualBalance"`
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updatedAt"`
}

type Position struct {
	UserID        string          `db:"user_id" json:"-"`
	Symbol        string          `db:"symbol" json:"symbol"`
	Quantity      decimal.Decimal `db:"quantity" json:"quantity"`
	AveragePrice  decimal.Decimal `db:"average_price" json:"averagePrice"`
	TotalInvested decimal.Decimal `db:"total_invested" json:"totalInvested"`
	LastUpdated   time.Time       `db:"last_updated" json:"lastUpdated"`
}

type Transaction struct {
	ID          string          `db:"id" json:"transactionId"`
	UserID      string          `db:"user_id" json:"-"`
	Symbol      string          `db:"symbol" json:"symbol"`
	Side        string          `db:"side" json:"side"`
	Quantity    decimal.Decimal `db:"quantity" json:"quantity"`
	Price       decimal.Decimal `db:"price" json:"price"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"totalAmount"`
	CreatedAt   time.Time       `db:"created_at" json:"timestamp"`
	ExpiresAt   *time.Time      `db:"expires_at" json:"-"`
}

type WatchlistItem struct {
	UserID  string    `db:"user_id" json:"-"`
	Symbol  string    `db:"symbol" json:"symbol"`
	Note    string    `db:"note" json:"note,omitempty"`
	AddedAt time.Time `db:"added_at" json:"addedAt"`
}

// TradeResult reports the outcome of a buy or sell after commit.
type TradeResult struct {
	TransactionID string          `json:"transactionId"`
	Symbol        string          `json:"symbol"`
	Side          string          `json:"side"`
	Quantity      decimal.Decimal `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	RealizedPnL   decimal.Decimal `json:"realizedPnL"`
	NewBalance    decimal.Decimal `json:"newBalance"`
}
