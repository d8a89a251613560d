package contract

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Media is one attachment of an inbound WhatsApp message.
type Media struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
}

func (m Media) IsImage() bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(m.ContentType)), "image/")
}

func (m Media) IsAudio() bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(m.ContentType)), "audio/")
}

type InboundMessage struct {
	From  string  `json:"from"`
	Body  string  `json:"body"`
	Media []Media `json:"media,omitempty"`
}

type Reply struct {
	Text string `json:"text"`
}

// ShopRef is the directory view of a shop administered by a phone number.
type ShopRef struct {
	ID    uuid.UUID `json:"id"`
	Slug  string    `json:"slug"`
	Name  string    `json:"name"`
	Phone string    `json:"phone,omitempty"`
}

type ShopStatus string

const (
	ShopOpen   ShopStatus = "open"
	ShopClosed ShopStatus = "closed"
)

func ParseShopStatus(raw string) (ShopStatus, bool) {
	switch ShopStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case ShopOpen:
		return ShopOpen, true
	case ShopClosed:
		return ShopClosed, true
	default:
		return "", false
	}
}

type TransactionType string

const (
	TransactionSale        TransactionType = "SALE"
	TransactionCreditAdd   TransactionType = "CREDIT_ADD"
	TransactionDebtPayment TransactionType = "DEBT_PAYMENT"
)

type Customer struct {
	ID      uuid.UUID       `json:"id"`
	ShopID  uuid.UUID       `json:"shop_id"`
	Name    string          `json:"name"`
	Phone   string          `json:"phone,omitempty"`
	Balance decimal.Decimal `json:"balance"`
}

// LineItem is a sold or invoiced product line.
type LineItem struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity float64         `json:"quantity"`
}

func (l LineItem) Total() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromFloat(l.Quantity))
}

// BalanceDelta is a signed change to a customer balance.
// Negative means the customer owes more.
type BalanceDelta struct {
	ShopID     uuid.UUID
	CustomerID uuid.UUID
	Amount     decimal.Decimal
	Type       TransactionType
	Items      []LineItem
	At         time.Time
}

type InvoiceExtraction struct {
	Supplier string          `json:"supplier"`
	Date     string          `json:"date"`
	Total    decimal.Decimal `json:"total"`
	Items    []LineItem      `json:"items"`
}

type ShelfProduct struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
}

type ShelfExtraction struct {
	Products []ShelfProduct `json:"products"`
}
