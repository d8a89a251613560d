// Package model holds the bun row types backing shops, their embedded
// catalogs, customer ledgers and WhatsApp sessions.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	contractx "github.com/tanpawarit/neemo/agent/contract"
)

type Shop struct {
	bun.BaseModel `bun:"table:shops,alias:s"`

	ID        uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Slug      string    `bun:"slug,notnull,unique"`
	Name      string    `bun:"name,notnull"`
	Phone     string    `bun:"phone,notnull"`
	Status    string    `bun:"status,notnull,default:'open'"`
	Hours     string    `bun:"hours,nullzero"`
	Category  string    `bun:"category,nullzero"`
	Address   string    `bun:"address,nullzero"`
	Products  []Product `bun:"products,type:jsonb,notnull,default:'[]'"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

func (s *Shop) Ref() contractx.ShopRef {
	return contractx.ShopRef{
		ID:    s.ID,
		Slug:  s.Slug,
		Name:  s.Name,
		Phone: s.Phone,
	}
}

// Product is embedded in Shop.Products. Name is the natural key, matched
// case-insensitively.
type Product struct {
	Name        string           `json:"name"`
	Price       decimal.Decimal  `json:"price"`
	Quantity    Quantity         `json:"quantity"`
	BuyingPrice *decimal.Decimal `json:"buying_price,omitempty"`
	ImageURL    string           `json:"image_url,omitempty"`
}

type Customer struct {
	bun.BaseModel `bun:"table:customers,alias:c"`

	ID        uuid.UUID       `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	ShopID    uuid.UUID       `bun:"shop_id,type:uuid,notnull"`
	Name      string          `bun:"name,notnull"`
	Phone     string          `bun:"phone,nullzero"`
	Balance   decimal.Decimal `bun:"balance,type:numeric(12,2),notnull,default:0"`
	CreatedAt time.Time       `bun:"created_at,notnull,default:current_timestamp"`
}

func (c *Customer) Contract() contractx.Customer {
	return contractx.Customer{
		ID:      c.ID,
		ShopID:  c.ShopID,
		Name:    c.Name,
		Phone:   c.Phone,
		Balance: c.Balance,
	}
}

// Transaction is append-only. TotalAmount is always a magnitude.
type Transaction struct {
	bun.BaseModel `bun:"table:transactions,alias:t"`

	ID          uuid.UUID            `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	ShopID      uuid.UUID            `bun:"shop_id,type:uuid,notnull"`
	CustomerID  uuid.NullUUID        `bun:"customer_id,type:uuid"`
	TotalAmount decimal.Decimal      `bun:"total_amount,type:numeric(12,2),notnull"`
	Type        string               `bun:"type,notnull"`
	Items       []contractx.LineItem `bun:"items,type:jsonb,nullzero"`
	CreatedAt   time.Time            `bun:"created_at,notnull,default:current_timestamp"`
}

type SessionRow struct {
	bun.BaseModel `bun:"table:whatsapp_sessions,alias:ws"`

	Phone           string    `bun:"phone,pk"`
	ActiveShopSlug  string    `bun:"active_shop_slug,notnull"`
	LastInteraction time.Time `bun:"last_interaction,notnull,default:current_timestamp"`
}
