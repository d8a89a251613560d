package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	contractx "github.com/tanpawarit/neemo/agent/contract"
	"github.com/tanpawarit/neemo/commerce/model"
)

// LedgerStore persists customers and their transactions.
type LedgerStore struct {
	db *bun.DB
}

func NewLedgerStore(db *bun.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// FindCustomerByName matches case-insensitively. Names are not unique, the
// oldest match wins.
func (s *LedgerStore) FindCustomerByName(ctx context.Context, shopID uuid.UUID, name string) (*model.Customer, error) {
	c := new(model.Customer)
	err := s.db.NewSelect().
		Model(c).
		Where("shop_id = ?", shopID).
		Where("lower(name) = lower(?)", strings.TrimSpace(name)).
		OrderExpr("created_at ASC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contractx.ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find customer: %w", err)
	}
	return c, nil
}

func (s *LedgerStore) CreateCustomer(ctx context.Context, c *model.Customer) error {
	if _, err := s.db.NewInsert().Model(c).Returning("*").Exec(ctx); err != nil {
		return fmt.Errorf("create customer: %w", err)
	}
	return nil
}

// AddToBalance applies delta in a single statement so concurrent updates on
// the same customer never lose a change.
func (s *LedgerStore) AddToBalance(ctx context.Context, shopID uuid.UUID, customerID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.db.NewUpdate().
		Model((*model.Customer)(nil)).
		Set("balance = balance + ?", delta).
		Where("id = ?", customerID).
		Where("shop_id = ?", shopID).
		Returning("balance").
		Scan(ctx, &balance)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, contractx.ErrCustomerNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("update balance: %w", err)
	}
	return balance, nil
}

func (s *LedgerStore) InsertTransaction(ctx context.Context, tx *model.Transaction) error {
	if _, err := s.db.NewInsert().Model(tx).Exec(ctx); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}
