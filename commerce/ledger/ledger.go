// Package ledger maintains customer credit balances ("Karnach") and their
// append-only transaction log.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	contractx "github.com/tanpawarit/neemo/agent/contract"
	"github.com/tanpawarit/neemo/commerce/model"
)

var (
	ErrInvalidAmount = errors.New("amount must be non-zero")
	ErrInvalidName   = errors.New("customer name is empty")
)

type Repository interface {
	FindCustomerByName(ctx context.Context, shopID uuid.UUID, name string) (*model.Customer, error)
	CreateCustomer(ctx context.Context, c *model.Customer) error
	AddToBalance(ctx context.Context, shopID uuid.UUID, customerID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
	InsertTransaction(ctx context.Context, tx *model.Transaction) error
}

var _ contractx.Ledger = (*Service)(nil)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) FindOrCreateCustomer(ctx context.Context, shopID uuid.UUID, name string) (contractx.Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return contractx.Customer{}, ErrInvalidName
	}

	existing, err := s.repo.FindCustomerByName(ctx, shopID, name)
	if err == nil {
		return existing.Contract(), nil
	}
	if !errors.Is(err, contractx.ErrCustomerNotFound) {
		return contractx.Customer{}, err
	}

	c := &model.Customer{
		ID:        uuid.New(),
		ShopID:    shopID,
		Name:      name,
		Balance:   decimal.Zero,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateCustomer(ctx, c); err != nil {
		return contractx.Customer{}, err
	}
	log.Ctx(ctx).Info().
		Str("shop_id", shopID.String()).
		Str("customer", name).
		Msg("ledger customer created")
	return c.Contract(), nil
}

// ApplyBalanceDelta changes the balance then appends the audit record. The
// balance write is authoritative: an audit failure is logged and does not
// fail the call.
func (s *Service) ApplyBalanceDelta(ctx context.Context, delta contractx.BalanceDelta) (decimal.Decimal, error) {
	if delta.Amount.IsZero() {
		return decimal.Zero, ErrInvalidAmount
	}

	balance, err := s.repo.AddToBalance(ctx, delta.ShopID, delta.CustomerID, delta.Amount)
	if err != nil {
		return decimal.Zero, err
	}

	at := delta.At
	if at.IsZero() {
		at = s.now()
	}
	tx := &model.Transaction{
		ID:          uuid.New(),
		ShopID:      delta.ShopID,
		CustomerID:  uuid.NullUUID{UUID: delta.CustomerID, Valid: true},
		TotalAmount: delta.Amount.Abs(),
		Type:        string(delta.Type),
		Items:       delta.Items,
		CreatedAt:   at.UTC(),
	}
	if err := s.repo.InsertTransaction(ctx, tx); err != nil {
		log.Ctx(ctx).Warn().Err(err).
			Str("shop_id", delta.ShopID.String()).
			Str("customer_id", delta.CustomerID.String()).
			Str("amount", delta.Amount.String()).
			Str("type", string(delta.Type)).
			Str("new_balance", balance.String()).
			Msg("ledger audit insert failed, balance already updated")
	}

	return balance, nil
}

// RecordSale logs a cash sale with no customer. Unlike balance changes, the
// transaction row is the only record of the sale, so failures are returned.
func (s *Service) RecordSale(ctx context.Context, shopID uuid.UUID, total decimal.Decimal, items []contractx.LineItem) error {
	tx := &model.Transaction{
		ID:          uuid.New(),
		ShopID:      shopID,
		TotalAmount: total.Abs(),
		Type:        string(contractx.TransactionSale),
		Items:       items,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.InsertTransaction(ctx, tx); err != nil {
		return fmt.Errorf("record cash sale: %w", err)
	}
	return nil
}
