// Package pos settles point-of-sale carts: payment recording, stock
// decrement and low-stock alert hand-off.
package pos

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	contractx "github.com/tanpawarit/neemo/agent/contract"
	"github.com/tanpawarit/neemo/commerce/alert"
	"github.com/tanpawarit/neemo/commerce/catalog"
	"github.com/tanpawarit/neemo/commerce/model"
)

var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrCustomerRequired = errors.New("customer is required for karnach payment")
	ErrInvalidMethod    = errors.New("unknown payment method")
	ErrInvalidLineItem  = errors.New("invalid cart line")
	ErrShopIDRequired   = errors.New("shop id is required")
)

type PaymentMethod string

const (
	PaymentCash    PaymentMethod = "CASH"
	PaymentKarnach PaymentMethod = "KARNACH"
)

type Sale struct {
	ShopID     uuid.UUID            `json:"shop_id"`
	Items      []contractx.LineItem `json:"items"`
	Method     PaymentMethod        `json:"payment_method"`
	CustomerID uuid.UUID            `json:"customer_id,omitempty"`
}

type Result struct {
	Total         decimal.Decimal    `json:"total"`
	NewBalance    *decimal.Decimal   `json:"new_balance,omitempty"`
	LowStockItems []catalog.Crossing `json:"low_stock_items,omitempty"`
}

type Ledger interface {
	ApplyBalanceDelta(ctx context.Context, delta contractx.BalanceDelta) (decimal.Decimal, error)
	RecordSale(ctx context.Context, shopID uuid.UUID, total decimal.Decimal, items []contractx.LineItem) error
}

type Stock interface {
	ApplySale(ctx context.Context, shopID uuid.UUID, items []contractx.LineItem) (*model.Shop, []catalog.Crossing, error)
}

type AlertQueue interface {
	Enqueue(task alert.Task) bool
}

type Service struct {
	ledger Ledger
	stock  Stock
	alerts AlertQueue
}

func NewService(ledger Ledger, stock Stock, alerts AlertQueue) *Service {
	return &Service{ledger: ledger, stock: stock, alerts: alerts}
}

// ProcessSale records payment first, then decrements stock. A KARNACH sale
// debits the customer's balance, a CASH sale only logs the transaction.
// Products crossing the low-stock threshold are queued for notification and
// returned.
func (s *Service) ProcessSale(ctx context.Context, sale Sale) (Result, error) {
	if err := validate(&sale); err != nil {
		return Result{}, err
	}

	total := decimal.Zero
	for _, item := range sale.Items {
		total = total.Add(item.Total())
	}
	res := Result{Total: total}

	logger := log.Ctx(ctx).With().
		Str("shop_id", sale.ShopID.String()).
		Str("method", string(sale.Method)).
		Str("total", total.String()).
		Logger()

	switch sale.Method {
	case PaymentKarnach:
		balance, err := s.ledger.ApplyBalanceDelta(ctx, contractx.BalanceDelta{
			ShopID:     sale.ShopID,
			CustomerID: sale.CustomerID,
			Amount:     total.Neg(),
			Type:       contractx.TransactionSale,
			Items:      sale.Items,
		})
		if err != nil {
			return Result{}, fmt.Errorf("debit customer: %w", err)
		}
		res.NewBalance = &balance
	case PaymentCash:
		if err := s.ledger.RecordSale(ctx, sale.ShopID, total, sale.Items); err != nil {
			return Result{}, err
		}
	}

	_, crossed, err := s.stock.ApplySale(ctx, sale.ShopID, sale.Items)
	if err != nil {
		// payment is already recorded, the sale stands
		logger.Error().Err(err).Msg("sale recorded but stock update failed")
		return res, nil
	}

	if len(crossed) > 0 {
		res.LowStockItems = crossed
		if s.alerts != nil {
			s.alerts.Enqueue(alert.Task{ShopID: sale.ShopID, Products: crossed})
		}
	}

	logger.Info().Int("items", len(sale.Items)).Int("low_stock", len(crossed)).Msg("sale processed")
	return res, nil
}

func validate(sale *Sale) error {
	if sale.ShopID == uuid.Nil {
		return ErrShopIDRequired
	}
	if len(sale.Items) == 0 {
		return ErrEmptyCart
	}
	for _, item := range sale.Items {
		if strings.TrimSpace(item.Name) == "" || item.Quantity <= 0 || item.Price.IsNegative() {
			return fmt.Errorf("%w: %q", ErrInvalidLineItem, item.Name)
		}
	}

	sale.Method = PaymentMethod(strings.ToUpper(strings.TrimSpace(string(sale.Method))))
	switch sale.Method {
	case PaymentCash:
	case PaymentKarnach:
		if sale.CustomerID == uuid.Nil {
			return ErrCustomerRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMethod, sale.Method)
	}
	return nil
}
