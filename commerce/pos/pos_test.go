package pos

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contractx "github.com/tanpawarit/neemo/agent/contract"
	"github.com/tanpawarit/neemo/commerce/alert"
	"github.com/tanpawarit/neemo/commerce/catalog"
	"github.com/tanpawarit/neemo/commerce/model"
)

type mockLedger struct {
	deltas  []contractx.BalanceDelta
	sales   []decimal.Decimal
	balance decimal.Decimal
	saleErr error
}

func (m *mockLedger) ApplyBalanceDelta(_ context.Context, delta contractx.BalanceDelta) (decimal.Decimal, error) {
	m.deltas = append(m.deltas, delta)
	m.balance = m.balance.Add(delta.Amount)
	return m.balance, nil
}

func (m *mockLedger) RecordSale(_ context.Context, _ uuid.UUID, total decimal.Decimal, _ []contractx.LineItem) error {
	if m.saleErr != nil {
		return m.saleErr
	}
	m.sales = append(m.sales, total)
	return nil
}

type mockStock struct {
	products []model.Product
	err      error
	calls    int
}

func (m *mockStock) ApplySale(_ context.Context, _ uuid.UUID, items []contractx.LineItem) (*model.Shop, []catalog.Crossing, error) {
	m.calls++
	if m.err != nil {
		return nil, nil, m.err
	}
	updated, crossed, _ := catalog.ApplySale(m.products, items)
	m.products = updated
	return &model.Shop{Products: updated}, crossed, nil
}

type mockQueue struct {
	tasks []alert.Task
}

func (m *mockQueue) Enqueue(task alert.Task) bool {
	m.tasks = append(m.tasks, task)
	return true
}

func setup() (*Service, *mockLedger, *mockStock, *mockQueue) {
	ledger := &mockLedger{}
	stock := &mockStock{products: []model.Product{
		{Name: "Coca", Price: decimal.NewFromInt(6), Quantity: 8},
		{Name: "Pain", Price: decimal.NewFromInt(2), Quantity: 3},
	}}
	queue := &mockQueue{}
	return NewService(ledger, stock, queue), ledger, stock, queue
}

func TestProcessSaleKarnach(t *testing.T) {
	svc, ledger, stock, queue := setup()
	shopID, customerID := uuid.New(), uuid.New()

	res, err := svc.ProcessSale(context.Background(), Sale{
		ShopID: shopID,
		Items: []contractx.LineItem{
			{Name: "coca", Price: decimal.NewFromInt(6), Quantity: 5},
			{Name: "Pain", Price: decimal.NewFromInt(2), Quantity: 2},
		},
		Method:     "karnach",
		CustomerID: customerID,
	})
	require.NoError(t, err)

	assert.True(t, res.Total.Equal(decimal.NewFromInt(34)))
	require.NotNil(t, res.NewBalance)
	assert.True(t, res.NewBalance.Equal(decimal.NewFromInt(-34)))

	require.Len(t, ledger.deltas, 1)
	assert.Equal(t, contractx.TransactionSale, ledger.deltas[0].Type)
	assert.True(t, ledger.deltas[0].Amount.Equal(decimal.NewFromInt(-34)))
	assert.Equal(t, customerID, ledger.deltas[0].CustomerID)
	assert.Len(t, ledger.deltas[0].Items, 2)
	assert.Empty(t, ledger.sales)

	assert.Equal(t, 3.0, stock.products[0].Quantity.Float())
	assert.Equal(t, 1.0, stock.products[1].Quantity.Float())

	require.Len(t, res.LowStockItems, 1)
	assert.Equal(t, "Coca", res.LowStockItems[0].Name)
	require.Len(t, queue.tasks, 1)
	assert.Equal(t, shopID, queue.tasks[0].ShopID)
}

func TestProcessSaleCash(t *testing.T) {
	svc, ledger, _, queue := setup()

	res, err := svc.ProcessSale(context.Background(), Sale{
		ShopID: uuid.New(),
		Items:  []contractx.LineItem{{Name: "Pain", Price: decimal.NewFromInt(2), Quantity: 1}},
		Method: PaymentCash,
	})
	require.NoError(t, err)
	assert.Nil(t, res.NewBalance)
	assert.Empty(t, ledger.deltas)
	require.Len(t, ledger.sales, 1)
	assert.True(t, ledger.sales[0].Equal(decimal.NewFromInt(2)))
	assert.Empty(t, queue.tasks, "already-low product must not alert")
}

func TestProcessSaleCashLogFailureIsFatal(t *testing.T) {
	svc, ledger, stock, _ := setup()
	ledger.saleErr = errors.New("insert failed")

	_, err := svc.ProcessSale(context.Background(), Sale{
		ShopID: uuid.New(),
		Items:  []contractx.LineItem{{Name: "Coca", Price: decimal.NewFromInt(6), Quantity: 1}},
		Method: PaymentCash,
	})
	require.Error(t, err)
	assert.Equal(t, 0, stock.calls, "stock must not move when the sale was not recorded")
}

func TestProcessSaleStockFailureKeepsSale(t *testing.T) {
	svc, ledger, stock, queue := setup()
	stock.err = errors.New("lock timeout")

	res, err := svc.ProcessSale(context.Background(), Sale{
		ShopID: uuid.New(),
		Items:  []contractx.LineItem{{Name: "Coca", Price: decimal.NewFromInt(6), Quantity: 5}},
		Method: PaymentCash,
	})
	require.NoError(t, err)
	assert.True(t, res.Total.Equal(decimal.NewFromInt(30)))
	assert.Len(t, ledger.sales, 1)
	assert.Empty(t, queue.tasks)
}

func TestProcessSaleValidation(t *testing.T) {
	svc, ledger, stock, _ := setup()
	ctx := context.Background()
	item := []contractx.LineItem{{Name: "Coca", Price: decimal.NewFromInt(6), Quantity: 1}}

	_, err := svc.ProcessSale(ctx, Sale{ShopID: uuid.New(), Method: PaymentCash})
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = svc.ProcessSale(ctx, Sale{ShopID: uuid.New(), Items: item, Method: PaymentKarnach})
	assert.ErrorIs(t, err, ErrCustomerRequired)

	_, err = svc.ProcessSale(ctx, Sale{ShopID: uuid.New(), Items: item, Method: "CARD"})
	assert.ErrorIs(t, err, ErrInvalidMethod)

	_, err = svc.ProcessSale(ctx, Sale{Items: item, Method: PaymentCash})
	assert.ErrorIs(t, err, ErrShopIDRequired)

	_, err = svc.ProcessSale(ctx, Sale{ShopID: uuid.New(), Items: []contractx.LineItem{{Name: "Coca", Quantity: 0}}, Method: PaymentCash})
	assert.ErrorIs(t, err, ErrInvalidLineItem)

	assert.Empty(t, ledger.deltas)
	assert.Empty(t, ledger.sales)
	assert.Equal(t, 0, stock.calls)
}
