package executor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	contractx "github.com/tanpawarit/neemo/agent/contract"
	"github.com/tanpawarit/neemo/commerce/ledger"
	"github.com/tanpawarit/neemo/commerce/model"
)

type fakeShops struct {
	status map[string]contractx.ShopStatus
	hours  map[string]string
	err    error
	calls  int
}

func newFakeShops() *fakeShops {
	return &fakeShops{status: map[string]contractx.ShopStatus{}, hours: map[string]string{}}
}

func (f *fakeShops) UpdateStatus(ctx context.Context, slug string, status contractx.ShopStatus) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.status[slug] = status
	return nil
}

func (f *fakeShops) UpdateHours(ctx context.Context, slug string, hours string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.hours[slug] = hours
	return nil
}

// memLedgerRepo backs a real ledger.Service so the balance and audit rules
// are exercised end to end.
type memLedgerRepo struct {
	customers []*model.Customer
	txs       []*model.Transaction
	txErr     error
}

func (m *memLedgerRepo) FindCustomerByName(ctx context.Context, shopID uuid.UUID, name string) (*model.Customer, error) {
	for _, c := range m.customers {
		if c.ShopID == shopID && strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return nil, contractx.ErrCustomerNotFound
}

func (m *memLedgerRepo) CreateCustomer(ctx context.Context, c *model.Customer) error {
	m.customers = append(m.customers, c)
	return nil
}

func (m *memLedgerRepo) AddToBalance(ctx context.Context, shopID uuid.UUID, customerID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	for _, c := range m.customers {
		if c.ID == customerID && c.ShopID == shopID {
			c.Balance = c.Balance.Add(delta)
			return c.Balance, nil
		}
	}
	return decimal.Zero, contractx.ErrCustomerNotFound
}

func (m *memLedgerRepo) InsertTransaction(ctx context.Context, tx *model.Transaction) error {
	if m.txErr != nil {
		return m.txErr
	}
	m.txs = append(m.txs, tx)
	return nil
}

var testShop = contractx.ShopRef{ID: uuid.New(), Slug: "hanout-fatima", Name: "Hanout Fatima"}

func TestExecuteUpdateStatusIdempotent(t *testing.T) {
	t.Parallel()

	shops := newFakeShops()
	e := New(shops, ledger.NewService(&memLedgerRepo{}))
	in := contractx.UpdateStatus{Status: contractx.ShopClosed, Confirmation: "Safi, c'est fermé."}

	for i := 0; i < 2; i++ {
		reply, err := e.Execute(context.Background(), testShop, in)
		if err != nil {
			t.Fatalf("Execute() #%d error = %v", i+1, err)
		}
		if reply != "Safi, c'est fermé." {
			t.Fatalf("Execute() #%d reply = %q", i+1, reply)
		}
		if shops.status[testShop.Slug] != contractx.ShopClosed {
			t.Fatalf("status after #%d = %q", i+1, shops.status[testShop.Slug])
		}
	}
}

func TestExecuteStatusFallbackReply(t *testing.T) {
	t.Parallel()

	e := New(newFakeShops(), ledger.NewService(&memLedgerRepo{}))

	reply, err := e.Execute(context.Background(), testShop, contractx.UpdateStatus{Status: contractx.ShopOpen})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if reply != OpenedReply {
		t.Fatalf("reply = %q, want %q", reply, OpenedReply)
	}
}

func TestExecuteUpdateHours(t *testing.T) {
	t.Parallel()

	shops := newFakeShops()
	e := New(shops, ledger.NewService(&memLedgerRepo{}))

	reply, err := e.Execute(context.Background(), testShop, contractx.UpdateHours{Hours: "09:00 - 22:00"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if shops.hours[testShop.Slug] != "09:00 - 22:00" {
		t.Fatalf("hours = %q", shops.hours[testShop.Slug])
	}
	if !strings.Contains(reply, "09:00 - 22:00") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestExecuteShopMutationFailure(t *testing.T) {
	t.Parallel()

	shops := newFakeShops()
	shops.err = contractx.ErrShopNotFound
	e := New(shops, ledger.NewService(&memLedgerRepo{}))

	_, err := e.Execute(context.Background(), testShop, contractx.UpdateStatus{Status: contractx.ShopClosed})
	if !errors.Is(err, contractx.ErrShopNotFound) {
		t.Fatalf("expected ErrShopNotFound, got %v", err)
	}
}

func TestExecuteKarnachRoundTrip(t *testing.T) {
	t.Parallel()

	repo := &memLedgerRepo{}
	e := New(newFakeShops(), ledger.NewService(repo))
	ctx := context.Background()

	reply, err := e.Execute(ctx, testShop, contractx.KarnachDebt{
		Customer:     "Fatima",
		Amount:       decimal.NewFromInt(20),
		Confirmation: "Tsjel 3la Fatima.",
	})
	if err != nil {
		t.Fatalf("Execute(debt) error = %v", err)
	}
	if !strings.HasPrefix(reply, "Tsjel 3la Fatima.\n") || !strings.Contains(reply, "-20.00 DH") {
		t.Fatalf("debt reply = %q", reply)
	}
	if len(repo.customers) != 1 || !repo.customers[0].Balance.Equal(decimal.NewFromInt(-20)) {
		t.Fatalf("customers after debt = %#v", repo.customers)
	}
	if len(repo.txs) != 1 || repo.txs[0].Type != string(contractx.TransactionSale) || !repo.txs[0].TotalAmount.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("transactions after debt = %#v", repo.txs)
	}

	// lower-case name resolves to the same customer
	reply, err = e.Execute(ctx, testShop, contractx.KarnachPayment{Customer: "fatima", Amount: decimal.NewFromInt(20)})
	if err != nil {
		t.Fatalf("Execute(payment) error = %v", err)
	}
	if !strings.HasSuffix(reply, "\nSolde Fatima : 0.00 DH") {
		t.Fatalf("payment reply = %q", reply)
	}
	if len(repo.customers) != 1 || !repo.customers[0].Balance.IsZero() {
		t.Fatalf("customers after payment = %#v", repo.customers)
	}
	if len(repo.txs) != 2 || repo.txs[1].Type != string(contractx.TransactionDebtPayment) || !repo.txs[1].TotalAmount.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("transactions after payment = %#v", repo.txs)
	}
}

func TestExecuteKarnachAuditFailureStillSucceeds(t *testing.T) {
	t.Parallel()

	repo := &memLedgerRepo{txErr: errors.New("insert failed")}
	e := New(newFakeShops(), ledger.NewService(repo))

	reply, err := e.Execute(context.Background(), testShop, contractx.KarnachDebt{Customer: "Ali", Amount: decimal.NewFromInt(15)})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(reply, "-15.00 DH") {
		t.Fatalf("reply = %q", reply)
	}
	if !repo.customers[0].Balance.Equal(decimal.NewFromInt(-15)) {
		t.Fatalf("balance = %s", repo.customers[0].Balance)
	}
}

func TestExecuteOther(t *testing.T) {
	t.Parallel()

	shops := newFakeShops()
	e := New(shops, ledger.NewService(&memLedgerRepo{}))

	reply, err := e.Execute(context.Background(), testShop, contractx.Other{Text: "Salam! Kifach n3awnek?"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if reply != "Salam! Kifach n3awnek?" {
		t.Fatalf("reply = %q", reply)
	}
	if shops.calls != 0 {
		t.Fatal("OTHER must not mutate the shop")
	}

	reply, _ = e.Execute(context.Background(), testShop, contractx.Other{})
	if reply != NoCommandReply {
		t.Fatalf("empty other reply = %q", reply)
	}
}

func TestExecuteNilIntent(t *testing.T) {
	t.Parallel()

	e := New(newFakeShops(), ledger.NewService(&memLedgerRepo{}))
	if _, err := e.Execute(context.Background(), testShop, nil); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
