// Package executor applies a classified intent to the target shop.
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/neemo/agent/contract"
)

// Fixed confirmations used when the classifier supplied no reply text.
const (
	OpenedReply       = "Safi, l7anout m7loula ✅"
	ClosedReply       = "Safi, l7anout msdouda 🔒"
	HoursReply        = "D'accord, horaires mis à jour : %s"
	DebtReply         = "Tsjel l karnach dyal %s : %s DH."
	PaymentReply      = "Tkhlss %s DH mn 3nd %s."
	NoCommandReply    = "Fhamt walou."
	balanceLineFormat = "Solde %s : %s DH"
)

var _ contractx.CommandExecutor = (*Executor)(nil)

type Executor struct {
	shops  contractx.ShopMutator
	ledger contractx.Ledger
	now    func() time.Time
}

func New(shops contractx.ShopMutator, ledger contractx.Ledger) *Executor {
	return &Executor{shops: shops, ledger: ledger, now: time.Now}
}

// Execute performs at most one mutation and returns the reply text. A
// mutation failure is returned as an error and the router answers with its
// technical-error text.
func (e *Executor) Execute(ctx context.Context, shop contractx.ShopRef, in contractx.Intent) (string, error) {
	if in == nil {
		return "", fmt.Errorf("%w: intent is required", contractx.ErrValidation)
	}

	logger := log.Ctx(ctx).With().Str("shop", shop.Slug).Str("intent", string(in.Kind())).Logger()

	switch v := in.(type) {
	case contractx.UpdateStatus:
		if err := e.shops.UpdateStatus(ctx, shop.Slug, v.Status); err != nil {
			return "", fmt.Errorf("update status: %w", err)
		}
		logger.Info().Str("status", string(v.Status)).Msg("shop status updated")
		if v.Status == contractx.ShopOpen {
			return replyOr(v.Confirmation, OpenedReply), nil
		}
		return replyOr(v.Confirmation, ClosedReply), nil

	case contractx.UpdateHours:
		if err := e.shops.UpdateHours(ctx, shop.Slug, v.Hours); err != nil {
			return "", fmt.Errorf("update hours: %w", err)
		}
		logger.Info().Str("hours", v.Hours).Msg("shop hours updated")
		return replyOr(v.Confirmation, fmt.Sprintf(HoursReply, v.Hours)), nil

	case contractx.KarnachDebt:
		delta := contractx.BalanceDelta{Amount: v.Amount.Neg(), Type: contractx.TransactionSale}
		fallback := fmt.Sprintf(DebtReply, v.Customer, v.Amount.StringFixed(2))
		return e.applyLedger(ctx, shop, v.Customer, delta, replyOr(v.Confirmation, fallback))

	case contractx.KarnachPayment:
		delta := contractx.BalanceDelta{Amount: v.Amount, Type: contractx.TransactionDebtPayment}
		fallback := fmt.Sprintf(PaymentReply, v.Amount.StringFixed(2), v.Customer)
		return e.applyLedger(ctx, shop, v.Customer, delta, replyOr(v.Confirmation, fallback))

	case contractx.Other:
		return replyOr(v.Text, NoCommandReply), nil

	default:
		return "", fmt.Errorf("%w: unsupported intent %T", contractx.ErrValidation, in)
	}
}

func (e *Executor) applyLedger(
	ctx context.Context,
	shop contractx.ShopRef,
	name string,
	delta contractx.BalanceDelta,
	reply string,
) (string, error) {
	customer, err := e.ledger.FindOrCreateCustomer(ctx, shop.ID, name)
	if err != nil {
		return "", fmt.Errorf("find or create customer: %w", err)
	}

	delta.ShopID = shop.ID
	delta.CustomerID = customer.ID
	delta.At = e.now()

	balance, err := e.ledger.ApplyBalanceDelta(ctx, delta)
	if err != nil {
		return "", fmt.Errorf("apply balance delta: %w", err)
	}

	log.Ctx(ctx).Info().
		Str("shop", shop.Slug).
		Str("customer_id", customer.ID.String()).
		Str("type", string(delta.Type)).
		Str("amount", delta.Amount.String()).
		Str("balance", balance.String()).
		Msg("karnach balance updated")

	return reply + "\n" + fmt.Sprintf(balanceLineFormat, customer.Name, balance.StringFixed(2)), nil
}

func replyOr(text, fallback string) string {
	if t := strings.TrimSpace(text); t != "" {
		return t
	}
	return fallback
}
