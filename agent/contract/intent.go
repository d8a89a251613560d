package contract

import "github.com/shopspring/decimal"

type IntentKind string

const (
	IntentUpdateStatus   IntentKind = "UPDATE_STATUS"
	IntentUpdateHours    IntentKind = "UPDATE_HOURS"
	IntentKarnachDebt    IntentKind = "KARNACH_DEBT"
	IntentKarnachPayment IntentKind = "KARNACH_PAYMENT"
	IntentOther          IntentKind = "OTHER"
)

// Intent is the closed set of classified commands. Only the variants in this
// package implement it.
type Intent interface {
	Kind() IntentKind
	// Reply is the classifier-supplied text for the user, possibly empty.
	Reply() string
	isIntent()
}

type UpdateStatus struct {
	Status       ShopStatus
	Confirmation string
}

type UpdateHours struct {
	Hours        string
	Confirmation string
}

// KarnachDebt records that a customer took goods on credit.
type KarnachDebt struct {
	Customer     string
	Amount       decimal.Decimal
	Confirmation string
}

// KarnachPayment records that a customer paid down their debt.
type KarnachPayment struct {
	Customer     string
	Amount       decimal.Decimal
	Confirmation string
}

type Other struct {
	Text string
}

func (UpdateStatus) Kind() IntentKind   { return IntentUpdateStatus }
func (UpdateHours) Kind() IntentKind    { return IntentUpdateHours }
func (KarnachDebt) Kind() IntentKind    { return IntentKarnachDebt }
func (KarnachPayment) Kind() IntentKind { return IntentKarnachPayment }
func (Other) Kind() IntentKind          { return IntentOther }

func (i UpdateStatus) Reply() string   { return i.Confirmation }
func (i UpdateHours) Reply() string    { return i.Confirmation }
func (i KarnachDebt) Reply() string    { return i.Confirmation }
func (i KarnachPayment) Reply() string { return i.Confirmation }
func (i Other) Reply() string          { return i.Text }

func (UpdateStatus) isIntent()   {}
func (UpdateHours) isIntent()    {}
func (KarnachDebt) isIntent()    {}
func (KarnachPayment) isIntent() {}
func (Other) isIntent()          {}
