package contract

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ShopDirectory interface {
	// LookupShopsByPhone returns the shops administered by a canonical phone
	// number in a stable order. Selection indices refer to this order.
	LookupShopsByPhone(ctx context.Context, phone string) ([]ShopRef, error)
}

// SessionStore tracks which shop a multi-shop sender is piloting.
// GetActiveSlug returns ErrSessionNotFound when no session exists.
type SessionStore interface {
	GetActiveSlug(ctx context.Context, phone string) (string, error)
	SetActiveSlug(ctx context.Context, phone string, slug string) error
	ClearSession(ctx context.Context, phone string) error
	Touch(ctx context.Context, phone string) error
}

type IntentClassifier interface {
	Classify(ctx context.Context, text string) (Intent, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, mediaURL string) (string, error)
}

type ImageExtractor interface {
	ExtractInvoice(ctx context.Context, mediaURL string) (InvoiceExtraction, error)
	ExtractShelf(ctx context.Context, mediaURL string) (ShelfExtraction, error)
}

type ShopMutator interface {
	UpdateStatus(ctx context.Context, slug string, status ShopStatus) error
	UpdateHours(ctx context.Context, slug string, hours string) error
}

type Ledger interface {
	FindOrCreateCustomer(ctx context.Context, shopID uuid.UUID, name string) (Customer, error)
	ApplyBalanceDelta(ctx context.Context, delta BalanceDelta) (decimal.Decimal, error)
}

type CommandExecutor interface {
	Execute(ctx context.Context, shop ShopRef, intent Intent) (string, error)
}
