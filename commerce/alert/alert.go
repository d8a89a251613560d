// Package alert delivers low-stock notifications to shop owners outside of
// the sale request path.
package alert

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/neemo/commerce/catalog"
	"github.com/tanpawarit/neemo/commerce/model"
)

// Task asks for one shop owner to be told about products that just crossed
// the low-stock threshold.
type Task struct {
	ShopID   uuid.UUID          `json:"shop_id"`
	Products []catalog.Crossing `json:"products"`
}

func (t Task) Validate() error {
	if t.ShopID == uuid.Nil {
		return errors.New("alert task: shop id is empty")
	}
	if len(t.Products) == 0 {
		return errors.New("alert task: no products")
	}
	return nil
}

// Handler processes one task. Implementations must be safe for concurrent use.
type Handler func(ctx context.Context, task Task) error

type ShopReader interface {
	GetShop(ctx context.Context, id uuid.UUID) (*model.Shop, error)
}

type Sender interface {
	Send(ctx context.Context, to string, body string) (string, error)
}

// Notifier sends the alert over WhatsApp to the shop's phone.
type Notifier struct {
	shops  ShopReader
	sender Sender
}

func NewNotifier(shops ShopReader, sender Sender) *Notifier {
	return &Notifier{shops: shops, sender: sender}
}

func (n *Notifier) Notify(ctx context.Context, task Task) error {
	if err := task.Validate(); err != nil {
		return err
	}

	shop, err := n.shops.GetShop(ctx, task.ShopID)
	if err != nil {
		return fmt.Errorf("load shop for alert: %w", err)
	}
	if strings.TrimSpace(shop.Phone) == "" {
		log.Ctx(ctx).Warn().Str("shop_id", shop.ID.String()).Msg("low-stock alert skipped, shop has no phone")
		return nil
	}

	sid, err := n.sender.Send(ctx, shop.Phone, ComposeMessage(shop.Name, task.Products))
	if err != nil {
		return fmt.Errorf("send low-stock alert: %w", err)
	}

	log.Ctx(ctx).Info().
		Str("shop_id", shop.ID.String()).
		Str("sid", sid).
		Int("items", len(task.Products)).
		Msg("low-stock alert sent")
	return nil
}

func ComposeMessage(shopName string, products []catalog.Crossing) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚨 *Alerte Stock Immédiate - %s*\n\n", shopName)
	b.WriteString("Des produits viennent de passer en stock critique :\n")
	for _, p := range products {
		fmt.Fprintf(&b, "- %s (Reste: %s)\n", p.Name, strconv.FormatFloat(p.After, 'f', -1, 64))
	}
	b.WriteString("\nPensez au réapprovisionnement !")
	return b.String()
}
