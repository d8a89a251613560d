package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	contractx "github.com/tanpawarit/neemo/agent/contract"
	"github.com/tanpawarit/neemo/commerce/model"
	"github.com/tanpawarit/neemo/pkg/phone"
)

var (
	_ contractx.ShopDirectory = (*ShopStore)(nil)
	_ contractx.ShopMutator   = (*ShopStore)(nil)
)

// ShopStore reads and mutates shops rows.
type ShopStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewShopStore(db *bun.DB) *ShopStore {
	return &ShopStore{db: db, now: time.Now}
}

// LookupShopsByPhone matches the canonical phone and the legacy
// "whatsapp:"-prefixed form some rows were onboarded with.
func (s *ShopStore) LookupShopsByPhone(ctx context.Context, number string) ([]contractx.ShopRef, error) {
	canonical := phone.Normalize(number)
	if canonical == "" {
		return nil, nil
	}

	var shops []model.Shop
	err := s.db.NewSelect().
		Model(&shops).
		Column("id", "slug", "name", "phone").
		Where("phone IN (?)", bun.In([]string{canonical, phone.WhatsApp(canonical)})).
		OrderExpr("created_at ASC, slug ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("lookup shops by phone: %w", err)
	}

	refs := make([]contractx.ShopRef, 0, len(shops))
	for i := range shops {
		refs = append(refs, shops[i].Ref())
	}
	return refs, nil
}

func (s *ShopStore) UpdateStatus(ctx context.Context, slug string, status contractx.ShopStatus) error {
	if _, ok := contractx.ParseShopStatus(string(status)); !ok {
		return fmt.Errorf("%w: status=%q", contractx.ErrValidation, status)
	}
	return s.updateField(ctx, slug, "status", string(status))
}

func (s *ShopStore) UpdateHours(ctx context.Context, slug string, hours string) error {
	hours = strings.TrimSpace(hours)
	if hours == "" {
		return fmt.Errorf("%w: hours are empty", contractx.ErrValidation)
	}
	return s.updateField(ctx, slug, "hours", hours)
}

func (s *ShopStore) updateField(ctx context.Context, slug string, column string, value string) error {
	res, err := s.db.NewUpdate().
		Model((*model.Shop)(nil)).
		Set("? = ?", bun.Ident(column), value).
		Set("updated_at = ?", s.now().UTC()).
		Where("slug = ?", slug).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update shop %s: %w", column, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update shop %s: %w", column, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: slug=%s", contractx.ErrShopNotFound, slug)
	}
	return nil
}

func (s *ShopStore) GetShop(ctx context.Context, id uuid.UUID) (*model.Shop, error) {
	shop := new(model.Shop)
	err := s.db.NewSelect().Model(shop).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id=%s", contractx.ErrShopNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get shop: %w", err)
	}
	return shop, nil
}

// MutateProducts runs fn on the shop's catalog under a row lock and writes
// the returned catalog back when fn reports a change. Concurrent sales on the
// same shop are applied one after the other.
func (s *ShopStore) MutateProducts(
	ctx context.Context,
	shopID uuid.UUID,
	fn func(shop *model.Shop) (products []model.Product, changed bool, err error),
) (*model.Shop, error) {
	var out *model.Shop

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		shop := new(model.Shop)
		err := tx.NewSelect().
			Model(shop).
			Where("id = ?", shopID).
			For("UPDATE").
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: id=%s", contractx.ErrShopNotFound, shopID)
		}
		if err != nil {
			return fmt.Errorf("lock shop: %w", err)
		}

		products, changed, err := fn(shop)
		if err != nil {
			return err
		}
		if !changed {
			out = shop
			return nil
		}

		shop.Products = products
		shop.UpdatedAt = s.now().UTC()
		if _, err := tx.NewUpdate().
			Model(shop).
			Column("products", "updated_at").
			WherePK().
			Exec(ctx); err != nil {
			return fmt.Errorf("write products: %w", err)
		}
		out = shop
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
