package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/neemo/agent/contract"
	"github.com/tanpawarit/neemo/commerce/model"
)

type Repository interface {
	MutateProducts(
		ctx context.Context,
		shopID uuid.UUID,
		fn func(shop *model.Shop) (products []model.Product, changed bool, err error),
	) (*model.Shop, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ApplySale decrements stock for a sale and returns the shop as written plus
// the products that crossed the low-stock threshold.
func (s *Service) ApplySale(ctx context.Context, shopID uuid.UUID, items []contractx.LineItem) (*model.Shop, []Crossing, error) {
	var crossed []Crossing
	shop, err := s.repo.MutateProducts(ctx, shopID, func(shop *model.Shop) ([]model.Product, bool, error) {
		updated, c, touched := ApplySale(shop.Products, items)
		crossed = c
		return updated, touched, nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("apply sale stock: %w", err)
	}
	return shop, crossed, nil
}

func (s *Service) Reconcile(ctx context.Context, shopID uuid.UUID, detected []Detected, policy MergePolicy) ([]model.Product, error) {
	if len(detected) == 0 {
		return nil, fmt.Errorf("%w: no detected products", contractx.ErrValidation)
	}

	shop, err := s.repo.MutateProducts(ctx, shopID, func(shop *model.Shop) ([]model.Product, bool, error) {
		return Merge(shop.Products, detected, policy), true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile stock: %w", err)
	}

	log.Ctx(ctx).Info().
		Str("shop_id", shopID.String()).
		Str("policy", string(policy)).
		Int("detected", len(detected)).
		Int("products", len(shop.Products)).
		Msg("stock reconciled")
	return shop.Products, nil
}
