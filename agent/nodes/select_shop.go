package routernode

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/neemo/agent/contract"
)

// SelectShop runs the shop selection dialogue for senders with several
// shops. A stored slug is only trusted while it still belongs to the
// sender's current shop set; a stale one behaves like no session and is
// replaced or cleared in the same turn.
func SelectShop(ctx context.Context, in *GraphState, sessions contractx.SessionStore) (*GraphState, error) {
	if in == nil {
		return nil, nilStateErr()
	}
	if in.Done || !in.MultiShop {
		return in, nil
	}

	logger := log.Ctx(ctx).With().Str("phone", in.Phone).Logger()
	text := keyword(in.Body)

	if resetKeywords[text] {
		if err := sessions.ClearSession(ctx, in.Phone); err != nil {
			return nil, fmt.Errorf("clear session: %w", err)
		}
		logger.Debug().Msg("session reset")
		return in.finish(ShopList(in.Shops)), nil
	}

	slug, err := sessions.GetActiveSlug(ctx, in.Phone)
	if err != nil && !errors.Is(err, contractx.ErrSessionNotFound) {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if slug != "" {
		if shop, ok := findShop(in.Shops, slug); ok {
			in.Target = &shop
			return in, nil
		}
		logger.Warn().Str("slug", slug).Msg("stored session references a shop the sender no longer administers")
	}

	if idx, ok := parseSelection(text, len(in.Shops)); ok {
		shop := in.Shops[idx]
		if err := sessions.SetActiveSlug(ctx, in.Phone, shop.Slug); err != nil {
			return nil, fmt.Errorf("set session: %w", err)
		}
		logger.Info().Str("shop", shop.Slug).Msg("shop selected")
		return in.finish(fmt.Sprintf(SelectionReply, shop.Name)), nil
	}

	if slug != "" {
		if err := sessions.ClearSession(ctx, in.Phone); err != nil {
			return nil, fmt.Errorf("clear stale session: %w", err)
		}
	}
	return in.finish(ShopList(in.Shops)), nil
}

// ShopList renders the numbered selection prompt in directory order.
func ShopList(shops []contractx.ShopRef) string {
	var b strings.Builder
	b.WriteString(ShopListHeader)
	for i, s := range shops {
		fmt.Fprintf(&b, "\n%d. %s", i+1, s.Name)
	}
	return b.String()
}

// parseSelection maps a 1-based reply to a 0-based index.
func parseSelection(text string, n int) (int, bool) {
	v, err := strconv.Atoi(text)
	if err != nil || v < 1 || v > n {
		return 0, false
	}
	return v - 1, true
}

func findShop(shops []contractx.ShopRef, slug string) (contractx.ShopRef, bool) {
	for _, s := range shops {
		if s.Slug == slug {
			return s, true
		}
	}
	return contractx.ShopRef{}, false
}
