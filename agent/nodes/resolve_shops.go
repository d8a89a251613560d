package routernode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/neemo/agent/contract"
)

func ResolveShops(
	ctx context.Context,
	in *GraphState,
	directory contractx.ShopDirectory,
	onboardingURL string,
) (*GraphState, error) {
	if in == nil {
		return nil, nilStateErr()
	}
	if in.Done {
		return in, nil
	}

	shops, err := directory.LookupShopsByPhone(ctx, in.Phone)
	if err != nil {
		return nil, fmt.Errorf("lookup shops: %w", err)
	}
	in.Shops = shops

	switch len(shops) {
	case 0:
		log.Ctx(ctx).Info().Str("phone", in.Phone).Msg("message from unregistered number")
		return in.finish(fmt.Sprintf(NotRegisteredReply, onboardingURL)), nil
	case 1:
		target := shops[0]
		in.Target = &target
	default:
		in.MultiShop = true
	}
	return in, nil
}
