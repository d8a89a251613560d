package routernode

import (
	"context"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/neemo/agent/contract"
)

// TouchSession refreshes the multi-shop session after a successful turn.
// Single-shop senders never reach the store. A failed refresh does not
// change the reply.
func TouchSession(ctx context.Context, in *GraphState, sessions contractx.SessionStore) (*GraphState, error) {
	if in == nil {
		return nil, nilStateErr()
	}
	if !in.MultiShop || !in.Succeeded {
		return in, nil
	}

	if err := sessions.Touch(ctx, in.Phone); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("phone", in.Phone).Msg("session touch failed")
	}
	return in, nil
}
