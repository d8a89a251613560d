package routernode

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/neemo/pkg/phone"
)

// Normalize canonicalizes the sender and answers the ping fast path before
// any collaborator is touched.
func Normalize(ctx context.Context, in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	st := &GraphState{
		Phone: phone.Normalize(in.From),
		Body:  in.Body,
		Media: in.Media,
		Now:   nowFn().UTC(),
	}

	if keyword(in.Body) == pingKeyword {
		return st.finish(PongReply), nil
	}
	if st.Phone == "" {
		log.Ctx(ctx).Warn().Str("from", in.From).Msg("inbound message without usable sender")
		return st.finish(TechnicalErrorReply), nil
	}
	return st, nil
}
