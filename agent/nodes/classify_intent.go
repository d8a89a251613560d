package routernode

import (
	"context"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/neemo/agent/contract"
)

// ClassifyIntent degrades any classifier failure to the technical-error
// reply. No mutation happens on that path.
func ClassifyIntent(ctx context.Context, in *GraphState, classifier contractx.IntentClassifier) (*GraphState, error) {
	if in == nil {
		return nil, nilStateErr()
	}
	if in.Done {
		return in, nil
	}

	intent, err := classifier.Classify(ctx, in.CommandText)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("phone", in.Phone).Msg("intent classification failed")
		return in.finish(TechnicalErrorReply), nil
	}
	in.Intent = intent
	return in, nil
}
