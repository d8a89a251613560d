package routernode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/neemo/agent/contract"
)

func ExecuteCommand(ctx context.Context, in *GraphState, executor contractx.CommandExecutor) (*GraphState, error) {
	if in == nil {
		return nil, nilStateErr()
	}
	if in.Done {
		return in, nil
	}
	if in.Target == nil {
		return nil, fmt.Errorf("%w: no target shop resolved", contractx.ErrValidation)
	}

	reply, err := executor.Execute(ctx, *in.Target, in.Intent)
	if err != nil {
		event := log.Ctx(ctx).Error().Err(err).Str("phone", in.Phone).Str("shop", in.Target.Slug)
		if in.Intent != nil {
			event = event.Str("intent", string(in.Intent.Kind()))
		}
		event.Msg("command execution failed")
		return in.finish(TechnicalErrorReply), nil
	}
	return in.succeed(reply), nil
}
