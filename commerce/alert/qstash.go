package alert

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	qstashx "github.com/tanpawarit/neemo/pkg/qstash"
)

type Publisher interface {
	PublishJSON(ctx context.Context, destination string, payload any) (*qstashx.PublishResult, error)
}

// QStashForwarder returns a Handler that hands tasks to QStash, which
// retries delivery to callbackURL until the callback handler succeeds.
func QStashForwarder(pub Publisher, callbackURL string) Handler {
	return func(ctx context.Context, task Task) error {
		if err := task.Validate(); err != nil {
			return err
		}
		res, err := pub.PublishJSON(ctx, callbackURL, task)
		if err != nil {
			return fmt.Errorf("forward alert to qstash: %w", err)
		}
		log.Ctx(ctx).Debug().Str("message_id", res.MessageID).Msg("alert forwarded to qstash")
		return nil
	}
}
