// Package router answers inbound WhatsApp messages: it resolves which shop
// the sender controls, extracts and classifies the command, executes it and
// produces exactly one reply.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/neemo/agent/contract"
	nodex "github.com/tanpawarit/neemo/agent/nodes"
)

type Dependencies struct {
	Directory   contractx.ShopDirectory
	Sessions    contractx.SessionStore
	Classifier  contractx.IntentClassifier
	Transcriber contractx.Transcriber
	Images      contractx.ImageExtractor
	Executor    contractx.CommandExecutor
}

type Config struct {
	OnboardingURL string
	ImageMode     nodex.ImageMode
}

type Router struct {
	deps Dependencies
	cfg  Config

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

func New(deps Dependencies, cfg Config) (*Router, error) {
	switch {
	case deps.Directory == nil:
		return nil, errors.New("shop directory is required")
	case deps.Sessions == nil:
		return nil, errors.New("session store is required")
	case deps.Classifier == nil:
		return nil, errors.New("intent classifier is required")
	case deps.Transcriber == nil:
		return nil, errors.New("transcriber is required")
	case deps.Images == nil:
		return nil, errors.New("image extractor is required")
	case deps.Executor == nil:
		return nil, errors.New("command executor is required")
	}

	mode, err := nodex.ParseImageMode(string(cfg.ImageMode))
	if err != nil {
		return nil, err
	}
	cfg.ImageMode = mode
	cfg.OnboardingURL = strings.TrimSpace(cfg.OnboardingURL)

	r := &Router{
		deps: deps,
		cfg:  cfg,
		now:  time.Now,
	}

	graphRunner, err := r.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	r.graphRunner = graphRunner

	return r, nil
}

// Handle never fails. Collaborator errors and panics are logged once here
// and answered with the technical-error text so the transport acknowledges
// the delivery instead of retrying it.
func (r *Router) Handle(ctx context.Context, msg contractx.InboundMessage) (reply contractx.Reply) {
	logger := log.Ctx(ctx).With().Str("from", msg.From).Int("media", len(msg.Media)).Logger()

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().Err(fmt.Errorf("panic: %v", rec)).Msg("router panicked")
			reply = contractx.Reply{Text: nodex.TechnicalErrorReply}
		}
	}()

	out, err := r.graphRunner.Invoke(logger.WithContext(ctx), msg)
	if err != nil {
		logger.Error().Err(err).Msg("handle message failed")
		return contractx.Reply{Text: nodex.TechnicalErrorReply}
	}
	return out
}
