package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	contractx "github.com/tanpawarit/neemo/agent/contract"
	"github.com/tanpawarit/neemo/agent/executor"
	"github.com/tanpawarit/neemo/agent/intent"
	"github.com/tanpawarit/neemo/agent/media"
	nodex "github.com/tanpawarit/neemo/agent/nodes"
	"github.com/tanpawarit/neemo/agent/prompt"
	"github.com/tanpawarit/neemo/agent/router"
	statex "github.com/tanpawarit/neemo/agent/state"
	"github.com/tanpawarit/neemo/commerce/alert"
	"github.com/tanpawarit/neemo/commerce/catalog"
	"github.com/tanpawarit/neemo/commerce/ledger"
	"github.com/tanpawarit/neemo/commerce/pgstore"
	"github.com/tanpawarit/neemo/commerce/pos"
	configx "github.com/tanpawarit/neemo/pkg/config"
	logx "github.com/tanpawarit/neemo/pkg/logger"
	"github.com/tanpawarit/neemo/pkg/openaix"
	"github.com/tanpawarit/neemo/pkg/postgres"
	qstashx "github.com/tanpawarit/neemo/pkg/qstash"
	twiliox "github.com/tanpawarit/neemo/pkg/twilio"
	"github.com/tanpawarit/neemo/transport/httpapi"
)

type AppConfig struct {
	Port            int           `envconfig:"PORT" default:"8080"`
	OnboardingURL   string        `envconfig:"ONBOARDING_URL" required:"true"`
	PublicBaseURL   string        `envconfig:"PUBLIC_BASE_URL"`
	ReplyMode       string        `envconfig:"REPLY_MODE" default:"twiml"`
	ImageMode       string        `envconfig:"IMAGE_MODE" default:"invoice"`
	SessionBackend  string        `envconfig:"SESSION_BACKEND" default:"postgres"`
	AlertBackend    string        `envconfig:"ALERT_BACKEND" default:"local"`
	AlertQueueSize  int           `envconfig:"ALERT_QUEUE_SIZE" default:"64"`
	AlertWorkers    int           `envconfig:"ALERT_WORKERS" default:"2"`
	AlertTimeout    time.Duration `envconfig:"ALERT_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the webhook server and the low-stock alert workers",
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))

	appCfg := configx.MustNew[AppConfig]("")
	dbCfg := configx.MustNew[postgres.Config]("DB")
	openAICfg := configx.MustNew[openaix.Config]("OPENAI")
	twilioCfg := configx.MustNew[twiliox.Config]("TWILIO")

	db, err := postgres.Open(ctx, *dbCfg)
	if err != nil {
		return err
	}
	defer db.Close()

	shops := pgstore.NewShopStore(db)
	ledgerSvc := ledger.NewService(pgstore.NewLedgerStore(db))
	catalogSvc := catalog.NewService(shops)

	twilioClient, err := twiliox.NewClient(*twilioCfg)
	if err != nil {
		return err
	}

	notifier := alert.NewNotifier(shops, twilioClient)
	alertHandler, verifier, err := newAlertBackend(appCfg, notifier)
	if err != nil {
		return err
	}
	dispatcher := alert.NewDispatcher(alertHandler, alert.DispatcherConfig{
		QueueSize:   appCfg.AlertQueueSize,
		Workers:     appCfg.AlertWorkers,
		TaskTimeout: appCfg.AlertTimeout,
	})
	posSvc := pos.NewService(ledgerSvc, catalogSvc, dispatcher)

	sessions, err := newSessionStore(appCfg.SessionBackend, pgstore.NewSessionStore(db))
	if err != nil {
		return err
	}

	msgRouter, err := newMessageRouter(ctx, appCfg, openAICfg, twilioCfg, shops, sessions, executor.New(shops, ledgerSvc))
	if err != nil {
		return err
	}

	deps := httpapi.Dependencies{
		Messages: msgRouter,
		Sender:   twilioClient,
		Sales:    posSvc,
		Stock:    catalogSvc,
	}
	if twilioCfg.ValidateSignature {
		deps.Validator = twiliox.NewSignatureValidator(twilioCfg.AuthToken)
	}
	if verifier != nil {
		deps.Verifier = verifier
		deps.Notifier = notifier
	}

	api, err := httpapi.New(deps, httpapi.Config{
		ReplyMode:     httpapi.ReplyMode(appCfg.ReplyMode),
		PublicBaseURL: appCfg.PublicBaseURL,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(appCfg.Port)),
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(gctx)
	})
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("reply_mode", appCfg.ReplyMode).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), appCfg.ShutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newMessageRouter(
	ctx context.Context,
	appCfg *AppConfig,
	openAICfg *openaix.Config,
	twilioCfg *twiliox.Config,
	shops *pgstore.ShopStore,
	sessions contractx.SessionStore,
	exec *executor.Executor,
) (*router.Router, error) {
	prompts := prompt.LoadPromptSet()
	if err := prompts.Validate(); err != nil {
		return nil, err
	}

	chatModel, err := openAICfg.NewChatModel(ctx)
	if err != nil {
		return nil, err
	}
	classifier, err := intent.NewClassifier(ctx, chatModel, prompts.Classifier)
	if err != nil {
		return nil, err
	}

	client := openaix.NewClient(*openAICfg)
	if client == nil {
		return nil, errors.New("openai client: api key is required")
	}
	downloader := twiliox.NewMediaDownloader(*twilioCfg)
	images, err := media.NewImageExtractor(client, downloader, media.ExtractorConfig{
		Model:         openAICfg.VisionModel,
		InvoicePrompt: prompts.Invoice,
		ShelfPrompt:   prompts.Shelf,
	})
	if err != nil {
		return nil, err
	}

	return router.New(router.Dependencies{
		Directory:   shops,
		Sessions:    sessions,
		Classifier:  classifier,
		Transcriber: media.NewTranscriber(client, downloader, openAICfg.TranscriptionModel),
		Images:      images,
		Executor:    exec,
	}, router.Config{
		OnboardingURL: appCfg.OnboardingURL,
		ImageMode:     nodex.ImageMode(appCfg.ImageMode),
	})
}

func newSessionStore(backend string, pg *pgstore.SessionStore) (contractx.SessionStore, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "postgres":
		return pg, nil
	case "upstash":
		cfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH_REDIS")
		return statex.NewUpstashRedisStore(*cfg)
	default:
		return nil, fmt.Errorf("%w: unknown session backend %q", contractx.ErrValidation, backend)
	}
}

// newAlertBackend picks how low-stock tasks leave the process. The local
// backend notifies from the dispatcher workers. The qstash backend forwards
// tasks to QStash and returns the verifier for its callback.
func newAlertBackend(appCfg *AppConfig, notifier *alert.Notifier) (alert.Handler, httpapi.TaskVerifier, error) {
	switch strings.ToLower(strings.TrimSpace(appCfg.AlertBackend)) {
	case "", "local":
		return notifier.Notify, nil, nil
	case "qstash":
		if strings.TrimSpace(appCfg.PublicBaseURL) == "" {
			return nil, nil, errors.New("PUBLIC_BASE_URL is required for the qstash alert backend")
		}
		client, err := qstashx.NewClient(*configx.MustNew[qstashx.Config]("QSTASH"))
		if err != nil {
			return nil, nil, err
		}
		return alert.QStashForwarder(client, httpapi.TaskCallbackURL(appCfg.PublicBaseURL)), client, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown alert backend %q", contractx.ErrValidation, appCfg.AlertBackend)
	}
}
