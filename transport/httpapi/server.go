// Package httpapi exposes the WhatsApp webhook, the QStash alert callback
// and the POS endpoints over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/neemo/agent/contract"
	"github.com/tanpawarit/neemo/commerce/alert"
	"github.com/tanpawarit/neemo/commerce/catalog"
	"github.com/tanpawarit/neemo/commerce/model"
	"github.com/tanpawarit/neemo/commerce/pos"
)

const maxBodyBytes = 1 << 20

type ReplyMode string

const (
	// ReplyTwiML answers inside the webhook response.
	ReplyTwiML ReplyMode = "twiml"
	// ReplyAPI sends the reply through the REST API and acknowledges with OK.
	ReplyAPI ReplyMode = "api"
)

func ParseReplyMode(raw string) (ReplyMode, error) {
	switch ReplyMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ReplyTwiML:
		return ReplyTwiML, nil
	case ReplyAPI:
		return ReplyAPI, nil
	default:
		return "", fmt.Errorf("%w: unknown reply mode %q", contractx.ErrValidation, raw)
	}
}

type MessageHandler interface {
	Handle(ctx context.Context, msg contractx.InboundMessage) contractx.Reply
}

type ReplySender interface {
	Send(ctx context.Context, to string, body string) (string, error)
}

type SignatureValidator interface {
	Validate(url string, params map[string]string, signature string) bool
}

type TaskVerifier interface {
	Verify(signature string, body []byte, destination string) error
}

type AlertNotifier interface {
	Notify(ctx context.Context, task alert.Task) error
}

type SaleProcessor interface {
	ProcessSale(ctx context.Context, sale pos.Sale) (pos.Result, error)
}

type StockReconciler interface {
	Reconcile(ctx context.Context, shopID uuid.UUID, detected []catalog.Detected, policy catalog.MergePolicy) ([]model.Product, error)
}

// Dependencies lists the collaborators of the API. Messages is required.
// Sender is required in api reply mode. Validator is optional and enables
// webhook signature checks. The task callback is mounted only when both
// Verifier and Notifier are set.
type Dependencies struct {
	Messages  MessageHandler
	Sender    ReplySender
	Validator SignatureValidator
	Verifier  TaskVerifier
	Notifier  AlertNotifier
	Sales     SaleProcessor
	Stock     StockReconciler
}

type Config struct {
	ReplyMode ReplyMode
	// PublicBaseURL is the scheme and host Twilio and QStash call, used to
	// rebuild the signed URL behind a proxy.
	PublicBaseURL string
}

type API struct {
	deps Dependencies
	cfg  Config
}

func New(deps Dependencies, cfg Config) (*API, error) {
	if deps.Messages == nil {
		return nil, errors.New("message handler is required")
	}
	mode, err := ParseReplyMode(string(cfg.ReplyMode))
	if err != nil {
		return nil, err
	}
	if mode == ReplyAPI && deps.Sender == nil {
		return nil, errors.New("reply sender is required in api reply mode")
	}
	cfg.ReplyMode = mode
	cfg.PublicBaseURL = strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	if deps.Validator != nil && cfg.PublicBaseURL == "" {
		return nil, errors.New("public base url is required to validate signatures")
	}
	if deps.Verifier != nil && cfg.PublicBaseURL == "" {
		return nil, errors.New("public base url is required to verify task callbacks")
	}
	return &API{deps: deps, cfg: cfg}, nil
}

func (a *API) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", a.healthz).Methods(http.MethodGet)

	s := r.PathPrefix("/api").Subrouter()
	s.HandleFunc("/webhook/whatsapp", a.webhookAlive).Methods(http.MethodGet)
	s.HandleFunc("/webhook/whatsapp", a.webhook).Methods(http.MethodPost)
	if a.deps.Verifier != nil && a.deps.Notifier != nil {
		s.HandleFunc(LowStockTaskPath, a.lowStockTask).Methods(http.MethodPost)
	}
	if a.deps.Sales != nil {
		s.HandleFunc("/shops/{shopID}/sales", a.createSale).Methods(http.MethodPost)
	}
	if a.deps.Stock != nil {
		s.HandleFunc("/shops/{shopID}/stock/reconcile", a.reconcileStock).Methods(http.MethodPost)
	}

	return logMiddleware(recoverMiddleware(r))
}

// LowStockTaskPath is the callback path under /api that QStash delivers
// alert tasks to.
const LowStockTaskPath = "/tasks/low-stock"

// TaskCallbackURL returns the absolute URL QStash should call back.
func TaskCallbackURL(publicBaseURL string) string {
	return strings.TrimRight(strings.TrimSpace(publicBaseURL), "/") + "/api" + LowStockTaskPath
}

func (a *API) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) publicURL(r *http.Request) string {
	return a.cfg.PublicBaseURL + r.URL.RequestURI()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func logMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := log.With().
			Str("request_id", uuid.NewString()).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, r.WithContext(logger.WithContext(r.Context())))

		logger.Info().
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Str("remote_addr", r.RemoteAddr).
			Msg("request served")
	})
}

func recoverMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Ctx(r.Context()).Error().Err(fmt.Errorf("panic: %v", rec)).Msg("handler panicked")
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		h.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
