package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/neemo/agent/contract"
	twiliox "github.com/tanpawarit/neemo/pkg/twilio"
)

const (
	WebhookAliveBody   = "Neemo Webhook Active"
	twilioSignatureHdr = "X-Twilio-Signature"
	maxInboundMedia    = 10
)

func (a *API) webhookAlive(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, WebhookAliveBody); err != nil {
		log.Error().Err(err).Msg("write response")
	}
}

// webhook acknowledges every well-formed delivery with 200, even when the
// reply could not be produced or sent, so Twilio does not redeliver it.
func (a *API) webhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		logger.Warn().Err(err).Msg("webhook form decode failed")
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if a.deps.Validator != nil {
		params := make(map[string]string, len(r.PostForm))
		for k := range r.PostForm {
			params[k] = r.PostForm.Get(k)
		}
		if !a.deps.Validator.Validate(a.publicURL(r), params, r.Header.Get(twilioSignatureHdr)) {
			logger.Warn().Msg("webhook signature rejected")
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
	}

	msg := inboundFromForm(r)
	reply := a.deps.Messages.Handle(ctx, msg)

	switch a.cfg.ReplyMode {
	case ReplyAPI:
		if _, err := a.deps.Sender.Send(ctx, msg.From, reply.Text); err != nil {
			logger.Error().Err(err).Str("to", msg.From).Msg("reply send failed")
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "OK")
	default:
		body, err := twiliox.MessageResponse(reply.Text)
		if err != nil {
			logger.Error().Err(err).Msg("render twiml failed")
			body, _ = twiliox.MessageResponse("")
		}
		w.Header().Set("Content-Type", "text/xml; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, body)
	}
}

func inboundFromForm(r *http.Request) contractx.InboundMessage {
	msg := contractx.InboundMessage{
		From: strings.TrimSpace(r.PostForm.Get("From")),
		Body: r.PostForm.Get("Body"),
	}

	n, err := strconv.Atoi(strings.TrimSpace(r.PostForm.Get("NumMedia")))
	if err != nil || n <= 0 {
		return msg
	}
	n = min(n, maxInboundMedia)

	for i := range n {
		url := strings.TrimSpace(r.PostForm.Get(fmt.Sprintf("MediaUrl%d", i)))
		if url == "" {
			continue
		}
		msg.Media = append(msg.Media, contractx.Media{
			URL:         url,
			ContentType: strings.TrimSpace(r.PostForm.Get(fmt.Sprintf("MediaContentType%d", i))),
		})
	}
	return msg
}
