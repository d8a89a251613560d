package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/neemo/commerce/alert"
	qstashx "github.com/tanpawarit/neemo/pkg/qstash"
)

// lowStockTask receives alert tasks published through QStash. Any non-2xx
// answer makes QStash retry the delivery.
func (a *API) lowStockTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	if err := a.deps.Verifier.Verify(r.Header.Get(qstashx.SignatureHeader), body, a.publicURL(r)); err != nil {
		logger.Warn().Err(err).Msg("task signature rejected")
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var task alert.Task
	if err := json.Unmarshal(body, &task); err != nil {
		writeError(w, http.StatusBadRequest, "invalid task payload")
		return
	}
	if err := task.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.deps.Notifier.Notify(ctx, task); err != nil {
		logger.Error().Err(err).Str("shop_id", task.ShopID.String()).Msg("low-stock notification failed")
		writeError(w, http.StatusInternalServerError, "notification failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}
