package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/neemo/agent/contract"
	"github.com/tanpawarit/neemo/commerce/catalog"
	"github.com/tanpawarit/neemo/commerce/model"
	"github.com/tanpawarit/neemo/commerce/pos"
)

type saleRequest struct {
	Items         []contractx.LineItem `json:"items"`
	PaymentMethod string               `json:"payment_method"`
	CustomerID    string               `json:"customer_id,omitempty"`
}

type reconcileRequest struct {
	Products []catalog.Detected `json:"products"`
	Policy   string             `json:"policy,omitempty"`
}

type reconcileResponse struct {
	Products []model.Product `json:"products"`
}

func (a *API) createSale(w http.ResponseWriter, r *http.Request) {
	shopID, ok := shopIDVar(w, r)
	if !ok {
		return
	}

	var req saleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sale := pos.Sale{
		ShopID: shopID,
		Items:  req.Items,
		Method: pos.PaymentMethod(req.PaymentMethod),
	}
	if raw := strings.TrimSpace(req.CustomerID); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid customer_id")
			return
		}
		sale.CustomerID = id
	}

	res, err := a.deps.Sales.ProcessSale(r.Context(), sale)
	if err != nil {
		status := saleErrorStatus(err)
		if status == http.StatusInternalServerError {
			log.Ctx(r.Context()).Error().Err(err).Str("shop_id", shopID.String()).Msg("sale failed")
			writeError(w, status, "sale failed")
			return
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) reconcileStock(w http.ResponseWriter, r *http.Request) {
	shopID, ok := shopIDVar(w, r)
	if !ok {
		return
	}

	var req reconcileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Products) == 0 {
		writeError(w, http.StatusBadRequest, "no products")
		return
	}
	policy, ok := catalog.ParseMergePolicy(req.Policy)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown policy")
		return
	}

	products, err := a.deps.Stock.Reconcile(r.Context(), shopID, req.Products, policy)
	if err != nil {
		if errors.Is(err, contractx.ErrShopNotFound) {
			writeError(w, http.StatusNotFound, "shop not found")
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Str("shop_id", shopID.String()).Msg("stock reconcile failed")
		writeError(w, http.StatusInternalServerError, "reconcile failed")
		return
	}
	writeJSON(w, http.StatusOK, reconcileResponse{Products: products})
}

func saleErrorStatus(err error) int {
	switch {
	case errors.Is(err, pos.ErrEmptyCart),
		errors.Is(err, pos.ErrCustomerRequired),
		errors.Is(err, pos.ErrInvalidMethod),
		errors.Is(err, pos.ErrInvalidLineItem),
		errors.Is(err, pos.ErrShopIDRequired):
		return http.StatusBadRequest
	case errors.Is(err, contractx.ErrCustomerNotFound),
		errors.Is(err, contractx.ErrShopNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func shopIDVar(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["shopID"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid shop id")
		return uuid.Nil, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}
