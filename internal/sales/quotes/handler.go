package quotes

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/festa-erp/festa/internal/ledger"
	"github.com/festa-erp/festa/internal/lifecycle"
	"github.com/festa-erp/festa/internal/platform/httpx"
	"github.com/festa-erp/festa/internal/sales/document"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	httpx.RespondError(w, r, h.logger, err)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	companyID, err := httpx.CompanyID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	filter := ListFilter{
		Page:    httpx.QueryInt(r, "page", 1),
		PerPage: httpx.QueryInt(r, "per_page", 20),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := lifecycle.QuoteStatus(raw)
		filter.Status = &status
	}
	if clientID := int64(httpx.QueryInt(r, "client_id", 0)); clientID > 0 {
		filter.ClientID = &clientID
	}

	quotes, page, err := h.service.List(r.Context(), companyID, filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]quoteResponse, len(quotes))
	for i := range quotes {
		out[i] = newQuoteResponse(&quotes[i])
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": out, "pagination": page})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	companyID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	q, err := h.service.Get(r.Context(), companyID, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newQuoteResponse(q))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	companyID, err := httpx.CompanyID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req createQuoteRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	q, err := h.service.Create(r.Context(), companyID, req.toInput())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, newQuoteResponse(q))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	companyID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var req updateQuoteRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	q, err := h.service.Update(r.Context(), companyID, id, req.toInput())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newQuoteResponse(q))
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	companyID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var req document.AddItemPayload
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	q, err := h.service.AddItem(r.Context(), companyID, id, req.ItemID)
	if errors.Is(err, ledger.ErrDuplicateItem) && q != nil {
		resp := newQuoteResponse(q)
		resp.Warnings = []string{ledger.ErrDuplicateItem.Error()}
		httpx.JSON(w, http.StatusOK, resp)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newQuoteResponse(q))
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	companyID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	index, err := httpx.IntParam(r, "index")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req document.ItemPatchPayload
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	q, err := h.service.UpdateItem(r.Context(), companyID, id, index, req.ToPatch())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newQuoteResponse(q))
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	companyID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	index, err := httpx.IntParam(r, "index")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q, err := h.service.RemoveItem(r.Context(), companyID, id, index)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newQuoteResponse(q))
}

func (h *Handler) Transition(w http.ResponseWriter, r *http.Request) {
	companyID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	q, err := h.service.Transition(r.Context(), companyID, id, lifecycle.QuoteStatus(req.Status))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": q.Status})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	companyID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), companyID, id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// target resolves the tenant and the {id} URL parameter, answering the request on failure.
func (h *Handler) target(w http.ResponseWriter, r *http.Request) (companyID, id int64, ok bool) {
	companyID, err := httpx.CompanyID(r)
	if err == nil {
		id, err = httpx.IDParam(r, "id")
	}
	if err != nil {
		h.fail(w, r, err)
		return 0, 0, false
	}
	return companyID, id, true
}
