package finance

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/festa-erp/festa/internal/money"
	"github.com/festa-erp/festa/internal/platform/httpx"
	"github.com/festa-erp/festa/internal/shared"
)

// IdempotencyHeader carries the client-chosen key of a payment request.
const IdempotencyHeader = "Idempotency-Key"

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

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	companyID, err := httpx.CompanyID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	filter := ListFilter{
		Page:    httpx.QueryInt(r, "page", 1),
		PerPage: httpx.QueryInt(r, "per_page", 20),
	}
	if raw := q.Get("kind"); raw != "" {
		kind := Kind(raw)
		filter.Kind = &kind
	}
	if raw := q.Get("status"); raw != "" {
		status := Status(raw)
		filter.Status = &status
	}
	if contractID := int64(httpx.QueryInt(r, "contract_id", 0)); contractID > 0 {
		filter.ContractID = &contractID
	}

	positions, page, err := h.service.List(r.Context(), companyID, filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]obligationResponse, len(positions))
	for i, p := range positions {
		out[i] = newObligationResponse(p)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": out, "pagination": page})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	companyID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	p, err := h.service.Get(r.Context(), companyID, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newObligationResponse(*p))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	companyID, err := httpx.CompanyID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req createObligationRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.service.Create(r.Context(), companyID, req.toInput())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, newObligationResponse(*p))
}

func (h *Handler) RegisterPayment(w http.ResponseWriter, r *http.Request) {
	companyID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var req paymentRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	receipt, err := h.service.RegisterPayment(r.Context(), companyID, id, PaymentInput{
		Amount:         money.Cents(req.AmountCents),
		Date:           req.Date.Time,
		Method:         req.Method,
		Description:    req.Description,
		IdempotencyKey: r.Header.Get(IdempotencyHeader),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, newReceiptResponse(receipt))
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	companyID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.service.SetStatus(r.Context(), companyID, id, Status(req.Status), req.PaymentDate.Ptr())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newObligationResponse(*p))
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

func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	companyID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteEntry(r.Context(), companyID, id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Statement(w http.ResponseWriter, r *http.Request) {
	companyID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	st, err := h.service.ContractStatement(r.Context(), companyID, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newStatementResponse(st))
}

func (h *Handler) Aging(w http.ResponseWriter, r *http.Request) {
	companyID, err := httpx.CompanyID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	kind := KindReceivable
	if raw := r.URL.Query().Get("kind"); raw != "" {
		kind = Kind(raw)
	}
	var asOf time.Time
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		if asOf, err = time.Parse(time.DateOnly, raw); err != nil {
			h.fail(w, r, shared.NewValidationError("as_of", "use YYYY-MM-DD"))
			return
		}
	}
	aging, err := h.service.Aging(r.Context(), companyID, kind, asOf)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	httpx.JSON(w, http.StatusOK, agingResponse{
		Kind:           kind,
		AsOf:           asOf,
		CurrentCents:   int64(aging.Current),
		Bucket30Cents:  int64(aging.Bucket30),
		Bucket60Cents:  int64(aging.Bucket60),
		Bucket90Cents:  int64(aging.Bucket90),
		Bucket120Cents: int64(aging.Bucket120),
	})
}
