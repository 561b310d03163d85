package finance

import (
	"time"

	"github.com/festa-erp/festa/internal/money"
	"github.com/festa-erp/festa/internal/platform/httpx"
)

type createObligationRequest struct {
	Kind        string     `json:"kind" validate:"required,oneof=RECEIVABLE PAYABLE"`
	ContractID  *int64     `json:"contract_id,omitempty" validate:"omitempty,gt=0"`
	SupplierID  *int64     `json:"supplier_id,omitempty" validate:"omitempty,gt=0"`
	Description string     `json:"description" validate:"max=255"`
	AmountCents int64      `json:"amount_cents" validate:"gt=0"`
	DueDate     httpx.Date `json:"due_date" validate:"required"`
}

func (r createObligationRequest) toInput() CreateInput {
	return CreateInput{
		Kind:        Kind(r.Kind),
		ContractID:  r.ContractID,
		SupplierID:  r.SupplierID,
		Description: r.Description,
		Amount:      money.Cents(r.AmountCents),
		DueDate:     r.DueDate.Time,
	}
}

type paymentRequest struct {
	AmountCents int64      `json:"amount_cents" validate:"gt=0"`
	Date        httpx.Date `json:"date"`
	Method      string     `json:"method" validate:"required"`
	Description string     `json:"description" validate:"max=255"`
}

type statusRequest struct {
	Status      string      `json:"status" validate:"required"`
	PaymentDate *httpx.Date `json:"payment_date,omitempty"`
}

type obligationResponse struct {
	ID                   int64      `json:"id"`
	Kind                 Kind       `json:"kind"`
	ContractID           *int64     `json:"contract_id,omitempty"`
	SupplierID           *int64     `json:"supplier_id,omitempty"`
	Description          string     `json:"description,omitempty"`
	AmountCents          int64      `json:"amount_cents"`
	AmountPaidCents      int64      `json:"amount_paid_cents"`
	AmountRemainingCents int64      `json:"amount_remaining_cents"`
	AmountDisplay        string     `json:"amount_display"`
	DueDate              time.Time  `json:"due_date"`
	PaymentDate          *time.Time `json:"payment_date,omitempty"`
	Status               Status     `json:"status"`
	CreatedAt            time.Time  `json:"created_at"`
}

func newObligationResponse(p Position) obligationResponse {
	return obligationResponse{
		ID:                   p.ID,
		Kind:                 p.Kind,
		ContractID:           p.ContractID,
		SupplierID:           p.SupplierID,
		Description:          p.Description,
		AmountCents:          int64(p.Amount),
		AmountPaidCents:      int64(p.AmountPaid),
		AmountRemainingCents: int64(p.AmountRemaining),
		AmountDisplay:        money.Format(p.Amount),
		DueDate:              p.DueDate,
		PaymentDate:          p.PaymentDate,
		Status:               p.Status,
		CreatedAt:            p.CreatedAt,
	}
}

type entryResponse struct {
	ID           int64     `json:"id"`
	Direction    Direction `json:"direction"`
	ObligationID int64     `json:"obligation_id"`
	AmountCents  int64     `json:"amount_cents"`
	Date         time.Time `json:"date"`
	Method       string    `json:"method"`
	Description  string    `json:"description,omitempty"`
}

type receiptResponse struct {
	Entry      entryResponse      `json:"entry"`
	Obligation obligationResponse `json:"obligation"`
}

func newReceiptResponse(rc *Receipt) receiptResponse {
	e := rc.Entry
	return receiptResponse{
		Entry: entryResponse{
			ID:           e.ID,
			Direction:    e.Direction,
			ObligationID: e.ObligationID,
			AmountCents:  int64(e.Amount),
			Date:         e.Date,
			Method:       e.Method,
			Description:  e.Description,
		},
		Obligation: newObligationResponse(rc.Position),
	}
}

type statementResponse struct {
	ContractID         int64                `json:"contract_id"`
	ContractTotalCents int64                `json:"contract_total_cents"`
	NetTotalCents      int64                `json:"net_total_cents"`
	BilledCents        int64                `json:"billed_cents"`
	ReceivedCents      int64                `json:"received_cents"`
	OutstandingCents   int64                `json:"outstanding_cents"`
	UnbilledCents      int64                `json:"unbilled_cents"`
	Receivables        []obligationResponse `json:"receivables"`
}

func newStatementResponse(st *Statement) statementResponse {
	out := statementResponse{
		ContractID:         st.ContractID,
		ContractTotalCents: int64(st.ContractTotal),
		NetTotalCents:      int64(st.NetTotal),
		BilledCents:        int64(st.Billed),
		ReceivedCents:      int64(st.Received),
		OutstandingCents:   int64(st.Outstanding),
		UnbilledCents:      int64(st.Unbilled),
		Receivables:        make([]obligationResponse, len(st.Receivables)),
	}
	for i, p := range st.Receivables {
		out.Receivables[i] = newObligationResponse(p)
	}
	return out
}

type agingResponse struct {
	Kind           Kind      `json:"kind"`
	AsOf           time.Time `json:"as_of"`
	CurrentCents   int64     `json:"current_cents"`
	Bucket30Cents  int64     `json:"bucket_30_cents"`
	Bucket60Cents  int64     `json:"bucket_60_cents"`
	Bucket90Cents  int64     `json:"bucket_90_cents"`
	Bucket120Cents int64     `json:"bucket_120_cents"`
}
