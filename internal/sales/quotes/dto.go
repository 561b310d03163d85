package quotes

import (
	"time"

	"github.com/festa-erp/festa/internal/lifecycle"
	"github.com/festa-erp/festa/internal/sales/document"
)

type createQuoteRequest struct {
	document.HeaderPayload
	ValidUntil *time.Time             `json:"valid_until,omitempty"`
	Items      []document.ItemPayload `json:"items" validate:"dive"`
}

func (r createQuoteRequest) toInput() CreateInput {
	return CreateInput{
		Fields:     r.ToFields(),
		Items:      document.LineItems(r.Items),
		ValidUntil: r.ValidUntil,
	}
}

type updateQuoteRequest struct {
	document.PatchPayload
	ValidUntil *time.Time              `json:"valid_until,omitempty"`
	Items      *[]document.ItemPayload `json:"items,omitempty" validate:"omitempty,dive"`
}

func (r updateQuoteRequest) toInput() UpdateInput {
	in := UpdateInput{Patch: r.ToPatch(), ValidUntil: r.ValidUntil}
	if r.Items != nil {
		items := document.LineItems(*r.Items)
		in.Items = &items
	}
	return in
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

type quoteResponse struct {
	document.Response
	Status     lifecycle.QuoteStatus   `json:"status"`
	ValidUntil *time.Time              `json:"valid_until,omitempty"`
	Allowed    []lifecycle.QuoteStatus `json:"allowed_transitions"`
	Warnings   []string                `json:"warnings,omitempty"`
}

func newQuoteResponse(q *Quote) quoteResponse {
	allowed := lifecycle.Quotes.Allowed(q.Status)
	if allowed == nil {
		allowed = []lifecycle.QuoteStatus{}
	}
	return quoteResponse{
		Response:   document.NewResponse(q.Document),
		Status:     q.Status,
		ValidUntil: q.ValidUntil,
		Allowed:    allowed,
	}
}
