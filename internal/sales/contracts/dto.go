package contracts

import (
	"time"

	"github.com/festa-erp/festa/internal/lifecycle"
	"github.com/festa-erp/festa/internal/sales/document"
)

type clausePayload struct {
	Title        string `json:"title"`
	Content      string `json:"content" validate:"required"`
	TemplateID   *int64 `json:"template_id,omitempty" validate:"omitempty,gt=0"`
	UserModified bool   `json:"user_modified"`
}

func toClauses(in []clausePayload) []Clause {
	out := make([]Clause, len(in))
	for i, c := range in {
		out[i] = Clause{Title: c.Title, Content: c.Content, TemplateID: c.TemplateID, UserModified: c.UserModified}
	}
	return out
}

type createContractRequest struct {
	document.HeaderPayload
	StartTime *time.Time             `json:"start_time,omitempty"`
	Items     []document.ItemPayload `json:"items" validate:"dive"`
	Clauses   []clausePayload        `json:"clauses" validate:"dive"`
}

func (r createContractRequest) toInput() CreateInput {
	return CreateInput{
		Fields:    r.ToFields(),
		Items:     document.LineItems(r.Items),
		StartTime: r.StartTime,
		Clauses:   toClauses(r.Clauses),
	}
}

type fromQuoteRequest struct {
	StartTime *time.Time      `json:"start_time,omitempty"`
	Clauses   []clausePayload `json:"clauses" validate:"dive"`
}

type updateContractRequest struct {
	document.PatchPayload
	StartTime *time.Time              `json:"start_time,omitempty"`
	Items     *[]document.ItemPayload `json:"items,omitempty" validate:"omitempty,dive"`
	Clauses   *[]clausePayload        `json:"clauses,omitempty" validate:"omitempty,dive"`
	Status    *string                 `json:"status,omitempty"`
}

func (r updateContractRequest) toInput() UpdateInput {
	in := UpdateInput{Patch: r.ToPatch(), StartTime: r.StartTime}
	if r.Items != nil {
		items := document.LineItems(*r.Items)
		in.Items = &items
	}
	if r.Clauses != nil {
		clauses := toClauses(*r.Clauses)
		in.Clauses = &clauses
	}
	if r.Status != nil {
		status := lifecycle.ContractStatus(*r.Status)
		in.Status = &status
	}
	return in
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

type clauseResponse struct {
	Position     int    `json:"position"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	TemplateID   *int64 `json:"template_id,omitempty"`
	UserModified bool   `json:"user_modified"`
}

type contractResponse struct {
	document.Response
	Status             lifecycle.ContractStatus   `json:"status"`
	StartTime          *time.Time                 `json:"start_time,omitempty"`
	OriginatingQuoteID *int64                     `json:"originating_quote_id,omitempty"`
	Clauses            []clauseResponse           `json:"clauses"`
	Frozen             bool                       `json:"frozen"`
	Allowed            []lifecycle.ContractStatus `json:"allowed_transitions"`
	Warnings           []string                   `json:"warnings,omitempty"`
}

func newContractResponse(c *Contract) contractResponse {
	clauses := make([]clauseResponse, len(c.Clauses))
	for i, cl := range c.Clauses {
		clauses[i] = clauseResponse{
			Position:     cl.Position,
			Title:        cl.Title,
			Content:      cl.Content,
			TemplateID:   cl.TemplateID,
			UserModified: cl.UserModified,
		}
	}
	allowed := lifecycle.Contracts.Allowed(c.Status)
	if allowed == nil {
		allowed = []lifecycle.ContractStatus{}
	}
	return contractResponse{
		Response:           document.NewResponse(c.Document),
		Status:             c.Status,
		StartTime:          c.StartTime,
		OriginatingQuoteID: c.OriginatingQuoteID,
		Clauses:            clauses,
		Frozen:             c.Frozen(),
		Allowed:            allowed,
	}
}
