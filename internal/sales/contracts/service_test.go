package contracts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/festa-erp/festa/internal/ledger"
	"github.com/festa-erp/festa/internal/lifecycle"
	"github.com/festa-erp/festa/internal/money"
	"github.com/festa-erp/festa/internal/sales/document"
	"github.com/festa-erp/festa/internal/sales/quotes"
	"github.com/festa-erp/festa/internal/shared"
)

func ptr[T any](v T) *T { return &v }

const tenantA, tenantB = int64(1), int64(2)

var eventDate = time.Date(2026, 12, 12, 0, 0, 0, 0, time.UTC)

func sampleInput() CreateInput {
	return CreateInput{
		Fields: document.Fields{ClientID: 10, EventDate: eventDate},
		Items: []ledger.LineItem{
			{ItemID: 1, Quantity: money.One, UnitPrice: 10000},
		},
		Clauses: []Clause{
			{Title: "Payment", Content: "50% on signature"},
			{Title: "Cancellation", Content: "Deposit is not refundable", UserModified: true},
		},
	}
}

func newService(q memoryQuotes) (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	return NewService(repo, q, memoryDirectory{}, nil, nil), repo
}

func approvedQuote(status lifecycle.QuoteStatus) *quotes.Quote {
	return &quotes.Quote{
		Document: document.Document{
			ID:        7,
			UUID:      uuid.New(),
			CompanyID: tenantA,
			Fields:    document.Fields{ClientID: 10, VenueID: ptr(int64(20)), EventDate: eventDate, Observation: "wedding"},
			Items: []ledger.LineItem{
				{ItemID: 1, Quantity: 1500, UnitPrice: 333},
				{ItemID: 2, Quantity: money.One, UnitPrice: 5000, Discount: 500},
			},
			Total: 5000,
		},
		Status: status,
	}
}

func TestCreateNumbersClauses(t *testing.T) {
	svc, _ := newService(nil)
	c, err := svc.Create(context.Background(), tenantA, sampleInput())
	require.NoError(t, err)

	assert.Equal(t, lifecycle.ContractDraft, c.Status)
	assert.Equal(t, money.Cents(10000), c.Total)
	require.Len(t, c.Clauses, 2)
	assert.Equal(t, 1, c.Clauses[0].Position)
	assert.Equal(t, 2, c.Clauses[1].Position)
	assert.True(t, c.Clauses[1].UserModified)
}

func TestCreateRejectsBlankClause(t *testing.T) {
	svc, _ := newService(nil)
	in := sampleInput()
	in.Clauses = append(in.Clauses, Clause{Title: "Empty"})
	_, err := svc.Create(context.Background(), tenantA, in)

	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "clauses[2].content")
}

func TestCreateFromApprovedQuote(t *testing.T) {
	q := approvedQuote(lifecycle.QuoteApproved)
	svc, _ := newService(memoryQuotes{q.ID: q})

	c, err := svc.CreateFromQuote(context.Background(), tenantA, q.ID, FromQuoteInput{
		Clauses: []Clause{{Title: "Scope", Content: "As quoted"}},
	})
	require.NoError(t, err)
	require.NotNil(t, c.OriginatingQuoteID)
	assert.Equal(t, q.ID, *c.OriginatingQuoteID)
	assert.Equal(t, q.Items, c.Items)
	assert.Equal(t, money.Cents(5000), c.Total)
	assert.Equal(t, "wedding", c.Observation)
	assert.Equal(t, lifecycle.ContractDraft, c.Status)
	assert.NotEqual(t, q.UUID, c.UUID)
	assert.Equal(t, lifecycle.QuoteApproved, q.Status, "quote status is not touched")

	_, err = svc.CreateFromQuote(context.Background(), tenantA, q.ID, FromQuoteInput{})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestCreateFromQuoteRechecksReferences(t *testing.T) {
	q := approvedQuote(lifecycle.QuoteApproved)
	q.ClientID = 99
	q.Items = append(q.Items, ledger.LineItem{ItemID: 9, Quantity: money.One, UnitPrice: 100})
	svc, repo := newService(memoryQuotes{q.ID: q})

	_, err := svc.CreateFromQuote(context.Background(), tenantA, q.ID, FromQuoteInput{})
	require.ErrorIs(t, err, shared.ErrValidation)
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "client_id")
	assert.Contains(t, verr.Fields, "items[2].item_id")
	assert.Empty(t, repo.contracts)
}

func TestCreateFromQuoteRequiresApproval(t *testing.T) {
	for _, status := range []lifecycle.QuoteStatus{lifecycle.QuoteDraft, lifecycle.QuoteSent, lifecycle.QuoteRejected} {
		q := approvedQuote(status)
		svc, _ := newService(memoryQuotes{q.ID: q})
		_, err := svc.CreateFromQuote(context.Background(), tenantA, q.ID, FromQuoteInput{})
		require.ErrorIs(t, err, shared.ErrConflict, string(status))
	}

	q := approvedQuote(lifecycle.QuoteApproved)
	svc, _ := newService(memoryQuotes{q.ID: q})
	_, err := svc.CreateFromQuote(context.Background(), tenantB, q.ID, FromQuoteInput{})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateStatusGoesThroughLifecycle(t *testing.T) {
	svc, _ := newService(nil)
	ctx := context.Background()
	c, err := svc.Create(ctx, tenantA, sampleInput())
	require.NoError(t, err)

	_, err = svc.Update(ctx, tenantA, c.ID, UpdateInput{
		Patch:  document.Patch{Observation: ptr("skip ahead")},
		Status: ptr(lifecycle.ContractConcluded),
	})
	require.ErrorIs(t, err, shared.ErrInvalidTransition)

	got, err := svc.Get(ctx, tenantA, c.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.ContractDraft, got.Status)
	assert.Empty(t, got.Observation, "rejected update leaves header untouched")

	updated, err := svc.Update(ctx, tenantA, c.ID, UpdateInput{
		Patch:  document.Patch{Observation: ptr("signed")},
		Status: ptr(lifecycle.ContractActive),
	})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.ContractActive, updated.Status)
	assert.Equal(t, "signed", updated.Observation)

	_, err = svc.Update(ctx, tenantA, c.ID, UpdateInput{Status: ptr(lifecycle.ContractStatus("PAID"))})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateReplacesClausesAndItemsTogether(t *testing.T) {
	svc, repo := newService(nil)
	ctx := context.Background()
	c, err := svc.Create(ctx, tenantA, sampleInput())
	require.NoError(t, err)

	items := []ledger.LineItem{{ItemID: 2, Quantity: 3000, UnitPrice: 100}}
	clauses := []Clause{{Title: "Only", Content: "One clause"}}
	repo.failOn = "clauses"
	_, err = svc.Update(ctx, tenantA, c.ID, UpdateInput{Items: &items, Clauses: &clauses})
	require.ErrorIs(t, err, errInjected)

	got, err := svc.Get(ctx, tenantA, c.ID)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(10000), got.Total)
	assert.Len(t, got.Clauses, 2)

	repo.failOn = ""
	updated, err := svc.Update(ctx, tenantA, c.ID, UpdateInput{Items: &items, Clauses: &clauses})
	require.NoError(t, err)
	assert.Equal(t, money.Cents(300), updated.Total)
	require.Len(t, updated.Clauses, 1)
	assert.Equal(t, 1, updated.Clauses[0].Position)
}

func TestFrozenContractRejectsEdits(t *testing.T) {
	svc, _ := newService(nil)
	ctx := context.Background()
	c, err := svc.Create(ctx, tenantA, sampleInput())
	require.NoError(t, err)

	_, err = svc.Transition(ctx, tenantA, c.ID, lifecycle.ContractActive)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, tenantA, c.ID, 2)
	require.NoError(t, err, "active contracts are editable")

	c, err = svc.Transition(ctx, tenantA, c.ID, lifecycle.ContractCanceled)
	require.NoError(t, err)
	assert.True(t, c.Frozen())

	_, err = svc.Transition(ctx, tenantA, c.ID, lifecycle.ContractActive)
	require.ErrorIs(t, err, shared.ErrConflict)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)

	_, err = svc.AddItem(ctx, tenantA, c.ID, 3)
	require.ErrorIs(t, err, shared.ErrConflict)

	clauses := []Clause{{Content: "late change"}}
	_, err = svc.Update(ctx, tenantA, c.ID, UpdateInput{Clauses: &clauses})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestContractItemEdits(t *testing.T) {
	svc, _ := newService(nil)
	ctx := context.Background()
	c, err := svc.Create(ctx, tenantA, sampleInput())
	require.NoError(t, err)

	c, err = svc.AddItem(ctx, tenantA, c.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(13000), c.Total)

	c, err = svc.UpdateItem(ctx, tenantA, c.ID, 0, ledger.Patch{Discount: ptr(money.Cents(1000))})
	require.NoError(t, err)
	assert.Equal(t, money.Cents(12000), c.Total)

	_, err = svc.UpdateItem(ctx, tenantA, c.ID, 0, ledger.Patch{Discount: ptr(money.Cents(20000))})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.AddItem(ctx, tenantA, c.ID, 99)
	require.ErrorIs(t, err, shared.ErrValidation)

	c, err = svc.RemoveItem(ctx, tenantA, c.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, ledger.ComputeTotal(c.Items), c.Total)

	_, err = svc.RemoveItem(ctx, tenantA, c.ID, 0)
	require.ErrorIs(t, err, shared.ErrValidation, "the last item cannot be removed")
}

func TestDeleteContract(t *testing.T) {
	svc, _ := newService(nil)
	ctx := context.Background()
	c, err := svc.Create(ctx, tenantA, sampleInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, tenantA, c.ID))
	_, err = svc.Get(ctx, tenantA, c.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, tenantA, c.ID), shared.ErrConflict)
}
