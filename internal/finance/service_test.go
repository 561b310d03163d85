package finance

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/festa-erp/festa/internal/lifecycle"
	"github.com/festa-erp/festa/internal/money"
	"github.com/festa-erp/festa/internal/sales/document"
	"github.com/festa-erp/festa/internal/shared"
)

func ptr[T any](v T) *T { return &v }

const tenantA, tenantB = int64(1), int64(2)

var dueDate = time.Date(2026, 11, 10, 0, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	repo     *memoryRepo
	payments *recordingPayments
	redis    *miniredis.Miniredis
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMemoryRepo()
	payments := &recordingPayments{}
	known := memoryContracts{
		100: {Document: document.Document{ID: 100, CompanyID: tenantA, Total: 50000,
			Fields: document.Fields{ClientID: 10, AdditionalDiscount: 2000}}, Status: lifecycle.ContractActive},
		101: {Document: document.Document{ID: 101, CompanyID: tenantA, Total: 9000}, Status: lifecycle.ContractCanceled},
	}
	svc := NewService(repo, known, memoryDirectory{}, shared.NewIdempotencyStore(client, time.Hour), nil, payments)
	return fixture{svc: svc, repo: repo, payments: payments, redis: mr}
}

func receivable(amount money.Cents) CreateInput {
	return CreateInput{Kind: KindReceivable, ContractID: ptr(int64(100)), Amount: amount, DueDate: dueDate, Description: "deposit"}
}

func TestCreateObligation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, tenantA, receivable(10000))
	require.NoError(t, err)
	assert.Equal(t, StatusPending, p.Status)
	assert.Equal(t, money.Cents(0), p.AmountPaid)
	assert.Equal(t, money.Cents(10000), p.AmountRemaining)

	payable, err := f.svc.Create(ctx, tenantA, CreateInput{Kind: KindPayable, SupplierID: ptr(int64(50)), Amount: 700, DueDate: dueDate})
	require.NoError(t, err)
	assert.Equal(t, KindPayable, payable.Kind)
}

func TestCreateObligationValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, tenantA, CreateInput{Kind: "LOAN", Amount: 0})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "kind")
	assert.Contains(t, verr.Fields, "amount_cents")
	assert.Contains(t, verr.Fields, "due_date")

	_, err = f.svc.Create(ctx, tenantA, CreateInput{Kind: KindPayable, ContractID: ptr(int64(100)), Amount: 1, DueDate: dueDate})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "contract_id")

	_, err = f.svc.Create(ctx, tenantA, CreateInput{Kind: KindPayable, SupplierID: ptr(int64(51)), Amount: 1, DueDate: dueDate})
	require.ErrorIs(t, err, shared.ErrValidation)

	in := receivable(1)
	in.ContractID = ptr(int64(999))
	_, err = f.svc.Create(ctx, tenantA, in)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.Create(ctx, tenantB, receivable(1))
	require.ErrorIs(t, err, shared.ErrValidation, "contracts of another company are unknown")
}

func TestCreateReceivableForFrozenContract(t *testing.T) {
	f := newFixture(t)
	in := receivable(1000)
	in.ContractID = ptr(int64(101))
	_, err := f.svc.Create(context.Background(), tenantA, in)
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestRegisterPaymentDerivesBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svc.Create(ctx, tenantA, receivable(10000))
	require.NoError(t, err)

	first, err := f.svc.RegisterPayment(ctx, tenantA, p.ID, PaymentInput{Amount: 3000, Method: "pix"})
	require.NoError(t, err)
	assert.Equal(t, DirectionIn, first.Entry.Direction)
	assert.Equal(t, MethodPix, first.Entry.Method)
	assert.False(t, first.Entry.Date.IsZero())

	second, err := f.svc.RegisterPayment(ctx, tenantA, p.ID, PaymentInput{Amount: 2000, Method: MethodCash})
	require.NoError(t, err)
	assert.Equal(t, money.Cents(5000), second.Position.AmountPaid)
	assert.Equal(t, money.Cents(5000), second.Position.AmountRemaining)
	assert.Equal(t, StatusPending, second.Position.Status, "payments never settle the obligation")
	assert.Equal(t, int64(5000), f.payments.counts["RECEIVABLE"])

	require.NoError(t, f.svc.DeleteEntry(ctx, tenantA, first.Entry.ID))
	got, err := f.svc.Get(ctx, tenantA, p.ID)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(2000), got.AmountPaid)
	assert.Equal(t, money.Cents(8000), got.AmountRemaining)

	require.ErrorIs(t, f.svc.DeleteEntry(ctx, tenantA, first.Entry.ID), shared.ErrConflict)
}

func TestRegisterPaymentOnPayableIsOutflow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svc.Create(ctx, tenantA, CreateInput{Kind: KindPayable, Amount: 800, DueDate: dueDate})
	require.NoError(t, err)

	rc, err := f.svc.RegisterPayment(ctx, tenantA, p.ID, PaymentInput{Amount: 800, Method: MethodBankTransfer})
	require.NoError(t, err)
	assert.Equal(t, DirectionOut, rc.Entry.Direction)
	assert.Equal(t, money.Cents(0), rc.Position.AmountRemaining)
}

func TestRegisterPaymentValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svc.Create(ctx, tenantA, receivable(10000))
	require.NoError(t, err)

	_, err = f.svc.RegisterPayment(ctx, tenantA, p.ID, PaymentInput{Amount: -5, Method: "BARTER"})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "amount_cents")
	assert.Contains(t, verr.Fields, "method")

	_, err = f.svc.RegisterPayment(ctx, tenantB, p.ID, PaymentInput{Amount: 5, Method: MethodCash})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRegisterPaymentIdempotency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svc.Create(ctx, tenantA, receivable(10000))
	require.NoError(t, err)
	in := PaymentInput{Amount: 1000, Method: MethodCash, IdempotencyKey: "req-1"}

	_, err = f.svc.RegisterPayment(ctx, tenantA, p.ID, in)
	require.NoError(t, err)
	_, err = f.svc.RegisterPayment(ctx, tenantA, p.ID, in)
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)

	got, err := f.svc.Get(ctx, tenantA, p.ID)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(1000), got.AmountPaid)

	// the same key is independent per company
	other, err := f.svc.Create(ctx, tenantB, CreateInput{Kind: KindPayable, Amount: 10, DueDate: dueDate})
	require.NoError(t, err)
	_, err = f.svc.RegisterPayment(ctx, tenantB, other.ID, in)
	require.NoError(t, err)
}

func TestRegisterPaymentReleasesKeyOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svc.Create(ctx, tenantA, receivable(10000))
	require.NoError(t, err)
	in := PaymentInput{Amount: 1000, Method: MethodCash, IdempotencyKey: "retry-me"}

	f.repo.failOn = "entry"
	_, err = f.svc.RegisterPayment(ctx, tenantA, p.ID, in)
	require.ErrorIs(t, err, errInjected)
	assert.False(t, f.redis.Exists(shared.IdempotencyKey(idempotencyModule, tenantA, "retry-me")))

	f.repo.failOn = ""
	_, err = f.svc.RegisterPayment(ctx, tenantA, p.ID, in)
	require.NoError(t, err)
}

func TestSetStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svc.Create(ctx, tenantA, receivable(10000))
	require.NoError(t, err)

	paidOn := time.Date(2026, 11, 9, 0, 0, 0, 0, time.UTC)
	settled, err := f.svc.SetStatus(ctx, tenantA, p.ID, StatusSettled, &paidOn)
	require.NoError(t, err)
	assert.Equal(t, StatusSettled, settled.Status)
	require.NotNil(t, settled.PaymentDate)
	assert.Equal(t, paidOn, *settled.PaymentDate)
	assert.Equal(t, money.Cents(10000), settled.AmountRemaining, "settling records no payment")

	reopened, err := f.svc.SetStatus(ctx, tenantA, p.ID, StatusPending, nil)
	require.NoError(t, err)
	assert.Nil(t, reopened.PaymentDate)

	_, err = f.svc.SetStatus(ctx, tenantA, p.ID, "PAID", nil)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestDeleteObligation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svc.Create(ctx, tenantA, receivable(10000))
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.Delete(ctx, tenantB, p.ID), shared.ErrNotFound)
	require.NoError(t, f.svc.Delete(ctx, tenantA, p.ID))
	_, err = f.svc.Get(ctx, tenantA, p.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.ErrorIs(t, f.svc.Delete(ctx, tenantA, p.ID), shared.ErrConflict)
}

func TestListWithBalances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.svc.Create(ctx, tenantA, receivable(10000))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, tenantA, CreateInput{Kind: KindPayable, Amount: 500, DueDate: dueDate})
	require.NoError(t, err)
	_, err = f.svc.RegisterPayment(ctx, tenantA, a.ID, PaymentInput{Amount: 2500, Method: MethodCash})
	require.NoError(t, err)

	kind := KindReceivable
	list, page, err := f.svc.List(ctx, tenantA, ListFilter{Kind: &kind, Page: 1, PerPage: 20})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, money.Cents(7500), list[0].AmountRemaining)
	assert.Equal(t, 1, page.Total)

	bad := Kind("X")
	_, _, err = f.svc.List(ctx, tenantA, ListFilter{Kind: &bad})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestContractStatement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	deposit, err := f.svc.Create(ctx, tenantA, receivable(20000))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, tenantA, receivable(15000))
	require.NoError(t, err)
	_, err = f.svc.RegisterPayment(ctx, tenantA, deposit.ID, PaymentInput{Amount: 20000, Method: MethodPix})
	require.NoError(t, err)

	st, err := f.svc.ContractStatement(ctx, tenantA, 100)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(50000), st.ContractTotal)
	assert.Equal(t, money.Cents(48000), st.NetTotal)
	assert.Equal(t, money.Cents(35000), st.Billed)
	assert.Equal(t, money.Cents(20000), st.Received)
	assert.Equal(t, money.Cents(15000), st.Outstanding)
	assert.Equal(t, money.Cents(13000), st.Unbilled)
	assert.Len(t, st.Receivables, 2)

	_, err = f.svc.ContractStatement(ctx, tenantB, 100)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svc.Create(ctx, tenantA, receivable(10000))
	require.NoError(t, err)
	_, err = f.svc.RegisterPayment(ctx, tenantA, p.ID, PaymentInput{Amount: 4000, Method: MethodCash})
	require.NoError(t, err)

	aging, err := f.svc.Aging(ctx, tenantA, KindReceivable, dueDate.AddDate(0, 0, 40))
	require.NoError(t, err)
	assert.Equal(t, Aging{Bucket60: 6000}, aging)

	_, err = f.svc.Aging(ctx, tenantA, "OTHER", time.Time{})
	require.ErrorIs(t, err, shared.ErrValidation)
}
