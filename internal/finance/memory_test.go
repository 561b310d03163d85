package finance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/festa-erp/festa/internal/sales/contracts"
	"github.com/festa-erp/festa/internal/shared"
)

var errInjected = errors.New("injected failure")

type memoryRepo struct {
	mu          sync.Mutex
	obligations map[int64]Obligation
	entries     map[int64]Entry
	nextID      int64
	inTx        bool
	failOn      string
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{obligations: map[int64]Obligation{}, entries: map[int64]Entry{}, nextID: 1}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	if m.inTx {
		return fn(ctx, m)
	}
	m.mu.Lock()
	obligations := make(map[int64]Obligation, len(m.obligations))
	for k, v := range m.obligations {
		obligations[k] = v
	}
	entries := make(map[int64]Entry, len(m.entries))
	for k, v := range m.entries {
		entries[k] = v
	}
	m.inTx = true
	m.mu.Unlock()

	err := fn(ctx, m)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inTx = false
	if err != nil {
		m.obligations, m.entries = obligations, entries
	}
	return err
}

func (m *memoryRepo) id() int64 {
	id := m.nextID
	m.nextID++
	return id
}

func (m *memoryRepo) CreateObligation(_ context.Context, o *Obligation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.ID = m.id()
	o.CreatedAt = time.Now()
	m.obligations[o.ID] = *o
	return nil
}

func (m *memoryRepo) GetObligation(_ context.Context, companyID, id int64) (*Obligation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.obligations[id]
	if !ok || o.CompanyID != companyID || o.DeletedAt != nil {
		return nil, fmt.Errorf("obligation %d: %w", id, shared.ErrNotFound)
	}
	return &o, nil
}

func (m *memoryRepo) filter(keep func(Obligation) bool) []Obligation {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Obligation
	for _, o := range m.obligations {
		if o.DeletedAt == nil && keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memoryRepo) ListObligations(_ context.Context, companyID int64, f ListFilter) ([]Obligation, int, error) {
	out := m.filter(func(o Obligation) bool {
		return o.CompanyID == companyID &&
			(f.Kind == nil || o.Kind == *f.Kind) &&
			(f.Status == nil || o.Status == *f.Status) &&
			(f.ContractID == nil || (o.ContractID != nil && *o.ContractID == *f.ContractID))
	})
	return out, len(out), nil
}

func (m *memoryRepo) ListPending(_ context.Context, companyID int64, kind Kind) ([]Obligation, error) {
	return m.filter(func(o Obligation) bool {
		return o.CompanyID == companyID && o.Kind == kind && o.Status == StatusPending
	}), nil
}

func (m *memoryRepo) ReceivablesFor(_ context.Context, companyID, contractID int64) ([]Obligation, error) {
	return m.filter(func(o Obligation) bool {
		return o.CompanyID == companyID && o.Kind == KindReceivable && o.ContractID != nil && *o.ContractID == contractID
	}), nil
}

func (m *memoryRepo) UpdateStatus(_ context.Context, companyID, id int64, status Status, paymentDate *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.obligations[id]
	if !ok || o.CompanyID != companyID || o.DeletedAt != nil {
		return shared.ErrNotFound
	}
	o.Status, o.PaymentDate = status, paymentDate
	m.obligations[id] = o
	return nil
}

func (m *memoryRepo) ObligationDeletedAt(_ context.Context, companyID, id int64) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.obligations[id]
	if !ok || o.CompanyID != companyID {
		return nil, shared.ErrNotFound
	}
	return o.DeletedAt, nil
}

func (m *memoryRepo) SoftDeleteObligation(_ context.Context, _ int64, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.obligations[id]
	o.DeletedAt = &at
	m.obligations[id] = o
	return nil
}

func (m *memoryRepo) CreateEntry(_ context.Context, e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn == "entry" {
		return errInjected
	}
	e.ID = m.id()
	e.CreatedAt = time.Now()
	m.entries[e.ID] = *e
	return nil
}

func (m *memoryRepo) EntryDeletedAt(_ context.Context, companyID, id int64) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || e.CompanyID != companyID {
		return nil, shared.ErrNotFound
	}
	return e.DeletedAt, nil
}

func (m *memoryRepo) SoftDeleteEntry(_ context.Context, _ int64, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entries[id]
	e.DeletedAt = &at
	m.entries[id] = e
	return nil
}

func (m *memoryRepo) EntriesFor(_ context.Context, companyID int64, ids []int64) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []Entry
	for _, e := range m.entries {
		if e.CompanyID == companyID && e.DeletedAt == nil && want[e.ObligationID] {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memoryContracts map[int64]*contracts.Contract

func (m memoryContracts) Get(_ context.Context, companyID, id int64) (*contracts.Contract, error) {
	c, ok := m[id]
	if !ok || c.CompanyID != companyID {
		return nil, fmt.Errorf("contract %d: %w", id, shared.ErrNotFound)
	}
	return c, nil
}

type memoryDirectory struct{}

func (memoryDirectory) SupplierExists(_ context.Context, _ int64, id int64) (bool, error) {
	return id == 50, nil
}

type recordingPayments struct {
	mu     sync.Mutex
	counts map[string]int64
}

func (r *recordingPayments) ObservePayment(kind string, amount int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int64{}
	}
	r.counts[kind] += amount
}
