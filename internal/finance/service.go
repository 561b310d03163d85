package finance

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/festa-erp/festa/internal/sales/contracts"
	"github.com/festa-erp/festa/internal/shared"
)

const idempotencyModule = "finance.payment"

// ContractReader loads the contract a receivable points at.
type ContractReader interface {
	Get(ctx context.Context, companyID, id int64) (*contracts.Contract, error)
}

// Directory answers supplier lookups for payables.
type Directory interface {
	SupplierExists(ctx context.Context, companyID, id int64) (bool, error)
}

// Idempotency claims request keys. shared.IdempotencyStore implements it.
type Idempotency interface {
	CheckAndInsert(ctx context.Context, module string, companyID int64, key string) error
	Delete(ctx context.Context, module string, companyID int64, key string) error
}

// PaymentObserver is notified of recorded payments.
type PaymentObserver interface {
	ObservePayment(kind string, amountCents int64)
}

var methods = map[string]bool{
	MethodCash: true, MethodPix: true, MethodCreditCard: true,
	MethodDebitCard: true, MethodBankTransfer: true, MethodBoleto: true,
}

// Service handles obligations and the cash register.
type Service struct {
	repo      Repository
	contracts ContractReader
	dir       Directory
	idem      Idempotency
	audit     shared.AuditRecorder
	metrics   PaymentObserver
	now       func() time.Time
}

// NewService wires the finance service. idem may be nil, in which case payment
// idempotency keys are ignored.
func NewService(repo Repository, contracts ContractReader, dir Directory, idem Idempotency, audit shared.AuditRecorder, metrics PaymentObserver) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	return &Service{
		repo:      repo,
		contracts: contracts,
		dir:       dir,
		idem:      idem,
		audit:     audit,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Create registers a pending obligation. Receivables may point at a contract that is
// not frozen; payables may point at a supplier.
func (s *Service) Create(ctx context.Context, companyID int64, in CreateInput) (*Position, error) {
	verr := &shared.ValidationError{}
	if !in.Kind.Valid() {
		verr.Add("kind", "must be RECEIVABLE or PAYABLE")
	}
	if in.Amount <= 0 {
		verr.Add("amount_cents", "must be greater than zero")
	}
	if in.DueDate.IsZero() {
		verr.Add("due_date", "required")
	}
	if in.Kind == KindReceivable && in.SupplierID != nil {
		verr.Add("supplier_id", "only payables reference a supplier")
	}
	if in.Kind == KindPayable && in.ContractID != nil {
		verr.Add("contract_id", "only receivables reference a contract")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if in.ContractID != nil {
		c, err := s.contracts.Get(ctx, companyID, *in.ContractID)
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewValidationError("contract_id", "unknown contract")
		}
		if err != nil {
			return nil, err
		}
		if c.Frozen() {
			return nil, fmt.Errorf("contract %d is %s: %w", c.ID, c.Status, shared.ErrConflict)
		}
	}
	if in.SupplierID != nil {
		ok, err := s.dir.SupplierExists(ctx, companyID, *in.SupplierID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, shared.NewValidationError("supplier_id", "unknown supplier")
		}
	}

	o := &Obligation{
		CompanyID:   companyID,
		Kind:        in.Kind,
		ContractID:  in.ContractID,
		SupplierID:  in.SupplierID,
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		DueDate:     in.DueDate,
		Status:      StatusPending,
	}
	if err := s.repo.CreateObligation(ctx, o); err != nil {
		return nil, fmt.Errorf("create obligation: %w", err)
	}
	s.record(ctx, companyID, "obligation.created", "obligation", o.ID, map[string]any{
		"kind":         o.Kind,
		"amount_cents": int64(o.Amount),
	})
	return &Position{Obligation: *o, Balance: DeriveBalances(*o, nil)}, nil
}

// Get returns the obligation with its balance recomputed from live entries.
func (s *Service) Get(ctx context.Context, companyID, id int64) (*Position, error) {
	return s.position(ctx, s.repo, companyID, id)
}

func (s *Service) position(ctx context.Context, repo Repository, companyID, id int64) (*Position, error) {
	o, err := repo.GetObligation(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	entries, err := repo.EntriesFor(ctx, companyID, []int64{id})
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	return &Position{Obligation: *o, Balance: DeriveBalances(*o, entries)}, nil
}

func (s *Service) List(ctx context.Context, companyID int64, filter ListFilter) ([]Position, shared.Pagination, error) {
	if filter.Kind != nil && !filter.Kind.Valid() {
		return nil, shared.Pagination{}, shared.NewValidationError("kind", "must be RECEIVABLE or PAYABLE")
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, shared.Pagination{}, shared.NewValidationError("status", "must be PENDING or SETTLED")
	}
	obligations, total, err := s.repo.ListObligations(ctx, companyID, filter)
	if err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("list obligations: %w", err)
	}
	positions, err := s.withBalances(ctx, companyID, obligations)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return positions, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

func (s *Service) withBalances(ctx context.Context, companyID int64, obligations []Obligation) ([]Position, error) {
	ids := make([]int64, len(obligations))
	for i, o := range obligations {
		ids[i] = o.ID
	}
	entries, err := s.repo.EntriesFor(ctx, companyID, ids)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	return Positions(obligations, entries), nil
}

// Receipt is a recorded payment and the balance it leaves behind.
type Receipt struct {
	Entry    Entry
	Position Position
}

// RegisterPayment records one cash register entry against the obligation, IN for
// receivables and OUT for payables. The obligation status is left as it is.
func (s *Service) RegisterPayment(ctx context.Context, companyID, obligationID int64, in PaymentInput) (*Receipt, error) {
	verr := &shared.ValidationError{}
	if in.Amount <= 0 {
		verr.Add("amount_cents", "must be greater than zero")
	}
	in.Method = strings.ToUpper(strings.TrimSpace(in.Method))
	if !methods[in.Method] {
		verr.Add("method", "unknown payment method")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	if in.Date.IsZero() {
		in.Date = s.now()
	}

	claimed := false
	if in.IdempotencyKey != "" && s.idem != nil {
		if err := s.idem.CheckAndInsert(ctx, idempotencyModule, companyID, in.IdempotencyKey); err != nil {
			return nil, fmt.Errorf("payment for obligation %d: %w", obligationID, err)
		}
		claimed = true
	}

	var receipt Receipt
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		o, err := repo.GetObligation(ctx, companyID, obligationID)
		if err != nil {
			return err
		}
		receipt.Entry = Entry{
			CompanyID:    companyID,
			Direction:    o.Kind.Direction(),
			ObligationID: o.ID,
			Amount:       in.Amount,
			Date:         in.Date,
			Method:       in.Method,
			Description:  strings.TrimSpace(in.Description),
		}
		if err := repo.CreateEntry(ctx, &receipt.Entry); err != nil {
			return err
		}
		p, err := s.position(ctx, repo, companyID, obligationID)
		if err != nil {
			return err
		}
		receipt.Position = *p
		return nil
	})
	if err != nil {
		if claimed {
			_ = s.idem.Delete(ctx, idempotencyModule, companyID, in.IdempotencyKey)
		}
		return nil, fmt.Errorf("payment for obligation %d: %w", obligationID, err)
	}

	if s.metrics != nil {
		s.metrics.ObservePayment(string(receipt.Position.Kind), int64(in.Amount))
	}
	s.record(ctx, companyID, "obligation.payment_registered", "obligation", obligationID, map[string]any{
		"entry_id":     receipt.Entry.ID,
		"amount_cents": int64(in.Amount),
		"method":       in.Method,
	})
	return &receipt, nil
}

// SetStatus changes the status by hand. Settling stamps the payment date, which
// defaults to now; returning to PENDING clears it.
func (s *Service) SetStatus(ctx context.Context, companyID, id int64, status Status, paymentDate *time.Time) (*Position, error) {
	if !status.Valid() {
		return nil, shared.NewValidationError("status", "must be PENDING or SETTLED")
	}
	var (
		out     *Position
		changed bool
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		p, err := s.position(ctx, repo, companyID, id)
		if err != nil {
			return err
		}
		if p.Status == status {
			out = p
			return nil
		}
		var paid *time.Time
		if status == StatusSettled {
			at := s.now()
			if paymentDate != nil {
				at = *paymentDate
			}
			paid = &at
		}
		if err := repo.UpdateStatus(ctx, companyID, id, status, paid); err != nil {
			return err
		}
		p.Status, p.PaymentDate = status, paid
		out, changed = p, true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("obligation %d status: %w", id, err)
	}
	if changed {
		s.record(ctx, companyID, "obligation.status_changed", "obligation", id, map[string]any{"to": status})
	}
	return out, nil
}

// Delete soft-deletes an obligation. Its entries stay in the cash register.
func (s *Service) Delete(ctx context.Context, companyID, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		deletedAt, err := repo.ObligationDeletedAt(ctx, companyID, id)
		if err != nil {
			return err
		}
		if deletedAt != nil {
			return fmt.Errorf("obligation already deleted: %w", shared.ErrConflict)
		}
		return repo.SoftDeleteObligation(ctx, companyID, id, s.now())
	})
	if err != nil {
		return fmt.Errorf("delete obligation %d: %w", id, err)
	}
	s.record(ctx, companyID, "obligation.deleted", "obligation", id, nil)
	return nil
}

// DeleteEntry soft-deletes a cash register entry; balances drop it on the next read.
func (s *Service) DeleteEntry(ctx context.Context, companyID, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		deletedAt, err := repo.EntryDeletedAt(ctx, companyID, id)
		if err != nil {
			return err
		}
		if deletedAt != nil {
			return fmt.Errorf("entry already deleted: %w", shared.ErrConflict)
		}
		return repo.SoftDeleteEntry(ctx, companyID, id, s.now())
	})
	if err != nil {
		return fmt.Errorf("delete entry %d: %w", id, err)
	}
	s.record(ctx, companyID, "cash_entry.deleted", "cash_entry", id, nil)
	return nil
}

// ContractStatement loads the contract and its receivables concurrently and compares
// the contract value with what was billed and received.
func (s *Service) ContractStatement(ctx context.Context, companyID, contractID int64) (*Statement, error) {
	var (
		contract  *contracts.Contract
		positions []Position
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.contracts.Get(gctx, companyID, contractID)
		if err != nil {
			return err
		}
		contract = c
		return nil
	})
	g.Go(func() error {
		obligations, err := s.repo.ReceivablesFor(gctx, companyID, contractID)
		if err != nil {
			return fmt.Errorf("load receivables: %w", err)
		}
		positions, err = s.withBalances(gctx, companyID, obligations)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("contract %d statement: %w", contractID, err)
	}

	st := &Statement{
		ContractID:    contractID,
		ContractTotal: contract.Total,
		NetTotal:      contract.NetTotal(),
		Receivables:   positions,
	}
	for _, p := range positions {
		st.Billed += p.Amount
		st.Received += p.AmountPaid
	}
	st.Outstanding = st.Billed - st.Received
	st.Unbilled = st.NetTotal - st.Billed
	return st, nil
}

// Aging buckets the open balance of pending obligations of one kind.
func (s *Service) Aging(ctx context.Context, companyID int64, kind Kind, asOf time.Time) (Aging, error) {
	if !kind.Valid() {
		return Aging{}, shared.NewValidationError("kind", "must be RECEIVABLE or PAYABLE")
	}
	if asOf.IsZero() {
		asOf = s.now()
	}
	obligations, err := s.repo.ListPending(ctx, companyID, kind)
	if err != nil {
		return Aging{}, fmt.Errorf("list pending obligations: %w", err)
	}
	positions, err := s.withBalances(ctx, companyID, obligations)
	if err != nil {
		return Aging{}, err
	}
	return AgeOutstanding(positions, asOf), nil
}

func (s *Service) record(ctx context.Context, companyID int64, action, entity string, id int64, meta map[string]any) {
	_ = s.audit.Record(ctx, shared.AuditLog{
		CompanyID: companyID,
		ActorID:   shared.ActorFromContext(ctx),
		Action:    action,
		Entity:    entity,
		EntityID:  strconv.FormatInt(id, 10),
		Meta:      meta,
		At:        s.now(),
	})
}
