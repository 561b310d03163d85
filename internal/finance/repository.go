package finance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/festa-erp/festa/internal/money"
	"github.com/festa-erp/festa/internal/platform/db"
	"github.com/festa-erp/festa/internal/shared"
)

// Repository persists obligations and cash register entries. Reads are scoped to the
// company and skip soft-deleted rows.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	CreateObligation(ctx context.Context, o *Obligation) error
	GetObligation(ctx context.Context, companyID, id int64) (*Obligation, error)
	ListObligations(ctx context.Context, companyID int64, filter ListFilter) ([]Obligation, int, error)
	ListPending(ctx context.Context, companyID int64, kind Kind) ([]Obligation, error)
	ReceivablesFor(ctx context.Context, companyID, contractID int64) ([]Obligation, error)
	UpdateStatus(ctx context.Context, companyID, id int64, status Status, paymentDate *time.Time) error
	ObligationDeletedAt(ctx context.Context, companyID, id int64) (*time.Time, error)
	SoftDeleteObligation(ctx context.Context, companyID, id int64, at time.Time) error
	CreateEntry(ctx context.Context, e *Entry) error
	EntryDeletedAt(ctx context.Context, companyID, id int64) (*time.Time, error)
	SoftDeleteEntry(ctx context.Context, companyID, id int64, at time.Time) error
	EntriesFor(ctx context.Context, companyID int64, obligationIDs []int64) ([]Entry, error)
}

type repository struct {
	db   db.DBTX
	pool *pgxpool.Pool
}

// NewRepository creates the postgres repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, r.db, func(q db.DBTX) error {
		return fn(ctx, &repository{db: q, pool: r.pool})
	})
}

const obligationColumns = `id, company_id, kind, contract_id, supplier_id, description, amount_cents,
       due_date, payment_date, status, deleted_at, created_at`

func scanObligation(row pgx.Row) (Obligation, error) {
	var (
		o            Obligation
		kind, status string
		amount       int64
	)
	err := row.Scan(&o.ID, &o.CompanyID, &kind, &o.ContractID, &o.SupplierID, &o.Description, &amount,
		&o.DueDate, &o.PaymentDate, &status, &o.DeletedAt, &o.CreatedAt)
	o.Kind, o.Status, o.Amount = Kind(kind), Status(status), money.Cents(amount)
	return o, err
}

func (r *repository) collectObligations(ctx context.Context, query string, args ...any) ([]Obligation, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Obligation, error) {
		return scanObligation(row)
	})
}

func (r *repository) CreateObligation(ctx context.Context, o *Obligation) error {
	err := r.db.QueryRow(ctx, `INSERT INTO obligations (company_id, kind, contract_id, supplier_id, description,
       amount_cents, due_date, payment_date, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id, created_at`,
		o.CompanyID, string(o.Kind), o.ContractID, o.SupplierID, o.Description, int64(o.Amount),
		o.DueDate, o.PaymentDate, string(o.Status)).Scan(&o.ID, &o.CreatedAt)
	if db.IsForeignKeyViolation(err) {
		return fmt.Errorf("obligation reference: %w", shared.ErrNotFound)
	}
	return err
}

func (r *repository) GetObligation(ctx context.Context, companyID, id int64) (*Obligation, error) {
	o, err := scanObligation(r.db.QueryRow(ctx, `SELECT `+obligationColumns+`
FROM obligations WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL`, id, companyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("obligation %d: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repository) ListObligations(ctx context.Context, companyID int64, filter ListFilter) ([]Obligation, int, error) {
	conditions := []string{"company_id = $1", "deleted_at IS NULL"}
	args := []any{companyID}
	if filter.Kind != nil {
		args = append(args, string(*filter.Kind))
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.ContractID != nil {
		args = append(args, *filter.ContractID)
		conditions = append(conditions, fmt.Sprintf("contract_id = $%d", len(args)))
	}
	where := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM obligations "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit, offset := shared.PageWindow(filter.Page, filter.PerPage)
	args = append(args, limit, offset)
	out, err := r.collectObligations(ctx, fmt.Sprintf(`SELECT %s FROM obligations %s
ORDER BY due_date, id LIMIT $%d OFFSET $%d`, obligationColumns, where, len(args)-1, len(args)), args...)
	return out, total, err
}

func (r *repository) ListPending(ctx context.Context, companyID int64, kind Kind) ([]Obligation, error) {
	return r.collectObligations(ctx, `SELECT `+obligationColumns+` FROM obligations
WHERE company_id = $1 AND kind = $2 AND status = $3 AND deleted_at IS NULL ORDER BY due_date, id`,
		companyID, string(kind), string(StatusPending))
}

func (r *repository) ReceivablesFor(ctx context.Context, companyID, contractID int64) ([]Obligation, error) {
	return r.collectObligations(ctx, `SELECT `+obligationColumns+` FROM obligations
WHERE company_id = $1 AND contract_id = $2 AND kind = $3 AND deleted_at IS NULL ORDER BY due_date, id`,
		companyID, contractID, string(KindReceivable))
}

func (r *repository) UpdateStatus(ctx context.Context, companyID, id int64, status Status, paymentDate *time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE obligations SET status = $3, payment_date = $4
WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL`, id, companyID, string(status), paymentDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("obligation %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *repository) deletedAt(ctx context.Context, table string, companyID, id int64) (*time.Time, error) {
	var at *time.Time
	err := r.db.QueryRow(ctx, `SELECT deleted_at FROM `+table+` WHERE id = $1 AND company_id = $2`, id, companyID).Scan(&at)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s %d: %w", table, id, shared.ErrNotFound)
	}
	return at, err
}

func (r *repository) ObligationDeletedAt(ctx context.Context, companyID, id int64) (*time.Time, error) {
	return r.deletedAt(ctx, "obligations", companyID, id)
}

func (r *repository) SoftDeleteObligation(ctx context.Context, companyID, id int64, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE obligations SET deleted_at = $3 WHERE id = $1 AND company_id = $2`, id, companyID, at)
	return err
}

func (r *repository) CreateEntry(ctx context.Context, e *Entry) error {
	return r.db.QueryRow(ctx, `INSERT INTO cash_register_entries (company_id, direction, obligation_id, amount_cents,
       entry_date, method, description)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`,
		e.CompanyID, string(e.Direction), e.ObligationID, int64(e.Amount), e.Date, e.Method, e.Description,
	).Scan(&e.ID, &e.CreatedAt)
}

func (r *repository) EntryDeletedAt(ctx context.Context, companyID, id int64) (*time.Time, error) {
	return r.deletedAt(ctx, "cash_register_entries", companyID, id)
}

func (r *repository) SoftDeleteEntry(ctx context.Context, companyID, id int64, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE cash_register_entries SET deleted_at = $3 WHERE id = $1 AND company_id = $2`, id, companyID, at)
	return err
}

func (r *repository) EntriesFor(ctx context.Context, companyID int64, obligationIDs []int64) ([]Entry, error) {
	if len(obligationIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT id, company_id, direction, obligation_id, amount_cents, entry_date,
       method, description, created_at
FROM cash_register_entries
WHERE company_id = $1 AND obligation_id = ANY($2) AND deleted_at IS NULL
ORDER BY entry_date, id`, companyID, obligationIDs)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var (
			e         Entry
			direction string
			amount    int64
		)
		err := row.Scan(&e.ID, &e.CompanyID, &direction, &e.ObligationID, &amount, &e.Date,
			&e.Method, &e.Description, &e.CreatedAt)
		e.Direction, e.Amount = Direction(direction), money.Cents(amount)
		return e, err
	})
}
