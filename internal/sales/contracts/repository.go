package contracts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/festa-erp/festa/internal/ledger"
	"github.com/festa-erp/festa/internal/lifecycle"
	"github.com/festa-erp/festa/internal/money"
	"github.com/festa-erp/festa/internal/platform/db"
	"github.com/festa-erp/festa/internal/sales/document"
	"github.com/festa-erp/festa/internal/shared"
)

// Repository persists contracts. Every read is scoped to the company and skips soft-deleted rows.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, companyID, id int64) (*Contract, error)
	List(ctx context.Context, companyID int64, filter ListFilter) ([]Contract, int, error)
	FindByQuote(ctx context.Context, companyID, quoteID int64) (*int64, error)
	Create(ctx context.Context, c *Contract) error
	UpdateHeader(ctx context.Context, c *Contract) error
	ReplaceItems(ctx context.Context, contractID int64, items []ledger.LineItem) error
	ReplaceClauses(ctx context.Context, contractID int64, clauses []Clause) error
	UpdateStatus(ctx context.Context, companyID, id int64, status lifecycle.ContractStatus) error
	DeletedAt(ctx context.Context, companyID, id int64) (*time.Time, error)
	SoftDelete(ctx context.Context, companyID, id int64, at time.Time) error
}

var contractItems = document.NewItemStore("contract_items", "contract_id")

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

const contractColumns = `id, uuid, company_id, client_id, category_id, venue_id, event_date, start_time, status,
       originating_quote_id, total_cents, additional_discount_cents, observation, deleted_at, created_at, updated_at`

func scanContract(row pgx.Row) (*Contract, error) {
	var (
		c               Contract
		status          string
		total, discount int64
	)
	err := row.Scan(&c.ID, &c.UUID, &c.CompanyID, &c.ClientID, &c.CategoryID, &c.VenueID, &c.EventDate, &c.StartTime,
		&status, &c.OriginatingQuoteID, &total, &discount, &c.Observation, &c.DeletedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Status = lifecycle.ContractStatus(status)
	c.Total = money.Cents(total)
	c.AdditionalDiscount = money.Cents(discount)
	return &c, nil
}

func (r *repository) Get(ctx context.Context, companyID, id int64) (*Contract, error) {
	c, err := scanContract(r.db.QueryRow(ctx, `SELECT `+contractColumns+`
FROM contracts WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL`, id, companyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("contract %d: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if c.Items, err = contractItems.Load(ctx, r.db, c.ID); err != nil {
		return nil, fmt.Errorf("load contract items: %w", err)
	}
	if c.Clauses, err = r.loadClauses(ctx, c.ID); err != nil {
		return nil, fmt.Errorf("load contract clauses: %w", err)
	}
	return c, nil
}

func (r *repository) loadClauses(ctx context.Context, contractID int64) ([]Clause, error) {
	rows, err := r.db.Query(ctx, `SELECT position, title, content, template_id, user_modified
FROM contract_clauses WHERE contract_id = $1 ORDER BY position`, contractID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Clause, error) {
		var c Clause
		err := row.Scan(&c.Position, &c.Title, &c.Content, &c.TemplateID, &c.UserModified)
		return c, err
	})
}

func (r *repository) List(ctx context.Context, companyID int64, filter ListFilter) ([]Contract, int, error) {
	conditions := []string{"company_id = $1", "deleted_at IS NULL"}
	args := []any{companyID}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		conditions = append(conditions, fmt.Sprintf("client_id = $%d", len(args)))
	}
	where := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM contracts "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := shared.PageWindow(filter.Page, filter.PerPage)
	args = append(args, limit, offset)
	rows, err := r.db.Query(ctx, fmt.Sprintf(`SELECT %s FROM contracts %s ORDER BY event_date DESC, id DESC LIMIT $%d OFFSET $%d`,
		contractColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *c)
	}
	return out, total, rows.Err()
}

func (r *repository) FindByQuote(ctx context.Context, companyID, quoteID int64) (*int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `SELECT id FROM contracts
WHERE company_id = $1 AND originating_quote_id = $2 AND deleted_at IS NULL LIMIT 1`, companyID, quoteID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (r *repository) Create(ctx context.Context, c *Contract) error {
	now := time.Now()
	err := r.db.QueryRow(ctx, `INSERT INTO contracts (uuid, company_id, client_id, category_id, venue_id, event_date,
       start_time, status, originating_quote_id, total_cents, additional_discount_cents, observation, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13) RETURNING id`,
		c.UUID, c.CompanyID, c.ClientID, c.CategoryID, c.VenueID, c.EventDate, c.StartTime, string(c.Status),
		c.OriginatingQuoteID, int64(c.Total), int64(c.AdditionalDiscount), c.Observation, now).Scan(&c.ID)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("quote already converted: %w", shared.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert contract: %w", err)
	}
	c.CreatedAt, c.UpdatedAt = now, now
	return nil
}

func (r *repository) UpdateHeader(ctx context.Context, c *Contract) error {
	now := time.Now()
	tag, err := r.db.Exec(ctx, `UPDATE contracts SET client_id = $3, category_id = $4, venue_id = $5, event_date = $6,
       start_time = $7, total_cents = $8, additional_discount_cents = $9, observation = $10, updated_at = $11
WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL`,
		c.ID, c.CompanyID, c.ClientID, c.CategoryID, c.VenueID, c.EventDate, c.StartTime,
		int64(c.Total), int64(c.AdditionalDiscount), c.Observation, now)
	if err != nil {
		return fmt.Errorf("update contract: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("contract %d: %w", c.ID, shared.ErrNotFound)
	}
	c.UpdatedAt = now
	return nil
}

func (r *repository) ReplaceItems(ctx context.Context, contractID int64, items []ledger.LineItem) error {
	return contractItems.Replace(ctx, r.db, contractID, items)
}

func (r *repository) ReplaceClauses(ctx context.Context, contractID int64, clauses []Clause) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM contract_clauses WHERE contract_id = $1`, contractID); err != nil {
		return fmt.Errorf("delete contract clauses: %w", err)
	}
	if len(clauses) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, c := range clauses {
		batch.Queue(`INSERT INTO contract_clauses (contract_id, position, title, content, template_id, user_modified)
VALUES ($1, $2, $3, $4, $5, $6)`, contractID, c.Position, c.Title, c.Content, c.TemplateID, c.UserModified)
	}
	results := r.db.SendBatch(ctx, batch)
	defer results.Close()
	for range clauses {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert contract clause: %w", err)
		}
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, companyID, id int64, status lifecycle.ContractStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE contracts SET status = $3, updated_at = NOW()
WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL`, id, companyID, string(status))
	if err != nil {
		return fmt.Errorf("update contract status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("contract %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *repository) DeletedAt(ctx context.Context, companyID, id int64) (*time.Time, error) {
	var deletedAt *time.Time
	err := r.db.QueryRow(ctx, `SELECT deleted_at FROM contracts WHERE id = $1 AND company_id = $2`, id, companyID).Scan(&deletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("contract %d: %w", id, shared.ErrNotFound)
	}
	return deletedAt, err
}

func (r *repository) SoftDelete(ctx context.Context, companyID, id int64, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE contracts SET deleted_at = $3, updated_at = $3
WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL`, id, companyID, at)
	return err
}
