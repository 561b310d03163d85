package quotes

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

// Repository persists quotes. Every read is scoped to the company and skips soft-deleted rows.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, companyID, id int64) (*Quote, error)
	List(ctx context.Context, companyID int64, filter ListFilter) ([]Quote, int, error)
	Create(ctx context.Context, q *Quote) error
	UpdateHeader(ctx context.Context, q *Quote) error
	ReplaceItems(ctx context.Context, quoteID int64, items []ledger.LineItem) error
	// UpdateStatus moves the quote from one status to another. It fails with
	// shared.ErrConflict when the stored status is no longer from.
	UpdateStatus(ctx context.Context, companyID, id int64, from, to lifecycle.QuoteStatus) error
	DeletedAt(ctx context.Context, companyID, id int64) (*time.Time, error)
	SoftDelete(ctx context.Context, companyID, id int64, at time.Time) error
	ListOverdue(ctx context.Context, asOf time.Time, limit int) ([]Quote, error)
}

var quoteItems = document.NewItemStore("quote_items", "quote_id")

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

const quoteColumns = `id, uuid, company_id, client_id, category_id, venue_id, event_date, status, valid_until,
       total_cents, additional_discount_cents, observation, deleted_at, created_at, updated_at`

func scanQuote(row pgx.Row) (*Quote, error) {
	var (
		q               Quote
		status          string
		total, discount int64
	)
	err := row.Scan(&q.ID, &q.UUID, &q.CompanyID, &q.ClientID, &q.CategoryID, &q.VenueID, &q.EventDate,
		&status, &q.ValidUntil, &total, &discount, &q.Observation, &q.DeletedAt, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	q.Status = lifecycle.QuoteStatus(status)
	q.Total = money.Cents(total)
	q.AdditionalDiscount = money.Cents(discount)
	return &q, nil
}

func (r *repository) Get(ctx context.Context, companyID, id int64) (*Quote, error) {
	q, err := scanQuote(r.db.QueryRow(ctx, `SELECT `+quoteColumns+`
FROM quotes WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL`, id, companyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("quote %d: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if q.Items, err = quoteItems.Load(ctx, r.db, q.ID); err != nil {
		return nil, fmt.Errorf("load quote items: %w", err)
	}
	return q, nil
}

func (r *repository) List(ctx context.Context, companyID int64, filter ListFilter) ([]Quote, int, error) {
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
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM quotes "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := shared.PageWindow(filter.Page, filter.PerPage)
	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM quotes %s ORDER BY event_date DESC, id DESC LIMIT $%d OFFSET $%d`,
		quoteColumns, where, len(args)-1, len(args))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *q)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, q *Quote) error {
	now := time.Now()
	err := r.db.QueryRow(ctx, `INSERT INTO quotes (uuid, company_id, client_id, category_id, venue_id, event_date, status,
       valid_until, total_cents, additional_discount_cents, observation, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12) RETURNING id`,
		q.UUID, q.CompanyID, q.ClientID, q.CategoryID, q.VenueID, q.EventDate, string(q.Status),
		q.ValidUntil, int64(q.Total), int64(q.AdditionalDiscount), q.Observation, now).Scan(&q.ID)
	if err != nil {
		return fmt.Errorf("insert quote: %w", err)
	}
	q.CreatedAt, q.UpdatedAt = now, now
	return nil
}

func (r *repository) UpdateHeader(ctx context.Context, q *Quote) error {
	now := time.Now()
	tag, err := r.db.Exec(ctx, `UPDATE quotes SET client_id = $3, category_id = $4, venue_id = $5, event_date = $6,
       valid_until = $7, total_cents = $8, additional_discount_cents = $9, observation = $10, updated_at = $11
WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL`,
		q.ID, q.CompanyID, q.ClientID, q.CategoryID, q.VenueID, q.EventDate, q.ValidUntil,
		int64(q.Total), int64(q.AdditionalDiscount), q.Observation, now)
	if err != nil {
		return fmt.Errorf("update quote: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("quote %d: %w", q.ID, shared.ErrNotFound)
	}
	q.UpdatedAt = now
	return nil
}

func (r *repository) ReplaceItems(ctx context.Context, quoteID int64, items []ledger.LineItem) error {
	return quoteItems.Replace(ctx, r.db, quoteID, items)
}

func (r *repository) UpdateStatus(ctx context.Context, companyID, id int64, from, to lifecycle.QuoteStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE quotes SET status = $4, updated_at = NOW()
WHERE id = $1 AND company_id = $2 AND status = $3 AND deleted_at IS NULL`, id, companyID, string(from), string(to))
	if err != nil {
		return fmt.Errorf("update quote status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("quote %d is no longer %s: %w", id, from, shared.ErrConflict)
	}
	return nil
}

func (r *repository) DeletedAt(ctx context.Context, companyID, id int64) (*time.Time, error) {
	var deletedAt *time.Time
	err := r.db.QueryRow(ctx, `SELECT deleted_at FROM quotes WHERE id = $1 AND company_id = $2`, id, companyID).Scan(&deletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("quote %d: %w", id, shared.ErrNotFound)
	}
	return deletedAt, err
}

func (r *repository) SoftDelete(ctx context.Context, companyID, id int64, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE quotes SET deleted_at = $3, updated_at = $3
WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL`, id, companyID, at)
	return err
}

func (r *repository) ListOverdue(ctx context.Context, asOf time.Time, limit int) ([]Quote, error) {
	rows, err := r.db.Query(ctx, `SELECT `+quoteColumns+`
FROM quotes
WHERE deleted_at IS NULL AND status = ANY($1) AND valid_until IS NOT NULL AND valid_until < $2
ORDER BY valid_until LIMIT $3`,
		[]string{string(lifecycle.QuoteDraft), string(lifecycle.QuoteSent)}, asOf, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}
