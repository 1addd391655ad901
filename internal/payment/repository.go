package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// DBPool matches the methods from *pgxpool.Pool that the repository uses.
// This allows the database to be mocked in tests.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id int64) (*Payment, error)
	ListByUser(ctx context.Context, userID int64) ([]Payment, error)
	ListLatest(ctx context.Context, limit int) ([]Payment, error)
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create inserts the payment and fills in the store-assigned id and timestamp.
// Amounts cross the wire as fixed-point strings so NUMERIC(12,2) never sees a float.
func (r *PostgresRepository) Create(ctx context.Context, p *Payment) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO payments (user_id, amount, currency, status, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, p.UserID, p.Amount.StringFixed(2), p.Currency, string(p.Status), p.Description).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Payment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, amount::text, currency, status, COALESCE(description, ''), created_at
		FROM payments WHERE id = $1
	`, id)

	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select payment: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, amount::text, currency, status, COALESCE(description, ''), created_at
		FROM payments WHERE user_id = $1 ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("select payments by user: %w", err)
	}
	defer rows.Close()

	return collectPayments(rows)
}

func (r *PostgresRepository) ListLatest(ctx context.Context, limit int) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, amount::text, currency, status, COALESCE(description, ''), created_at
		FROM payments ORDER BY created_at DESC, id DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("select latest payments: %w", err)
	}
	defer rows.Close()

	return collectPayments(rows)
}

func scanPayment(row pgx.Row) (*Payment, error) {
	var (
		p      Payment
		amount string
		status string
	)
	if err := row.Scan(&p.ID, &p.UserID, &amount, &p.Currency, &status, &p.Description, &p.CreatedAt); err != nil {
		return nil, err
	}

	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	p.Amount = amt
	p.Status = Status(status)
	return &p, nil
}

func collectPayments(rows pgx.Rows) ([]Payment, error) {
	var payments []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return payments, nil
}
