// Package balances provides the PostgreSQL-backed balance store. Deltas are
// applied as a single atomic UPDATE at the storage layer, so concurrent
// credits and debits on the same field never lose an update.
package balances

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/avdeevsv/walletkeeper/internal/common"
	"github.com/avdeevsv/walletkeeper/internal/dbx"
	"github.com/avdeevsv/walletkeeper/internal/server/models"
)

// PostgresRepository implements balance storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const uniqueViolation = "23505"

// column whitelists the two mutable balance columns.
func column(field models.BalanceField) (string, error) {
	switch field {
	case models.FieldHome:
		return "home_balance", nil
	case models.FieldGas:
		return "gas_balance", nil
	}
	return "", fmt.Errorf("unknown balance field: %q", field)
}

// CreateDefault inserts the single balance row for userID. A second call for
// the same user fails with common.ErrAlreadyAllocated.
func (r *PostgresRepository) CreateDefault(ctx context.Context, userID string, home, gas float64) (*models.Balance, error) {
	query :=
		`INSERT INTO balances (user_id, home_balance, gas_balance)
		 VALUES ($1, $2, $3)
		 RETURNING user_id, home_balance, gas_balance, updated_at
		 `

	b := &models.Balance{}
	err := r.db.QueryRowContext(ctx, query, userID, home, gas).
		Scan(&b.UserID, &b.HomeBalance, &b.GasBalance, &b.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrAlreadyAllocated
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return b, nil
}

// ApplyDelta atomically adds delta to the named field and refreshes
// updated_at. The read-modify-write happens entirely inside the UPDATE
// statement. Fails with common.ErrorNotFound if no row exists for userID.
func (r *PostgresRepository) ApplyDelta(ctx context.Context, userID string, field models.BalanceField, delta float64) (*models.Balance, error) {
	col, err := column(field)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		`UPDATE balances SET %s = %s + $1, updated_at = now()
		 WHERE user_id = $2
		 RETURNING user_id, home_balance, gas_balance, updated_at
		 `, col, col)

	b := &models.Balance{}
	err = r.db.QueryRowContext(ctx, query, delta, userID).
		Scan(&b.UserID, &b.HomeBalance, &b.GasBalance, &b.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return b, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) (*models.Balance, error) {
	return r.get(ctx, userID, false)
}

// GetForUpdate reads the balance row under a row lock (SELECT ... FOR
// UPDATE). Meaningful only inside a transaction; the lock is held until the
// transaction ends.
func (r *PostgresRepository) GetForUpdate(ctx context.Context, userID string) (*models.Balance, error) {
	return r.get(ctx, userID, true)
}

func (r *PostgresRepository) get(ctx context.Context, userID string, forUpdate bool) (*models.Balance, error) {
	query :=
		`SELECT user_id, home_balance, gas_balance, updated_at FROM balances
		 WHERE user_id = $1
		 `
	if forUpdate {
		query += ` FOR UPDATE`
	}

	b := &models.Balance{}
	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&b.UserID, &b.HomeBalance, &b.GasBalance, &b.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return b, nil
}
