// Package ledgerlog provides the PostgreSQL-backed append-only transaction
// log. Entries are ordered by a bigserial id, so newest-first listings sort
// on id rather than on timestamps.
package ledgerlog

import (
	"context"
	"fmt"

	"github.com/avdeevsv/walletkeeper/internal/dbx"
	"github.com/avdeevsv/walletkeeper/internal/server/models"
)

// PostgresRepository implements the transaction log over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Append inserts one ledger entry and returns it with the generated id.
func (r *PostgresRepository) Append(ctx context.Context, userID string, amount float64, category string) (*models.LedgerEntry, error) {
	query :=
		`INSERT INTO ledger_entries (user_id, amount, category)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at
		 `

	entry := &models.LedgerEntry{UserID: userID, Amount: amount, Category: category}
	err := r.db.QueryRowContext(ctx, query, userID, amount, category).Scan(&entry.ID, &entry.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return entry, nil
}

// Recent returns up to limit entries for userID, newest first.
func (r *PostgresRepository) Recent(ctx context.Context, userID string, limit int) ([]*models.LedgerEntry, error) {
	query :=
		`SELECT id, user_id, amount, category, created_at FROM ledger_entries
		 WHERE user_id = $1
		 ORDER BY id DESC
		 LIMIT $2
		 `

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.LedgerEntry
	for rows.Next() {
		var item models.LedgerEntry
		if err := rows.Scan(&item.ID, &item.UserID, &item.Amount, &item.Category, &item.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// SumByCategory returns the signed sum of all entries for userID grouped by
// category. Used to verify the reconciliation invariant between the log and
// the balance row.
func (r *PostgresRepository) SumByCategory(ctx context.Context, userID string) (map[string]float64, error) {
	query :=
		`SELECT category, COALESCE(SUM(amount), 0) FROM ledger_entries
		 WHERE user_id = $1
		 GROUP BY category
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make(map[string]float64)
	for rows.Next() {
		var category string
		var sum float64
		if err := rows.Scan(&category, &sum); err != nil {
			return nil, err
		}
		result[category] = sum
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
