// Package identities provides the PostgreSQL-backed identity store:
// user records plus their one-way credential records.
package identities

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

// PostgresRepository implements identity storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Create inserts the user and its credential. A duplicate email in either
// relation surfaces synchronously as common.ErrDuplicateEmail. Callers are
// expected to run both inserts inside one transaction.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User, cred *models.Credential) error {

	query :=
		`INSERT INTO users (id, email, name)
		 VALUES ($1, $2, $3)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query, user.ID, user.Email, user.Name).Scan(&user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return common.ErrDuplicateEmail
		}
		return fmt.Errorf("db error: %w", err)
	}

	query =
		`INSERT INTO credentials (user_id, email, password_digest)
		 VALUES ($1, $2, $3)
		 RETURNING created_at
		 `

	err = r.db.QueryRowContext(ctx, query, cred.UserID, cred.Email, cred.PasswordDigest).Scan(&cred.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return common.ErrDuplicateEmail
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	query :=
		`SELECT id, email, name, created_at FROM users
		 WHERE id = $1
		 `

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&user.ID, &user.Email, &user.Name, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT id, email, name, created_at FROM users
		 WHERE email = $1
		 `

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, email).Scan(&user.ID, &user.Email, &user.Name, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetCredentialByEmail(ctx context.Context, email string) (*models.Credential, error) {
	query :=
		`SELECT user_id, email, password_digest, created_at FROM credentials
		 WHERE email = $1
		 `

	cred := &models.Credential{}
	err := r.db.QueryRowContext(ctx, query, email).Scan(&cred.UserID, &cred.Email, &cred.PasswordDigest, &cred.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return cred, nil
}
