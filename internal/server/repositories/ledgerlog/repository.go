package ledgerlog

import (
	"context"

	"github.com/avdeevsv/walletkeeper/internal/server/models"
)

// Repository is the append-only transaction log. No entry is ever updated
// or removed through this interface.
type Repository interface {
	Append(ctx context.Context, userID string, amount float64, category string) (*models.LedgerEntry, error)
	Recent(ctx context.Context, userID string, limit int) ([]*models.LedgerEntry, error)
	SumByCategory(ctx context.Context, userID string) (map[string]float64, error)
}
