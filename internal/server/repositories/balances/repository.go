package balances

import (
	"context"

	"github.com/avdeevsv/walletkeeper/internal/server/models"
)

// Repository is the balance store: exactly one two-field balance row per
// user, mutated only through signed-delta application.
type Repository interface {
	CreateDefault(ctx context.Context, userID string, home, gas float64) (*models.Balance, error)
	ApplyDelta(ctx context.Context, userID string, field models.BalanceField, delta float64) (*models.Balance, error)
	Get(ctx context.Context, userID string) (*models.Balance, error)
	GetForUpdate(ctx context.Context, userID string) (*models.Balance, error)
}
