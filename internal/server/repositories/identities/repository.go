package identities

import (
	"context"

	"github.com/avdeevsv/walletkeeper/internal/server/models"
)

// Repository is the identity store: the users and credentials relations.
type Repository interface {
	Create(ctx context.Context, user *models.User, cred *models.Credential) error
	GetByID(ctx context.Context, userID string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetCredentialByEmail(ctx context.Context, email string) (*models.Credential, error)
}
