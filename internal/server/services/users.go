// Package services contains server-side business logic. This file implements
// UserService, which handles signup (identity + credential creation) and
// login (credential verification plus issuing a JWT access token).
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/avdeevsv/walletkeeper/internal/common"
	"github.com/avdeevsv/walletkeeper/internal/dbx"
	"github.com/avdeevsv/walletkeeper/internal/server/auth"
	"github.com/avdeevsv/walletkeeper/internal/server/config"
	"github.com/avdeevsv/walletkeeper/internal/server/models"
	"github.com/avdeevsv/walletkeeper/internal/server/repositories/repomanager"
)

// dummyDigest is a valid bcrypt digest compared against when the email is
// unknown, so login timing does not reveal whether an account exists.
const dummyDigest = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// UserService provides identity-related operations:
// - Register: create a user with its credential
// - Login: verify credentials and mint an access token
type UserService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:                          db,
		repomanager:                 m,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
	}
}

// Register creates a new user identity with a freshly generated uid and a
// bcrypt credential digest. The user row and the credential row are written
// in one transaction. A duplicate email in either relation surfaces as
// common.ErrDuplicateEmail with no durable effect.
func (s *UserService) Register(ctx context.Context, email, name, password string) (*models.User, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %v", err)
	}

	user := &models.User{ID: uuid.NewString(), Email: email, Name: name}
	cred := &models.Credential{UserID: user.ID, Email: email, PasswordDigest: string(digest)}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Identities(tx).Create(ctx, user, cred)
	}); err != nil {
		if errors.Is(err, common.ErrDuplicateEmail) {
			return nil, common.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("error creating user: %v", err)
	}

	return user, nil
}

// Login verifies the password against the stored digest and, on success,
// returns the uid and a fresh access token. An unknown email and a wrong
// password both surface as common.ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, email, password string) (string, string, error) {
	repo := s.repomanager.Identities(s.db)

	cred, err := repo.GetCredentialByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// burn a comparison so the miss is not observable through timing
			_ = bcrypt.CompareHashAndPassword([]byte(dummyDigest), []byte(password))
			return "", "", common.ErrInvalidCredentials
		}
		return "", "", common.ErrorInternal
	}

	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordDigest), []byte(password)) != nil {
		return "", "", common.ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(cred.UserID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return "", "", common.ErrorInternal
	}

	return cred.UserID, token, nil
}
