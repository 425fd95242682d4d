package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/avdeevsv/walletkeeper/internal/common"
	"github.com/avdeevsv/walletkeeper/internal/dbx"
	"github.com/avdeevsv/walletkeeper/internal/logging"
	"github.com/avdeevsv/walletkeeper/internal/server/config"
	"github.com/avdeevsv/walletkeeper/internal/server/models"
	"github.com/avdeevsv/walletkeeper/internal/server/repositories/repomanager"
)

// LedgerService orchestrates the balance store and the transaction log so
// that every operation leaves them mutually consistent.
//
// Consistency model (stronger than the minimum the handlers require):
//   - every balance mutation and its log append run inside one storage
//     transaction, so a crash cannot leave a balance change unlogged;
//   - Withdraw serializes per user: an in-process per-uid lock plus a row
//     lock (FOR UPDATE) span the sufficiency check and both debits, so
//     concurrent withdrawals cannot jointly overdraw a balance.
type LedgerService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	defaultHome float64
	recentLimit int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLedgerService constructs a LedgerService using repositories and server config.
func NewLedgerService(db *sql.DB, m repomanager.RepositoryManager, l logging.Logger, cfg *config.Config) *LedgerService {
	return &LedgerService{
		db:          db,
		repomanager: m,
		logger:      l.With("module", "ledger_service"),
		defaultHome: cfg.SignupHomeDefault,
		recentLimit: cfg.RecentEntriesLimit,
		locks:       make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing ledger writes for one uid.
func (s *LedgerService) lockFor(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

func finite(amount float64) bool {
	return !math.IsNaN(amount) && !math.IsInf(amount, 0)
}

// Allocate creates the default balance row for a freshly signed-up user and
// appends the matching "default" ledger entry. A second call for the same
// uid fails with common.ErrAlreadyAllocated and writes nothing.
func (s *LedgerService) Allocate(ctx context.Context, userID string) (*models.Balance, error) {
	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	var balance *models.Balance
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		b, err := s.repomanager.Balances(tx).CreateDefault(ctx, userID, s.defaultHome, 0)
		if err != nil {
			return err
		}
		if _, err := s.repomanager.Ledger(tx).Append(ctx, userID, s.defaultHome, models.CategoryDefault); err != nil {
			return err
		}
		balance = b
		return nil
	}); err != nil {
		if errors.Is(err, common.ErrAlreadyAllocated) {
			return nil, common.ErrAlreadyAllocated
		}
		return nil, fmt.Errorf("error allocating balance: %v", err)
	}

	s.logger.Info(ctx, "Allocated balance", "uid", userID, "home", s.defaultHome)
	return balance, nil
}

// AdminCredit applies a positive delta to one balance field and logs it.
// Gas-target credits are always logged under the gas_fee category; home
// credits use the caller note or the default "credit" label. The append and
// the delta happen in one transaction. Callers must have passed the admin
// gate before invoking this.
func (s *LedgerService) AdminCredit(ctx context.Context, userID string, amount float64, target models.BalanceField, note string) (*models.Profile, error) {
	if !finite(amount) || amount <= 0 {
		return nil, common.ErrInvalidAmount
	}
	if target != models.FieldHome && target != models.FieldGas {
		return nil, common.ErrInvalidAmount
	}

	user, err := s.repomanager.Identities(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}

	category := models.CategoryGasFee
	if target == models.FieldHome {
		category = note
		if category == "" {
			category = models.CategoryCredit
		}
	}

	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	var balance *models.Balance
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Ledger(tx).Append(ctx, userID, amount, category); err != nil {
			return err
		}
		b, err := s.repomanager.Balances(tx).ApplyDelta(ctx, userID, target, amount)
		if err != nil {
			return err
		}
		balance = b
		return nil
	}); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error applying credit: %v", err)
	}

	s.logger.Info(ctx, "Admin credit applied", "uid", userID, "target", string(target), "amount", amount)
	return profileOf(user, balance), nil
}

// Withdraw debits the home balance by principal and, when gas > 0, the gas
// balance by gas, appending a "withdraw" entry and (for gas) a "gas_fee"
// entry. Both sufficiency checks are evaluated against one row-locked
// snapshot inside the same transaction as the debits; on any failure no
// durable effect is applied.
func (s *LedgerService) Withdraw(ctx context.Context, userID string, principal, gas float64) (*models.Profile, error) {
	if !finite(principal) || principal <= 0 {
		return nil, common.ErrInvalidAmount
	}
	if !finite(gas) || gas < 0 {
		return nil, common.ErrInvalidAmount
	}

	user, err := s.repomanager.Identities(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}

	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	var balance *models.Balance
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		snapshot, err := s.repomanager.Balances(tx).GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if snapshot.HomeBalance < principal {
			return common.ErrInsufficientHomeBalance
		}
		if snapshot.GasBalance < gas {
			return common.ErrInsufficientGasBalance
		}

		b, err := s.repomanager.Balances(tx).ApplyDelta(ctx, userID, models.FieldHome, -principal)
		if err != nil {
			return err
		}
		if _, err := s.repomanager.Ledger(tx).Append(ctx, userID, -principal, models.CategoryWithdraw); err != nil {
			return err
		}
		if gas > 0 {
			b, err = s.repomanager.Balances(tx).ApplyDelta(ctx, userID, models.FieldGas, -gas)
			if err != nil {
				return err
			}
			if _, err := s.repomanager.Ledger(tx).Append(ctx, userID, -gas, models.CategoryGasFee); err != nil {
				return err
			}
		}
		balance = b
		return nil
	}); err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound):
			return nil, common.ErrorNotFound
		case errors.Is(err, common.ErrInsufficientHomeBalance):
			return nil, common.ErrInsufficientHomeBalance
		case errors.Is(err, common.ErrInsufficientGasBalance):
			return nil, common.ErrInsufficientGasBalance
		}
		return nil, fmt.Errorf("error withdrawing: %v", err)
	}

	s.logger.Info(ctx, "Withdrawal applied", "uid", userID, "principal", principal, "gas", gas)
	return profileOf(user, balance), nil
}

// Profile composes the identity record with the current balances. A missing
// identity fails with common.ErrorNotFound; a missing balance row reads as
// zero balances.
func (s *LedgerService) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	user, err := s.repomanager.Identities(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}

	balance, err := s.repomanager.Balances(s.db).Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorInternal
		}
		balance = &models.Balance{UserID: userID}
	}

	return profileOf(user, balance), nil
}

// Recent returns up to limit ledger entries for userID, newest first.
// A non-positive limit falls back to the configured cap.
func (s *LedgerService) Recent(ctx context.Context, userID string, limit int) ([]*models.LedgerEntry, error) {
	if limit <= 0 || limit > s.recentLimit {
		limit = s.recentLimit
	}
	entries, err := s.repomanager.Ledger(s.db).Recent(ctx, userID, limit)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return entries, nil
}

func profileOf(user *models.User, balance *models.Balance) *models.Profile {
	return &models.Profile{
		UserID:      user.ID,
		Email:       user.Email,
		Name:        user.Name,
		HomeBalance: balance.HomeBalance,
		GasBalance:  balance.GasBalance,
	}
}
