package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/avdeevsv/walletkeeper/internal/common"
	"github.com/avdeevsv/walletkeeper/internal/dbx"
	"github.com/avdeevsv/walletkeeper/internal/logging"
	"github.com/avdeevsv/walletkeeper/internal/server/models"
	balancesrepo "github.com/avdeevsv/walletkeeper/internal/server/repositories/balances"
	identitiesrepo "github.com/avdeevsv/walletkeeper/internal/server/repositories/identities"
	ledgerrepo "github.com/avdeevsv/walletkeeper/internal/server/repositories/ledgerlog"
)

// ---- test logger ----

type nopLogger struct{}

func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (nopLogger) With(...any) logging.Logger            { return nopLogger{} }

// ---- stateful fakes ----

// memStore is the shared in-memory backing store of the fake repositories.
// It keeps the same relations the Postgres schema has, so service tests can
// assert reconciliation between balances and the entry log.
type memStore struct {
	mu      sync.Mutex
	users   map[string]*models.User       // by id
	creds   map[string]*models.Credential // by email
	bals    map[string]*models.Balance    // by user id
	entries []*models.LedgerEntry
	nextID  int64
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[string]*models.User),
		creds: make(map[string]*models.Credential),
		bals:  make(map[string]*models.Balance),
	}
}

func (st *memStore) seedUser(uid string, home, gas float64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.users[uid] = &models.User{ID: uid, Email: uid + "@example.com", Name: "User", CreatedAt: time.Now()}
	st.bals[uid] = &models.Balance{UserID: uid, HomeBalance: home, GasBalance: gas, UpdatedAt: time.Now()}
}

type fakeIdentitiesRepo struct{ st *memStore }

func (f *fakeIdentitiesRepo) Create(ctx context.Context, user *models.User, cred *models.Credential) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	for _, u := range f.st.users {
		if u.Email == user.Email {
			return common.ErrDuplicateEmail
		}
	}
	if _, ok := f.st.creds[cred.Email]; ok {
		return common.ErrDuplicateEmail
	}
	user.CreatedAt = time.Now()
	cred.CreatedAt = time.Now()
	f.st.users[user.ID] = user
	f.st.creds[cred.Email] = cred
	return nil
}

func (f *fakeIdentitiesRepo) GetByID(ctx context.Context, userID string) (*models.User, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	u, ok := f.st.users[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeIdentitiesRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	for _, u := range f.st.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeIdentitiesRepo) GetCredentialByEmail(ctx context.Context, email string) (*models.Credential, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	c, ok := f.st.creds[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	copied := *c
	return &copied, nil
}

type fakeBalancesRepo struct{ st *memStore }

func (f *fakeBalancesRepo) CreateDefault(ctx context.Context, userID string, home, gas float64) (*models.Balance, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	if _, ok := f.st.bals[userID]; ok {
		return nil, common.ErrAlreadyAllocated
	}
	b := &models.Balance{UserID: userID, HomeBalance: home, GasBalance: gas, UpdatedAt: time.Now()}
	f.st.bals[userID] = b
	copied := *b
	return &copied, nil
}

func (f *fakeBalancesRepo) ApplyDelta(ctx context.Context, userID string, field models.BalanceField, delta float64) (*models.Balance, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	b, ok := f.st.bals[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	switch field {
	case models.FieldHome:
		b.HomeBalance += delta
	case models.FieldGas:
		b.GasBalance += delta
	}
	b.UpdatedAt = time.Now()
	copied := *b
	return &copied, nil
}

func (f *fakeBalancesRepo) Get(ctx context.Context, userID string) (*models.Balance, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	b, ok := f.st.bals[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	copied := *b
	return &copied, nil
}

func (f *fakeBalancesRepo) GetForUpdate(ctx context.Context, userID string) (*models.Balance, error) {
	return f.Get(ctx, userID)
}

type fakeLedgerRepo struct{ st *memStore }

func (f *fakeLedgerRepo) Append(ctx context.Context, userID string, amount float64, category string) (*models.LedgerEntry, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	f.st.nextID++
	e := &models.LedgerEntry{ID: f.st.nextID, UserID: userID, Amount: amount, Category: category, CreatedAt: time.Now()}
	f.st.entries = append(f.st.entries, e)
	copied := *e
	return &copied, nil
}

func (f *fakeLedgerRepo) Recent(ctx context.Context, userID string, limit int) ([]*models.LedgerEntry, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	var result []*models.LedgerEntry
	for i := len(f.st.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if f.st.entries[i].UserID == userID {
			copied := *f.st.entries[i]
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (f *fakeLedgerRepo) SumByCategory(ctx context.Context, userID string) (map[string]float64, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	result := make(map[string]float64)
	for _, e := range f.st.entries {
		if e.UserID == userID {
			result[e.Category] += e.Amount
		}
	}
	return result, nil
}

type fakeRepoManager struct{ st *memStore }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Identities(db dbx.DBTX) identitiesrepo.Repository {
	return &fakeIdentitiesRepo{m.st}
}
func (m *fakeRepoManager) Balances(db dbx.DBTX) balancesrepo.Repository {
	return &fakeBalancesRepo{m.st}
}
func (m *fakeRepoManager) Ledger(db dbx.DBTX) ledgerrepo.Repository {
	return &fakeLedgerRepo{m.st}
}

// newTxDB returns a sqlmock-backed *sql.DB tolerating any interleaving of
// a bounded number of transactions.
func newTxDB(t *testing.T) *sql.DB {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 64; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
		mock.ExpectRollback()
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}
