package repomanager

import (
	"context"
	"database/sql"

	"github.com/avdeevsv/walletkeeper/internal/dbx"
	"github.com/avdeevsv/walletkeeper/internal/server/repositories/balances"
	"github.com/avdeevsv/walletkeeper/internal/server/repositories/identities"
	"github.com/avdeevsv/walletkeeper/internal/server/repositories/ledgerlog"
)

// RepositoryManager vends repositories bound to a DBTX, so services can use
// the same repository code against *sql.DB or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Identities(db dbx.DBTX) identities.Repository
	Balances(db dbx.DBTX) balances.Repository
	Ledger(db dbx.DBTX) ledgerlog.Repository
}
