// Package httpapi exposes the wallet ledger operations over HTTP. The
// routing and response shapes follow the contract of the web layer; the
// admin gate is enforced in middleware before any privileged handler runs.
package httpapi

import (
	"context"
	"errors"
	"net"

	"github.com/gofiber/fiber/v2"

	"github.com/avdeevsv/walletkeeper/internal/logging"
	"github.com/avdeevsv/walletkeeper/internal/server/auth"
	"github.com/avdeevsv/walletkeeper/internal/server/models"
)

type userSvc interface {
	Register(ctx context.Context, email, name, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, string, error)
}

type ledgerSvc interface {
	Allocate(ctx context.Context, userID string) (*models.Balance, error)
	AdminCredit(ctx context.Context, userID string, amount float64, target models.BalanceField, note string) (*models.Profile, error)
	Withdraw(ctx context.Context, userID string, principal, gas float64) (*models.Profile, error)
	Profile(ctx context.Context, userID string) (*models.Profile, error)
	Recent(ctx context.Context, userID string, limit int) ([]*models.LedgerEntry, error)
}

type Server struct {
	address string
	users   userSvc
	ledger  ledgerSvc
	gate    *auth.AdminGate
	logger  logging.Logger
	app     *fiber.App
}

func NewServer(address string, l logging.Logger, us userSvc, ls ledgerSvc, gate *auth.AdminGate) *Server {
	s := &Server{
		address: address,
		users:   us,
		ledger:  ls,
		gate:    gate,
		logger:  l.With("module", "http_server"),
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	api := app.Group("/api")
	api.Get("/ping", s.handlePing)

	user := api.Group("/user")
	user.Post("/signup", s.handleSignup)
	user.Post("/login", s.handleLogin)
	user.Get("/:uid", s.handleProfile)
	user.Post("/:uid/withdraw", s.handleWithdraw)
	user.Get("/:uid/transactions", s.handleTransactions)

	admin := api.Group("/admin", s.requireAdminKey)
	admin.Post("/credit", s.handleAdminCredit)

	s.app = app
	return s
}

func (s *Server) Run(ctx context.Context) error {

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		_ = s.app.Shutdown()
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := s.app.Listen(s.address); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}

	return nil
}
