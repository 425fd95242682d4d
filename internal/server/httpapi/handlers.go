package httpapi

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/avdeevsv/walletkeeper/internal/common"
	"github.com/avdeevsv/walletkeeper/internal/server/models"
)

// Stable machine-readable error codes of the handler contract.
const (
	codeSignupParams      = "email_and_password_required_min_6_chars"
	codeEmailRegistered   = "email_already_registered"
	codeLoginParams       = "email_and_password_required"
	codeInvalidCreds      = "invalid_credentials"
	codeNotFound          = "not_found"
	codeUnauthorized      = "unauthorized"
	codeInvalidParams     = "invalid_params"
	codeUserNotFound      = "user_not_found"
	codeInsufficientHome  = "insufficient_home_balance"
	codeInsufficientGas   = "insufficient_gas_balance"
	codeUIDRequired       = "uid_required"
	codeInternal          = "internal_error"
	minimumPasswordLength = 6
)

func errorJSON(c *fiber.Ctx, status int, code string) error {
	return c.Status(status).JSON(fiber.Map{"error": code})
}

func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "OK"})
}

type signupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (s *Server) handleSignup(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, codeSignupParams)
	}
	if req.Email == "" || len(req.Password) < minimumPasswordLength {
		return errorJSON(c, fiber.StatusBadRequest, codeSignupParams)
	}

	s.logger.Info(ctx, "Signup request", "email", req.Email)

	user, err := s.users.Register(ctx, req.Email, req.Name, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrDuplicateEmail) {
			return errorJSON(c, fiber.StatusConflict, codeEmailRegistered)
		}
		s.logger.Error(ctx, err.Error())
		return errorJSON(c, fiber.StatusInternalServerError, codeInternal)
	}

	if _, err := s.ledger.Allocate(ctx, user.ID); err != nil {
		s.logger.Error(ctx, err.Error())
		return errorJSON(c, fiber.StatusInternalServerError, codeInternal)
	}

	profile, err := s.ledger.Profile(ctx, user.ID)
	if err != nil {
		s.logger.Error(ctx, err.Error())
		return errorJSON(c, fiber.StatusInternalServerError, codeInternal)
	}

	s.logger.Info(ctx, "Registered", "uid", user.ID)
	return c.JSON(profile)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	models.Profile
	Token string `json:"token,omitempty"`
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, codeLoginParams)
	}
	if req.Email == "" || req.Password == "" {
		return errorJSON(c, fiber.StatusBadRequest, codeLoginParams)
	}

	uid, token, err := s.users.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			return errorJSON(c, fiber.StatusUnauthorized, codeInvalidCreds)
		}
		s.logger.Error(ctx, err.Error())
		return errorJSON(c, fiber.StatusInternalServerError, codeInternal)
	}

	profile, err := s.ledger.Profile(ctx, uid)
	if err != nil {
		s.logger.Error(ctx, err.Error())
		return errorJSON(c, fiber.StatusInternalServerError, codeInternal)
	}

	return c.JSON(loginResponse{Profile: *profile, Token: token})
}

func (s *Server) handleProfile(c *fiber.Ctx) error {
	ctx := c.UserContext()

	profile, err := s.ledger.Profile(ctx, c.Params("uid"))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return errorJSON(c, fiber.StatusNotFound, codeNotFound)
		}
		s.logger.Error(ctx, err.Error())
		return errorJSON(c, fiber.StatusInternalServerError, codeInternal)
	}

	return c.JSON(profile)
}

// requireAdminKey rejects the request before any privileged handler runs
// unless the shared secret matches. Fail-closed.
func (s *Server) requireAdminKey(c *fiber.Ctx) error {
	if !s.gate.Authorize(c.Get("X-Admin-Key")) {
		return errorJSON(c, fiber.StatusUnauthorized, codeUnauthorized)
	}
	return c.Next()
}

type adminCreditRequest struct {
	UID    string  `json:"uid"`
	Amount float64 `json:"amount"`
	Target string  `json:"target"`
	Note   string  `json:"note"`
}

func (s *Server) handleAdminCredit(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req adminCreditRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, codeInvalidParams)
	}
	if req.UID == "" {
		return errorJSON(c, fiber.StatusBadRequest, codeInvalidParams)
	}

	var target models.BalanceField
	switch req.Target {
	case "gas":
		target = models.FieldGas
	case "home", "":
		target = models.FieldHome
	default:
		return errorJSON(c, fiber.StatusBadRequest, codeInvalidParams)
	}

	profile, err := s.ledger.AdminCredit(ctx, req.UID, req.Amount, target, req.Note)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidAmount):
			return errorJSON(c, fiber.StatusBadRequest, codeInvalidParams)
		case errors.Is(err, common.ErrorNotFound):
			return errorJSON(c, fiber.StatusNotFound, codeUserNotFound)
		}
		s.logger.Error(ctx, err.Error())
		return errorJSON(c, fiber.StatusInternalServerError, codeInternal)
	}

	return c.JSON(fiber.Map{"ok": true, "profile": profile})
}

type withdrawRequest struct {
	PrincipalAmount float64 `json:"principalAmount"`
	GasAmount       float64 `json:"gasAmount"`
}

func (s *Server) handleWithdraw(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req withdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, codeInvalidParams)
	}

	profile, err := s.ledger.Withdraw(ctx, c.Params("uid"), req.PrincipalAmount, req.GasAmount)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidAmount):
			return errorJSON(c, fiber.StatusBadRequest, codeInvalidParams)
		case errors.Is(err, common.ErrorNotFound):
			return errorJSON(c, fiber.StatusNotFound, codeUserNotFound)
		case errors.Is(err, common.ErrInsufficientHomeBalance):
			return errorJSON(c, fiber.StatusBadRequest, codeInsufficientHome)
		case errors.Is(err, common.ErrInsufficientGasBalance):
			return errorJSON(c, fiber.StatusBadRequest, codeInsufficientGas)
		}
		s.logger.Error(ctx, err.Error())
		return errorJSON(c, fiber.StatusInternalServerError, codeInternal)
	}

	return c.JSON(fiber.Map{"ok": true, "profile": profile})
}

type entryResponse struct {
	ID        int64   `json:"id"`
	Amount    float64 `json:"amount"`
	Category  string  `json:"category"`
	CreatedAt string  `json:"createdAt"`
}

func (s *Server) handleTransactions(c *fiber.Ctx) error {
	ctx := c.UserContext()

	uid := c.Params("uid")
	if uid == "" {
		return errorJSON(c, fiber.StatusBadRequest, codeUIDRequired)
	}

	entries, err := s.ledger.Recent(ctx, uid, 0)
	if err != nil {
		s.logger.Error(ctx, err.Error())
		return errorJSON(c, fiber.StatusInternalServerError, codeInternal)
	}

	result := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		result = append(result, entryResponse{
			ID:        e.ID,
			Amount:    e.Amount,
			Category:  e.Category,
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(fiber.Map{"entries": result})
}
