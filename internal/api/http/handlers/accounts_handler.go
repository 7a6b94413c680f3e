package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-service/internal/api/dto"
	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/service"
	apperrors "github.com/spec-kit/account-service/pkg/util/errorutil"
)

const maxAge = 200

// AccountsHandler exposes the account endpoints.
type AccountsHandler struct {
	accounts *service.AccountService
}

// NewAccountsHandler constructs handler.
func NewAccountsHandler(accounts *service.AccountService) *AccountsHandler {
	return &AccountsHandler{accounts: accounts}
}

// Register handles POST /register.
func (h *AccountsHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload(err)
	}
	req.Email = strings.TrimSpace(req.Email)
	if missing := missingFields(map[string]string{"name": req.Name, "email": req.Email, "pwd": req.Pwd}); len(missing) > 0 {
		return apperrors.NewValidationError("name, email, pwd required", map[string]any{"missing": missing})
	}
	if !strings.Contains(req.Email, "@") {
		return apperrors.NewValidationError("email is malformed", map[string]any{"field": "email"})
	}
	if err := validateAge(req.Age); err != nil {
		return err
	}
	if len(req.Pwd) > auth.MaxPasswordBytes {
		return apperrors.NewValidationError("pwd too long", map[string]any{"field": "pwd", "max_bytes": auth.MaxPasswordBytes})
	}

	user, err := h.accounts.Register(c.UserContext(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Age:      req.Age,
		Password: req.Pwd,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(dto.Success("User created successfully", dto.UserFields(user)))
}

// Login handles POST /login.
func (h *AccountsHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload(err)
	}
	req.Email = strings.TrimSpace(req.Email)
	if missing := missingFields(map[string]string{"email": req.Email, "pwd": req.Pwd}); len(missing) > 0 {
		return apperrors.NewValidationError("email and pwd required", map[string]any{"missing": missing})
	}

	result, err := h.accounts.Login(c.UserContext(), req.Email, req.Pwd)
	if err != nil {
		return err
	}

	return c.JSON(dto.Success("User logged in successfully", dto.LoginFields(result.User, result.Token)))
}

// UserInfo handles GET /user_info.
func (h *AccountsHandler) UserInfo(c *fiber.Ctx) error {
	token, err := bearer(c)
	if err != nil {
		return err
	}

	info, err := h.accounts.UserInfo(c.UserContext(), token)
	if err != nil {
		return err
	}

	return c.JSON(dto.Success("User info retrieved successfully", dto.UserInfoFields(info.User, info.Claims)))
}

// Logout handles POST /logout.
func (h *AccountsHandler) Logout(c *fiber.Ctx) error {
	token, err := bearer(c)
	if err != nil {
		return err
	}

	if err := h.accounts.Logout(c.UserContext(), token); err != nil {
		return err
	}

	return c.JSON(dto.Success("User logged out successfully", nil))
}

// UpdateInfo handles POST /update_info.
func (h *AccountsHandler) UpdateInfo(c *fiber.Ctx) error {
	token, err := bearer(c)
	if err != nil {
		return err
	}

	var req dto.UpdateInfoRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload(err)
	}
	if req.Name == "" {
		return apperrors.NewValidationError("name required", map[string]any{"missing": []string{"name"}})
	}
	if err := validateAge(req.Age); err != nil {
		return err
	}

	user, err := h.accounts.UpdateInfo(c.UserContext(), token, req.Name, req.Age)
	if err != nil {
		return err
	}

	return c.JSON(dto.Success("User info updated successfully", dto.UserFields(user)))
}

// DeleteUser handles POST /delete_user.
func (h *AccountsHandler) DeleteUser(c *fiber.Ctx) error {
	token, err := bearer(c)
	if err != nil {
		return err
	}

	var req dto.DeleteUserRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload(err)
	}
	if req.Pwd == "" {
		return apperrors.NewValidationError("pwd required", map[string]any{"missing": []string{"pwd"}})
	}

	if err := h.accounts.DeleteAccount(c.UserContext(), token, req.Pwd); err != nil {
		return err
	}

	return c.JSON(dto.Success("User deleted successfully", nil))
}

func bearer(c *fiber.Ctx) (string, error) {
	if token, ok := auth.TokenFromContext(c); ok {
		return token, nil
	}
	return auth.BearerToken(c.Get(fiber.HeaderAuthorization))
}

func invalidPayload(err error) error {
	return apperrors.NewValidationError("invalid payload", map[string]any{"reason": err.Error()})
}

func validateAge(age int) error {
	if age < 0 || age > maxAge {
		return apperrors.NewValidationError("age out of range", map[string]any{"field": "age", "max": maxAge})
	}
	return nil
}

func missingFields(fields map[string]string) []string {
	var missing []string
	for _, name := range []string{"name", "email", "pwd"} {
		if v, ok := fields[name]; ok && v == "" {
			missing = append(missing, name)
		}
	}
	return missing
}
