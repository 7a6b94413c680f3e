package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/account-service/pkg/util/errorutil"
)

const (
	tokenKey     = "auth_token"
	bearerPrefix = "Bearer "
)

// RequireBearer extracts the bearer token and stores it for handlers. It only
// checks that a token is present; signature and expiry are validated by the
// account service so that a missing header stays distinguishable from a bad token.
func RequireBearer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := BearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return err
		}
		c.Locals(tokenKey, token)
		return c.Next()
	}
}

// BearerToken strips the literal "Bearer " prefix and surrounding whitespace.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", apperrors.NewMissingToken("Authorization token missing or invalid")
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", apperrors.NewMissingToken("invalid authorization header")
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if token == "" {
		return "", apperrors.NewMissingToken("Authorization token missing or invalid")
	}
	return token, nil
}

// TokenFromContext retrieves the bearer token stored by RequireBearer.
func TokenFromContext(c *fiber.Ctx) (string, bool) {
	token, ok := c.Locals(tokenKey).(string)
	return token, ok && token != ""
}
