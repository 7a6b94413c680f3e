package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/account-service/pkg/util/errorutil"
)

func TestBearerToken(t *testing.T) {
	token, err := BearerToken("Bearer  abc.def.ghi  ")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	for _, header := range []string{"", "   ", "Bearer ", "Basic dXNlcjpwdw==", "abc.def.ghi"} {
		_, err := BearerToken(header)
		de := apperrors.ToDomainError(err)
		require.NotNil(t, de, header)
		assert.Equal(t, apperrors.CodeMissingToken, de.Code, header)
		assert.Equal(t, http.StatusUnauthorized, de.HTTPStatus, header)
	}
}

func TestRequireBearer(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	app.Get("/me", RequireBearer(), func(c *fiber.Ctx) error {
		token, ok := TokenFromContext(c)
		if !ok {
			return c.SendStatus(http.StatusTeapot)
		}
		return c.SendString(token)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer tok")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
