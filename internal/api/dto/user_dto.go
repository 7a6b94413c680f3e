package dto

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/domain"
)

// RegisterRequest payload for new users.
type RegisterRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Age   int    `json:"age"`
	Pwd   string `json:"pwd"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email string `json:"email"`
	Pwd   string `json:"pwd"`
}

// UpdateInfoRequest payload for profile updates.
type UpdateInfoRequest struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

// DeleteUserRequest payload for account deletion.
type DeleteUserRequest struct {
	Pwd string `json:"pwd"`
}

// UserFields is the public projection of a user. The password hash is never exposed.
func UserFields(user *domain.User) fiber.Map {
	return fiber.Map{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
		"age":   user.Age,
	}
}

// LoginFields adds the session token to the user projection.
func LoginFields(user *domain.User, token string) fiber.Map {
	fields := UserFields(user)
	fields["token"] = token
	return fields
}

// UserInfoFields combines store fields with token claims.
func UserInfoFields(user *domain.User, claims *auth.Claims) fiber.Map {
	fields := UserFields(user)
	fields["exp"] = claims.ExpiresAt.Unix()
	fields["iat"] = claims.IssuedAt.Unix()
	fields["iss"] = claims.Issuer
	fields["typ"] = string(claims.Type)
	return fields
}
