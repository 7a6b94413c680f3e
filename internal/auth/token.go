package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/account-service/internal/domain"
)

// Fixed token parameters shared by every issued session token.
const (
	TokenIssuer   = "ColonD"
	TokenSubject  = "Colon D Face :)"
	TokenLifetime = 3600 * time.Second
)

// Validation failure kinds. Every failure returned by Validate is a *ValidationError
// wrapping exactly one of these.
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidIssuer    = errors.New("invalid issuer")
	ErrInvalidSubject   = errors.New("invalid subject")
	ErrExpiredSignature = errors.New("expired signature")
	ErrInvalidAudience  = errors.New("invalid audience")
	ErrTokenDecode      = errors.New("token decode error")
	ErrRevoked          = errors.New("token revoked")
)

// ValidationError carries the failure kind alongside the underlying jwt error.
type ValidationError struct {
	Kind  error
	Cause error
}

func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%v: %v", e.Kind, e.Cause)
	}
	return e.Kind.Error()
}

func (e *ValidationError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// Denylist records revoked token ids.
type Denylist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Claims describes JWT payload.
type Claims struct {
	Type   domain.AccountType `json:"typ"`
	Email  string             `json:"email"`
	UserID int64              `json:"uid,omitempty"`
	Name   string             `json:"name,omitempty"`
	Age    int                `json:"age,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret   []byte
	denylist Denylist
	now      func() time.Time
}

// TokenOption customizes a TokenManager.
type TokenOption func(*TokenManager)

// WithDenylist enables revocation checks.
func WithDenylist(d Denylist) TokenOption {
	return func(tm *TokenManager) { tm.denylist = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) TokenOption {
	return func(tm *TokenManager) { tm.now = now }
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, opts ...TokenOption) *TokenManager {
	tm := &TokenManager{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(tm)
	}
	return tm
}

// Issue builds and signs a session token for the user. Only Email is required.
func (tm *TokenManager) Issue(user *domain.User) (string, *Claims, error) {
	if user == nil || user.Email == "" {
		return "", nil, errors.New("email required")
	}

	issuedAt := tm.now().Truncate(time.Second)
	claims := &Claims{
		Type:   domain.AccountTypeForEmail(user.Email),
		Email:  user.Email,
		UserID: user.ID,
		Name:   user.Name,
		Age:    user.Age,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   TokenSubject,
			Issuer:    TokenIssuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(TokenLifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", nil, err
	}
	return tokenString, claims, nil
}

// Validate verifies signature, issuer, subject and expiry, then consults the denylist.
// Denylist connectivity failures are returned unwrapped so callers can tell them apart.
func (tm *TokenManager) Validate(ctx context.Context, tokenStr string) (*Claims, error) {
	claims, err := tm.parse(tokenStr, tm.now)
	if err != nil {
		return nil, err
	}

	if tm.denylist != nil && claims.ID != "" {
		revoked, err := tm.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, &ValidationError{Kind: ErrRevoked}
		}
	}
	return claims, nil
}

// Remaining is how long the claims stay valid from now on, never negative.
func (tm *TokenManager) Remaining(claims *Claims) time.Duration {
	if claims == nil || claims.ExpiresAt == nil {
		return 0
	}
	if d := claims.ExpiresAt.Sub(tm.now()); d > 0 {
		return d
	}
	return 0
}

// Revoke denylists the token until its own expiry. Already expired tokens need no entry.
func (tm *TokenManager) Revoke(ctx context.Context, tokenStr string) error {
	if tm.denylist == nil {
		return errors.New("revocation not configured")
	}

	claims, err := tm.parse(tokenStr, tm.now)
	if errors.Is(err, ErrExpiredSignature) {
		return nil
	}
	if err != nil {
		return err
	}
	if claims.ID == "" {
		return &ValidationError{Kind: ErrInvalidToken, Cause: errors.New("token has no id")}
	}

	return tm.denylist.Revoke(ctx, claims.ID, tm.Remaining(claims))
}

func (tm *TokenManager) parse(tokenStr string, now func() time.Time) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithSubject(TokenSubject),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(now),
	)
	if err != nil {
		return nil, classify(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, &ValidationError{Kind: ErrInvalidToken, Cause: errors.New("invalid token claims")}
	}
	return claims, nil
}

func classify(err error) error {
	var kind error
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		kind = ErrExpiredSignature
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		kind = ErrInvalidIssuer
	case errors.Is(err, jwt.ErrTokenInvalidSubject):
		kind = ErrInvalidSubject
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		kind = ErrInvalidAudience
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		kind = ErrInvalidToken
	default:
		kind = ErrTokenDecode
	}
	return &ValidationError{Kind: kind, Cause: err}
}
