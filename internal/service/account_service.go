package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/repository"
	apperrors "github.com/spec-kit/account-service/pkg/util/errorutil"
)

// AccountService coordinates registration, session and account mutation flows.
type AccountService struct {
	users          repository.UserRepository
	sessions       repository.SessionRepository
	tokens         *auth.TokenManager
	passwords      *auth.PasswordHasher
	dispatcher     events.Dispatcher
	logger         *zap.Logger
	revokeOnLogout bool
}

// AccountDependencies encapsulates collaborators for the account service.
type AccountDependencies struct {
	UserRepo     repository.UserRepository
	SessionRepo  repository.SessionRepository
	TokenManager *auth.TokenManager
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// RegisterInput describes a new account.
type RegisterInput struct {
	Name     string
	Email    string
	Age      int
	Password string
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	User   *domain.User
	Token  string
	Reused bool
}

// UserInfo combines the stored record with the claims of the presented token.
type UserInfo struct {
	User   *domain.User
	Claims *auth.Claims
}

// NewAccountService builds the service.
func NewAccountService(cfg config.AuthConfig, deps AccountDependencies) *AccountService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		users:          deps.UserRepo,
		sessions:       deps.SessionRepo,
		tokens:         deps.TokenManager,
		passwords:      auth.NewPasswordHasher(cfg.BcryptCost),
		dispatcher:     deps.Dispatcher,
		logger:         logger,
		revokeOnLogout: cfg.RevokeOnLogout,
	}
}

// Register creates a new account after checking the email is free.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	existing, err := s.users.QueryByEmail(ctx, in.Email)
	if err != nil {
		return nil, storeError(err)
	}
	if len(existing) > 0 {
		return nil, apperrors.NewDuplicateEmail()
	}

	hash, err := s.passwords.Hash(in.Password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return nil, apperrors.NewValidationError("pwd too long", map[string]any{"field": "pwd", "max_bytes": auth.MaxPasswordBytes})
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		Age:          in.Age,
		PasswordHash: hash,
	}
	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperrors.NewDuplicateEmail()
		}
		return nil, storeError(err)
	}

	s.publish(ctx, events.NewEvent(events.EventUserRegistered, user.ID, user.Email, nil))
	return user, nil
}

// Login checks credentials and returns the live cached token when one exists,
// otherwise it mints a new token and caches it for the token's lifetime.
func (s *AccountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.lookupUser(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.checkPassword(user, password); err != nil {
		return nil, err
	}

	token, reused, err := s.sessionToken(ctx, user)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewEvent(events.EventUserLoggedIn, user.ID, user.Email, events.LoginPayload{SessionReused: reused}))
	return &LoginResult{User: user, Token: token, Reused: reused}, nil
}

// sessionToken uses SetIfAbsent so concurrent logins on an empty cache converge on one token.
// A cached token is only reused while it still validates for this account.
func (s *AccountService) sessionToken(ctx context.Context, user *domain.User) (string, bool, error) {
	cached, err := s.sessions.Get(ctx, user.Email)
	switch {
	case err == nil:
		live, err := s.reusable(ctx, user, cached)
		if err != nil {
			return "", false, err
		}
		if live {
			return cached, true, nil
		}
	case !errors.Is(err, repository.ErrCacheMiss):
		return "", false, cacheError(err)
	}

	token, claims, err := s.tokens.Issue(user)
	if err != nil {
		return "", false, apperrors.NewInternalError(err)
	}
	ttl := s.tokens.Remaining(claims)

	stored, err := s.sessions.SetIfAbsent(ctx, user.Email, token, ttl)
	if err != nil {
		return "", false, cacheError(err)
	}
	if stored {
		return token, false, nil
	}

	winner, err := s.sessions.Get(ctx, user.Email)
	if err == nil {
		return winner, true, nil
	}
	if !errors.Is(err, repository.ErrCacheMiss) {
		return "", false, cacheError(err)
	}

	// The competing entry expired between the two calls.
	if err := s.sessions.SetWithExpiry(ctx, user.Email, token, ttl); err != nil {
		return "", false, cacheError(err)
	}
	return token, false, nil
}

// reusable drops a cached token that is revoked, expired or minted for an earlier
// account with the same email.
func (s *AccountService) reusable(ctx context.Context, user *domain.User, cached string) (bool, error) {
	claims, err := s.tokens.Validate(ctx, cached)
	var verr *auth.ValidationError
	switch {
	case err == nil && (claims.UserID == 0 || claims.UserID == user.ID):
		return true, nil
	case err != nil && !errors.As(err, &verr):
		return false, cacheError(err)
	}

	s.logger.Debug("discarding stale cached session", zap.String("email", user.Email), zap.Error(err))
	if err := s.sessions.Delete(ctx, user.Email); err != nil {
		return false, cacheError(err)
	}
	return false, nil
}

// UserInfo validates the token and re-reads the account it names.
func (s *AccountService) UserInfo(ctx context.Context, token string) (*UserInfo, error) {
	claims, err := s.validate(ctx, token)
	if err != nil {
		return nil, err
	}
	user, err := s.lookupUser(ctx, claims.Email)
	if err != nil {
		return nil, err
	}
	return &UserInfo{User: user, Claims: claims}, nil
}

// Logout closes the cached session for the token's email.
func (s *AccountService) Logout(ctx context.Context, token string) error {
	claims, err := s.validate(ctx, token)
	if err != nil {
		return err
	}

	exists, err := s.sessions.Exists(ctx, claims.Email)
	if err != nil {
		return cacheError(err)
	}
	if !exists {
		return apperrors.NewSessionNotFound()
	}
	if err := s.sessions.Delete(ctx, claims.Email); err != nil {
		return cacheError(err)
	}

	if s.revokeOnLogout {
		if err := s.tokens.Revoke(ctx, token); err != nil {
			s.logger.Warn("token revocation failed after logout", zap.String("email", claims.Email), zap.Error(err))
		}
	}

	s.publish(ctx, events.NewEvent(events.EventUserLoggedOut, claims.UserID, claims.Email, nil))
	return nil
}

// UpdateInfo replaces name and age of the token's account.
func (s *AccountService) UpdateInfo(ctx context.Context, token, name string, age int) (*domain.User, error) {
	claims, err := s.validate(ctx, token)
	if err != nil {
		return nil, err
	}
	user, err := s.lookupUser(ctx, claims.Email)
	if err != nil {
		return nil, err
	}

	user.Name = name
	user.Age = age
	affected, err := s.users.Update(ctx, user)
	if err != nil {
		return nil, storeError(err)
	}
	if affected != 1 {
		return nil, apperrors.NewUpdateFailed(nil)
	}

	s.publish(ctx, events.NewEvent(events.EventUserUpdated, user.ID, user.Email, events.UpdatePayload{Name: name, Age: age}))
	return user, nil
}

// DeleteAccount removes the account after re-checking the password. The delete
// runs transactionally; session cleanup afterwards is best-effort.
func (s *AccountService) DeleteAccount(ctx context.Context, token, password string) error {
	claims, err := s.validate(ctx, token)
	if err != nil {
		return err
	}
	user, err := s.lookupUser(ctx, claims.Email)
	if err != nil {
		return err
	}
	if err := s.checkPassword(user, password); err != nil {
		return err
	}

	affected, err := s.users.DeleteWithRollback(ctx, user.ID)
	if err != nil {
		return apperrors.NewDeletionFailed(err)
	}
	if affected != 1 {
		return apperrors.NewDeletionFailed(nil)
	}

	if err := s.sessions.Delete(ctx, user.Email); err != nil {
		s.logger.Warn("session cleanup failed after delete", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	if err := s.tokens.Revoke(ctx, token); err != nil {
		s.logger.Warn("token revocation failed after delete", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	s.publish(ctx, events.NewEvent(events.EventUserDeleted, user.ID, user.Email, nil))
	return nil
}

func (s *AccountService) validate(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.tokens.Validate(ctx, token)
	if err == nil {
		return claims, nil
	}
	var verr *auth.ValidationError
	if errors.As(err, &verr) {
		s.logger.Debug("token rejected", zap.Error(verr))
		return nil, apperrors.NewInvalidToken(verr.Kind)
	}
	return nil, cacheError(err)
}

func (s *AccountService) lookupUser(ctx context.Context, email string) (*domain.User, error) {
	users, err := s.users.QueryByEmail(ctx, email)
	if err != nil {
		return nil, storeError(err)
	}
	switch len(users) {
	case 0:
		return nil, apperrors.NewEmailNotFound()
	case 1:
		return &users[0], nil
	default:
		s.logger.Error("multiple users share an email", zap.String("email", email), zap.Int("count", len(users)))
		return nil, apperrors.NewAmbiguousEmail()
	}
}

func (s *AccountService) checkPassword(user *domain.User, password string) error {
	err := s.passwords.Compare(user.PasswordHash, password)
	if err == nil {
		return nil
	}
	if !errors.Is(err, auth.ErrPasswordMismatch) {
		s.logger.Warn("stored password hash unreadable", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	return apperrors.NewInvalidCredentials()
}

func (s *AccountService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func storeError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeout(err)
	}
	return apperrors.NewStoreUnavailable(err)
}

func cacheError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeout(err)
	}
	return apperrors.NewCacheUnavailable(err)
}
