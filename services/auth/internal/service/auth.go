package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/forum_auth/pkg/apperr"
	"github.com/Skotchmaster/forum_auth/pkg/events"
	"github.com/Skotchmaster/forum_auth/pkg/hash"
	"github.com/Skotchmaster/forum_auth/pkg/logging"
	"github.com/Skotchmaster/forum_auth/pkg/tokens"
	"github.com/Skotchmaster/forum_auth/services/auth/internal/models"
)

const publishTimeout = 2 * time.Second

type UserStore interface {
	UserExists(ctx context.Context, username, email string) (bool, error)
	CreateUser(ctx context.Context, u *models.User) error
	FindByUsernameOrEmail(ctx context.Context, login string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindRoleByType(ctx context.Context, roleType string) (*models.Role, error)
}

type TokenCodec interface {
	Issue(subject, userID string, roles []string) (string, int64, error)
	Verify(raw string) (*tokens.Claims, error)
	Remaining(claims *tokens.Claims) int64
}

type Blacklister interface {
	Blacklist(ctx context.Context, token string, ttl time.Duration) error
}

type AuthService struct {
	Users         UserStore
	RefreshTokens *RefreshTokenService
	Codec         TokenCodec
	Registry      Blacklister
	Hasher        hash.Hasher
	Events        events.Publisher
	Now           func() time.Time
}

type TokenPair struct {
	AccessToken      string
	AccessExpiresIn  int64
	RefreshToken     string
	RefreshExpiresIn int64
}

func (s *AuthService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *AuthService) Register(ctx context.Context, username, email, password string) (string, error) {
	username = strings.TrimSpace(username)
	l := logging.FromContext(ctx).With("svc", "auth.register", "username", username)

	if username == "" || strings.TrimSpace(email) == "" || password == "" {
		return "", fmt.Errorf("username, email and password are required: %w", apperr.ErrValidation)
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return "", err
	}

	exists, err := s.Users.UserExists(ctx, username, email)
	if err != nil {
		return "", fmt.Errorf("check user: %w", err)
	}
	if exists {
		l.Warn("register_error", "status", 409, "reason", "user already exists")
		return "", apperr.ErrConflict
	}

	role, err := s.Users.FindRoleByType(ctx, models.RoleUser)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			l.Error("register_error", "status", 500, "reason", "default role missing", "alert", true)
			return "", fmt.Errorf("default role %s is missing: %w", models.RoleUser, apperr.ErrConfiguration)
		}
		return "", fmt.Errorf("load default role: %w", err)
	}

	pwHash, err := s.Hasher.Hash(password)
	if err != nil {
		if errors.Is(err, hash.ErrPasswordTooLong) {
			return "", fmt.Errorf("%v: %w", err, apperr.ErrValidation)
		}
		return "", fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: pwHash,
		Roles:        []models.Role{*role},
	}
	if err := s.Users.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			l.Warn("register_error", "status", 409, "reason", "user already exists")
			return "", apperr.ErrConflict
		}
		return "", fmt.Errorf("create user: %w", err)
	}

	l.Info("register_successful", "user_id", user.ID.String())
	s.publish(ctx, events.UserRegistered, user.ID.String(), user.Username)
	return user.ID.String(), nil
}

// Login accepts either the username or the email as login.
func (s *AuthService) Login(ctx context.Context, login, password string) (*TokenPair, error) {
	login = strings.TrimSpace(login)
	l := logging.FromContext(ctx).With("svc", "auth.login", "login", login)

	if login == "" || password == "" {
		return nil, fmt.Errorf("username and password are required: %w", apperr.ErrValidation)
	}

	user, err := s.Users.FindByUsernameOrEmail(ctx, login)
	if err != nil {
		if errors.Is(err, apperr.ErrUserNotFound) {
			l.Warn("login_failed", "status", 401, "reason", "user not found")
		}
		return nil, err
	}

	ok, err := s.Hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		l.Warn("login_failed", "status", 401, "reason", "invalid password")
		return nil, apperr.ErrInvalidCredentials
	}

	access, accessExp, err := s.Codec.Issue(user.Username, user.ID.String(), user.RoleNames())
	if err != nil {
		return nil, err
	}

	rt, err := s.RefreshTokens.getOrCreateFor(ctx, user)
	if err != nil {
		return nil, err
	}

	l.Info("login_successful", "user_id", user.ID.String())
	s.publish(ctx, events.UserLoggedIn, user.ID.String(), user.Username)
	return &TokenPair{
		AccessToken:      access,
		AccessExpiresIn:  accessExp,
		RefreshToken:     rt.Token,
		RefreshExpiresIn: s.RefreshTokens.expiresIn(rt),
	}, nil
}

// Refresh issues a new access token for a live refresh token. The refresh
// token itself is returned unchanged.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	rt, err := s.RefreshTokens.FindByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			l.Warn("refresh_failed", "status", 404, "reason", "refresh token not found")
		}
		return nil, err
	}
	if _, err := s.RefreshTokens.VerifyExpiration(rt); err != nil {
		l.Warn("refresh_failed", "status", 401, "reason", "refresh token expired", "user_id", rt.UserID.String())
		return nil, err
	}

	user, err := s.Users.FindUserByID(ctx, rt.UserID)
	if err != nil {
		return nil, fmt.Errorf("load refresh token owner: %w", err)
	}

	access, accessExp, err := s.Codec.Issue(user.Username, user.ID.String(), user.RoleNames())
	if err != nil {
		return nil, err
	}

	l.Info("refresh_successful", "user_id", user.ID.String())
	s.publish(ctx, events.TokenRefreshed, user.ID.String(), user.Username)
	return &TokenPair{
		AccessToken:      access,
		AccessExpiresIn:  accessExp,
		RefreshToken:     rt.Token,
		RefreshExpiresIn: s.RefreshTokens.expiresIn(rt),
	}, nil
}

// Logout revokes the access token for the rest of its lifetime and removes
// the user's refresh token.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout")

	claims, err := s.Codec.Verify(accessToken)
	if err != nil {
		l.Warn("logout_failed", "status", 401, "reason", err.Error())
		return fmt.Errorf("%w: %v", apperr.ErrUnauthorized, err)
	}

	rt, err := s.RefreshTokens.GetOrCreate(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperr.ErrUserNotFound) {
			return fmt.Errorf("%w: token subject no longer exists", apperr.ErrUnauthorized)
		}
		return err
	}

	// The access token stays valid until the refresh token is gone.
	if err := s.RefreshTokens.DeleteByToken(ctx, rt.Token); err != nil {
		l.Error("logout_failed", "status", 500, "reason", "cannot delete refresh token", "error", err.Error())
		return err
	}

	ttl := time.Duration(s.Codec.Remaining(claims)) * time.Second
	if err := s.Registry.Blacklist(ctx, accessToken, ttl); err != nil {
		l.Error("logout_failed", "status", 500, "reason", "cannot blacklist access token", "error", err.Error())
		return fmt.Errorf("blacklist access token: %w", err)
	}

	l.Info("logout_successful", "user_id", claims.UserID)
	s.publish(ctx, events.UserLoggedOut, claims.UserID, claims.Subject)
	return nil
}

// normalizeEmail accepts a bare address only and returns it lower-cased, so
// one mailbox maps to one stored value.
func normalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return "", fmt.Errorf("invalid email %q: %w", raw, apperr.ErrValidation)
	}
	return strings.ToLower(addr.Address), nil
}

func (s *AuthService) publish(ctx context.Context, kind, userID, username string) {
	if s.Events == nil {
		return
	}
	ev := events.Event{
		Type:     kind,
		UserID:   userID,
		Username: username,
		At:       s.now().UTC(),
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.Events.Publish(pctx, ev); err != nil {
		logging.FromContext(ctx).Warn("publish_event_failed", "type", kind, "error", err.Error())
	}
}
