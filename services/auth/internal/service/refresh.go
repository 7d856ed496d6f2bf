package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/forum_auth/pkg/apperr"
	"github.com/Skotchmaster/forum_auth/services/auth/internal/models"
)

type RefreshStore interface {
	GetOrCreateRefreshToken(ctx context.Context, userID uuid.UUID, ttl time.Duration) (*models.RefreshToken, error)
	FindRefreshByToken(ctx context.Context, token string) (*models.RefreshToken, error)
	DeleteRefreshByToken(ctx context.Context, token string) error
}

type RefreshTokenService struct {
	Store RefreshStore
	Users UserStore
	TTL   time.Duration
	Now   func() time.Time
}

func (s *RefreshTokenService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// GetOrCreate returns the user's single live refresh token.
func (s *RefreshTokenService) GetOrCreate(ctx context.Context, username string) (*models.RefreshToken, error) {
	user, err := s.Users.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.getOrCreateFor(ctx, user)
}

func (s *RefreshTokenService) getOrCreateFor(ctx context.Context, user *models.User) (*models.RefreshToken, error) {
	rt, err := s.Store.GetOrCreateRefreshToken(ctx, user.ID, s.TTL)
	if err != nil {
		return nil, fmt.Errorf("refresh token for %s: %w", user.Username, err)
	}
	return rt, nil
}

func (s *RefreshTokenService) FindByToken(ctx context.Context, value string) (*models.RefreshToken, error) {
	if value == "" {
		return nil, fmt.Errorf("refresh token: %w", apperr.ErrNotFound)
	}
	return s.Store.FindRefreshByToken(ctx, value)
}

// VerifyExpiration fails with ErrRefreshTokenExpired once the token is past
// its expiry. The record is left in place.
func (s *RefreshTokenService) VerifyExpiration(rt *models.RefreshToken) (*models.RefreshToken, error) {
	if rt.Expired(s.now()) {
		return nil, apperr.ErrRefreshTokenExpired
	}
	return rt, nil
}

func (s *RefreshTokenService) DeleteByToken(ctx context.Context, value string) error {
	if err := s.Store.DeleteRefreshByToken(ctx, value); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

func (s *RefreshTokenService) expiresIn(rt *models.RefreshToken) int64 {
	left := rt.ExpiresAt.Sub(s.now())
	if left <= 0 {
		return 0
	}
	return int64(left / time.Second)
}
