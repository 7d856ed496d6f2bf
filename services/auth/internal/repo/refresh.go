package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/forum_auth/pkg/apperr"
	"github.com/Skotchmaster/forum_auth/services/auth/internal/models"
)

func newOpaqueToken() string { return uuid.NewString() }

// GetOrCreateRefreshToken returns the user's live refresh token, creating it
// when absent and rotating it in place when expired. The unique index on
// user_id plus the conditional update keep one row per user under concurrent
// callers.
func (r *GormRepo) GetOrCreateRefreshToken(ctx context.Context, userID uuid.UUID, ttl time.Duration) (*models.RefreshToken, error) {
	if ttl <= 0 {
		return nil, errors.New("refresh token ttl must be positive")
	}
	now := r.now()
	var out models.RefreshToken

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		candidate := models.RefreshToken{
			Token:     newOpaqueToken(),
			UserID:    userID,
			ExpiresAt: now.Add(ttl),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(&candidate).Error; err != nil {
			return fmt.Errorf("insert refresh token: %w", err)
		}

		var cur models.RefreshToken
		if err := tx.Where("user_id = ?", userID).First(&cur).Error; err != nil {
			return fmt.Errorf("load refresh token: %w", err)
		}
		if !cur.Expired(now) {
			out = cur
			return nil
		}

		res := tx.Model(&models.RefreshToken{}).
			Where("user_id = ? AND token = ?", userID, cur.Token).
			Updates(map[string]any{
				"token":      newOpaqueToken(),
				"expires_at": now.Add(ttl),
			})
		if res.Error != nil {
			return fmt.Errorf("rotate refresh token: %w", res.Error)
		}
		// RowsAffected == 0 means a concurrent caller rotated it first.
		if err := tx.Where("user_id = ?", userID).First(&out).Error; err != nil {
			return fmt.Errorf("reload refresh token: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *GormRepo) FindRefreshByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	err := r.DB.WithContext(ctx).Preload("User.Roles").Where("token = ?", token).First(&rt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("refresh token: %w", apperr.ErrNotFound)
		}
		return nil, err
	}
	return &rt, nil
}

func (r *GormRepo) DeleteRefreshByToken(ctx context.Context, token string) error {
	return r.DB.WithContext(ctx).Where("token = ?", token).Delete(&models.RefreshToken{}).Error
}

func (r *GormRepo) CountRefreshTokens(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.RefreshToken{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}
