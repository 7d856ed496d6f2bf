package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/forum_auth/pkg/apperr"
	"github.com/Skotchmaster/forum_auth/pkg/db"
	"github.com/Skotchmaster/forum_auth/services/auth/internal/models"
)

func (r *GormRepo) UserExists(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	if err := r.DB.WithContext(ctx).Create(u).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("create user %q: %w", u.Username, apperr.ErrConflict)
		}
		return err
	}
	return nil
}

// FindByUsernameOrEmail resolves a login name that may be either field.
// Emails are stored lower-cased.
func (r *GormRepo) FindByUsernameOrEmail(ctx context.Context, login string) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Preload("Roles").
		Where("username = ? OR email = ?", login, strings.ToLower(login)).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Preload("Roles").Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Preload("Roles").First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) FindRoleByType(ctx context.Context, roleType string) (*models.Role, error) {
	var role models.Role
	if err := r.DB.WithContext(ctx).Where("type = ?", roleType).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("role %s: %w", roleType, apperr.ErrNotFound)
		}
		return nil, err
	}
	return &role, nil
}

// SeedRoles inserts the given role types, leaving existing ones untouched.
func (r *GormRepo) SeedRoles(ctx context.Context, types ...string) error {
	if len(types) == 0 {
		return nil
	}
	roles := make([]models.Role, 0, len(types))
	for _, t := range types {
		roles = append(roles, models.Role{Type: t})
	}
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "type"}}, DoNothing: true}).
		Create(&roles).Error
}
