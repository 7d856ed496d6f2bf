package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser  = "USER"
	RoleMod   = "MOD"
	RoleAdmin = "ADMIN"
)

var AllRoles = []string{RoleUser, RoleMod, RoleAdmin}

type Role struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey"      json:"id"`
	Type string    `gorm:"size:32;uniqueIndex;not null" json:"type"`
}

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"          json:"id"`
	Username     string    `gorm:"size:64;uniqueIndex;not null"  json:"username"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null"                      json:"-"`
	Roles        []Role    `gorm:"many2many:user_roles;"         json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u *User) RoleNames() []string {
	out := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		out = append(out, r.Type)
	}
	return out
}

// RefreshToken is unique per user: the store keeps at most one row per UserID.
type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"      json:"id"`
	Token     string    `gorm:"size:64;uniqueIndex;not null" json:"token"`
	UserID    uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	User      User      `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	ExpiresAt time.Time `gorm:"not null"                  json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *Role) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (t *RefreshToken) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Role{}, &User{}, &RefreshToken{})
}
