package repo

import (
	"time"

	"gorm.io/gorm"
)

type GormRepo struct {
	DB *gorm.DB
	// Now overrides the clock used for refresh token expiry.
	Now func() time.Time
}

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db, Now: time.Now}
}

func (r *GormRepo) now() time.Time {
	if r.Now == nil {
		return time.Now().UTC()
	}
	return r.Now().UTC()
}
