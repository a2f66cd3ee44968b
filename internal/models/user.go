package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type User struct {
	ID             uuid.UUID      `gorm:"type:uuid;primarykey;default:gen_random_uuid()"       json:"id"`
	Realm          string         `gorm:"type:varchar(255);not null;uniqueIndex:idx_user_email" json:"realm"`
	Email          string         `gorm:"type:varchar(254);not null;uniqueIndex:idx_user_email" json:"email"`
	FirstName      string         `gorm:"type:varchar(255)"                                    json:"first_name"`
	LastName       string         `gorm:"type:varchar(255)"                                    json:"last_name"`
	Role           Role           `gorm:"type:varchar(32);not null;default:'user'"             json:"role"`
	EmailVerified  bool           `gorm:"not null;default:false"                               json:"email_verified"`
	HashedPassword string         `gorm:"type:varchar(255)"                                    json:"-"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index"                                                json:"-"`
}

// ToActivity returns the subset of user fields safe to store in audit entries.
func (u *User) ToActivity() map[string]string {
	return map[string]string{
		"id":    u.ID.String(),
		"email": u.Email,
		"realm": u.Realm,
	}
}
