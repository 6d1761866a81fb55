package model

import "time"

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

type User struct {
	ID               string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email            string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash     string     `gorm:"column:password_hash;not null" json:"-"`
	Role             Role       `gorm:"type:varchar(20);not null;default:'USER'" json:"role"`
	TokenVersion     int        `gorm:"not null;default:0" json:"-"`
	FailedLoginCount int        `gorm:"not null;default:0" json:"-"`
	LockoutEnd       *time.Time `json:"-"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// ロック中かどうか
func (u User) IsLockedOut(now time.Time) bool {
	return u.LockoutEnd != nil && now.Before(*u.LockoutEnd)
}
