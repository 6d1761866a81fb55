package model

import "time"

type Customer struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100);not null;index" json:"name"`
	Address     *string   `gorm:"type:varchar(200)" json:"address,omitempty"`
	PhoneNumber *string   `gorm:"type:varchar(50)" json:"phone_number,omitempty"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
