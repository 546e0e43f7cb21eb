package models

import (
	"time"

	"gorm.io/gorm"
)

type AdminUser struct {
	gorm.Model
	Username     string    `gorm:"column:username;size:100;uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"column:password_hash;size:255;not null" json:"-"`
	Email        string    `gorm:"column:email;size:255;not null" json:"email"`
	FirstName    string    `gorm:"column:first_name;size:100" json:"first_name"`
	LastName     string    `gorm:"column:last_name;size:100" json:"last_name"`
	Role         string    `gorm:"column:role;size:50;not null;default:'admin'" json:"role"`
	IsActive     bool      `gorm:"column:is_active;default:true" json:"is_active"`
	LastLogin    time.Time `gorm:"column:last_login" json:"last_login"`
}

func (AdminUser) TableName() string {
	return "admin_users"
}
