package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	SessionOneOnOne = "one-on-one"
	SessionGroup    = "group"
	SessionEvent    = "event"
)

type Service struct {
	gorm.Model
	Title           string          `gorm:"column:title;size:255;not null" json:"title"`
	Description     string          `gorm:"column:description;type:text" json:"description"`
	Price           decimal.Decimal `gorm:"column:price;type:decimal(10,2);not null" json:"price"`
	Duration        int             `gorm:"column:duration;not null" json:"duration"`
	Active          bool            `gorm:"column:active;default:true" json:"active"`
	SessionType     string          `gorm:"column:session_type;size:50;not null;default:'one-on-one'" json:"session_type"`
	MaxParticipants int             `gorm:"column:max_participants;not null;default:1" json:"max_participants"`
}

func (Service) TableName() string {
	return "services"
}
