package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	SlotIndividual = "individual"
	SlotGroup      = "group"
)

// AvailableSlot is a bookable time window. A nil ServiceID means the slot
// accepts any service.
type AvailableSlot struct {
	gorm.Model
	Date            time.Time `gorm:"column:date;not null" json:"date"`
	StartTime       time.Time `gorm:"column:start_time;not null" json:"start_time"`
	EndTime         time.Time `gorm:"column:end_time;not null" json:"end_time"`
	IsBooked        bool      `gorm:"column:is_booked;default:false" json:"is_booked"`
	SessionType     string    `gorm:"column:session_type;size:50;not null;default:'individual'" json:"session_type"`
	ServiceID       *uint     `gorm:"column:service_id" json:"service_id,omitempty"`
	MaxParticipants int       `gorm:"column:max_participants;not null;default:1" json:"max_participants"`

	Service *Service `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
}

func (AvailableSlot) TableName() string {
	return "available_slots"
}
