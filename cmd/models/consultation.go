package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// statusTransitions lists the allowed forward moves. Nothing transitions out
// of cancelled or completed.
var statusTransitions = map[string][]string{
	StatusPending:   {StatusPaid, StatusConfirmed, StatusCancelled},
	StatusPaid:      {StatusCompleted, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to string) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

type Consultation struct {
	gorm.Model
	SlotID          uint            `gorm:"column:slot_id;not null" json:"slot_id"`
	ServiceID       uint            `gorm:"column:service_id;not null" json:"service_id"`
	Name            string          `gorm:"column:name;size:255;not null" json:"name"`
	Email           string          `gorm:"column:email;size:255;not null" json:"email"`
	Phone           string          `gorm:"column:phone;size:50;not null" json:"phone"`
	Message         string          `gorm:"column:message;type:text" json:"message,omitempty"`
	Status          string          `gorm:"column:status;size:50;not null;default:'pending'" json:"status"`
	Amount          decimal.Decimal `gorm:"column:amount;type:decimal(10,2);not null" json:"amount"`
	DiscountCodeID  *uint           `gorm:"column:discount_code_id" json:"discount_code_id,omitempty"`
	PaymentIntentID string          `gorm:"column:payment_intent_id;size:255" json:"payment_intent_id,omitempty"`

	Slot         *AvailableSlot `gorm:"foreignKey:SlotID" json:"slot,omitempty"`
	Service      *Service       `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
	DiscountCode *DiscountCode  `gorm:"foreignKey:DiscountCodeID" json:"discount_code,omitempty"`
}

func (Consultation) TableName() string {
	return "consultations"
}
