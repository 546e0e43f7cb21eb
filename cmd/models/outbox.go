package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	EmailPending = "pending"
	EmailSent    = "sent"
	EmailFailed  = "failed"
)

// OutboxEmail is queued in the same transaction as the booking or payment
// write it belongs to, and delivered later by the mail worker. A booking
// never fails because mail delivery failed.
type OutboxEmail struct {
	gorm.Model
	ToEmail   string     `gorm:"column:to_email;size:255;not null" json:"to_email"`
	Subject   string     `gorm:"column:subject;size:255;not null" json:"subject"`
	Body      string     `gorm:"column:body;type:text;not null" json:"body"`
	Status    string     `gorm:"column:status;size:20;not null;default:'pending'" json:"status"`
	Attempts  int        `gorm:"column:attempts;not null;default:0" json:"attempts"`
	LastError string     `gorm:"column:last_error;type:text" json:"last_error,omitempty"`
	SentAt    *time.Time `gorm:"column:sent_at" json:"sent_at,omitempty"`
}

func (OutboxEmail) TableName() string {
	return "outbox_emails"
}
