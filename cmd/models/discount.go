package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// DiscountCode codes are stored uppercase; lookups normalize the same way so
// redemption is case-insensitive.
type DiscountCode struct {
	gorm.Model
	Code          string          `gorm:"column:code;size:50;uniqueIndex;not null" json:"code"`
	Description   string          `gorm:"column:description;type:text" json:"description"`
	DiscountType  string          `gorm:"column:discount_type;size:20;not null" json:"discount_type"`
	DiscountValue decimal.Decimal `gorm:"column:discount_value;type:decimal(10,2);not null" json:"discount_value"`
	ValidFrom     *time.Time      `gorm:"column:valid_from" json:"valid_from,omitempty"`
	ValidUntil    *time.Time      `gorm:"column:valid_until" json:"valid_until,omitempty"`
	UsageLimit    *int            `gorm:"column:usage_limit" json:"usage_limit,omitempty"`
	UsageCount    int             `gorm:"column:usage_count;not null;default:0" json:"usage_count"`
	IsActive      bool            `gorm:"column:is_active;default:true" json:"is_active"`
}

func (DiscountCode) TableName() string {
	return "discount_codes"
}
