package discount

import (
	"errors"
	"strings"
	"time"

	"github.com/serenity-wellness/serenity-server/cmd/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrCodeNotFound  = errors.New("Invalid discount code")
	ErrCodeInactive  = errors.New("Discount code is no longer active")
	ErrCodeNotYet    = errors.New("Discount code is not yet active")
	ErrCodeExpired   = errors.New("Discount code has expired")
	ErrCodeExhausted = errors.New("Discount code usage limit reached")
)

// Normalize uppercases a code so that lookups and writes agree regardless of
// how the client typed it.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Lookup fetches a code after normalization. Returns ErrCodeNotFound when no
// such code exists.
func Lookup(db *gorm.DB, code string) (*models.DiscountCode, error) {
	var dc models.DiscountCode
	if err := db.Where("code = ?", Normalize(code)).First(&dc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}
	return &dc, nil
}

// Validate checks a code against its activity window and usage cap. It never
// mutates the usage count; that happens only when a booking is committed.
func Validate(dc *models.DiscountCode, now time.Time) error {
	if !dc.IsActive {
		return ErrCodeInactive
	}
	if dc.ValidFrom != nil && now.Before(*dc.ValidFrom) {
		return ErrCodeNotYet
	}
	if dc.ValidUntil != nil && now.After(*dc.ValidUntil) {
		return ErrCodeExpired
	}
	if dc.UsageLimit != nil && dc.UsageCount >= *dc.UsageLimit {
		return ErrCodeExhausted
	}
	return nil
}

// Apply computes the discounted price. Fixed discounts clamp at zero, and
// every result rounds to two decimal places.
func Apply(basePrice decimal.Decimal, dc *models.DiscountCode) decimal.Decimal {
	var finalPrice decimal.Decimal

	switch dc.DiscountType {
	case models.DiscountPercentage:
		finalPrice = basePrice.Sub(basePrice.Mul(dc.DiscountValue).Div(decimal.NewFromInt(100)))
	case models.DiscountFixed:
		finalPrice = basePrice.Sub(dc.DiscountValue)
	default:
		finalPrice = basePrice
	}

	if finalPrice.IsNegative() {
		finalPrice = decimal.Zero
	}
	return finalPrice.Round(2)
}

// IsRejection reports whether err is one of the engine's rejection reasons,
// as opposed to a database failure.
func IsRejection(err error) bool {
	return errors.Is(err, ErrCodeNotFound) ||
		errors.Is(err, ErrCodeInactive) ||
		errors.Is(err, ErrCodeNotYet) ||
		errors.Is(err, ErrCodeExpired) ||
		errors.Is(err, ErrCodeExhausted)
}
