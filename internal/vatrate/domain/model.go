package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Kind classifies a statutory vat rate tier.
type Kind string

const (
	KindStandard Kind = "standard"
	KindReduced  Kind = "reduced"
	KindZero     Kind = "zero"
)

// VatRate is one statutory rate of a country, valid over a date interval.
// Rates never change in place: a law change closes the old row's valid_to
// and inserts a new row, so historical invoices keep resolving correctly.
type VatRate struct {
	ID snowflake.ID `gorm:"primaryKey"`

	CountryCode string `gorm:"column:country_code;type:text;not null;index:idx_vat_rates_country"`
	Kind        Kind   `gorm:"type:text;not null"`
	// Rate is a percentage (21 means 21%).
	Rate float64 `gorm:"type:numeric(6,3);not null"`

	ValidFrom time.Time  `gorm:"column:valid_from;not null"`
	ValidTo   *time.Time `gorm:"column:valid_to"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (VatRate) TableName() string { return "vat_rates" }

func (r *VatRate) Validate() error {
	if len(r.CountryCode) != 2 {
		return ErrInvalidCountry
	}
	switch r.Kind {
	case KindStandard, KindReduced, KindZero:
	default:
		return ErrInvalidKind
	}
	if r.Rate < 0 {
		return ErrInvalidRate
	}
	if r.ValidTo != nil && r.ValidTo.Before(r.ValidFrom) {
		return ErrInvalidInterval
	}
	return nil
}

// ValidOn reports whether the rate is in force on the given date.
func (r *VatRate) ValidOn(date time.Time) bool {
	if date.Before(r.ValidFrom) {
		return false
	}
	return r.ValidTo == nil || date.Before(*r.ValidTo)
}
