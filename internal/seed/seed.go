// Package seed bootstraps the rate table so a fresh install resolves Dutch
// invoices without manual data entry.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	vatratedomain "github.com/smallbiznis/factuur/internal/vatrate/domain"
	"gorm.io/gorm"
)

// nlRateHistory is the statutory Dutch vat rate history back to 2001. Closed
// intervals keep historical invoices resolving under the law of their issue
// date.
func nlRateHistory() []vatratedomain.VatRate {
	date := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	ptr := func(t time.Time) *time.Time { return &t }

	return []vatratedomain.VatRate{
		{CountryCode: "NL", Kind: vatratedomain.KindStandard, Rate: 19, ValidFrom: date(2001, time.January, 1), ValidTo: ptr(date(2012, time.October, 1))},
		{CountryCode: "NL", Kind: vatratedomain.KindStandard, Rate: 21, ValidFrom: date(2012, time.October, 1)},
		{CountryCode: "NL", Kind: vatratedomain.KindReduced, Rate: 6, ValidFrom: date(2001, time.January, 1), ValidTo: ptr(date(2019, time.January, 1))},
		{CountryCode: "NL", Kind: vatratedomain.KindReduced, Rate: 9, ValidFrom: date(2019, time.January, 1)},
		{CountryCode: "NL", Kind: vatratedomain.KindZero, Rate: 0, ValidFrom: date(2001, time.January, 1)},
	}
}

// EnsureVatRates inserts the seed rate history if the table is empty.
// Idempotent: a populated table is left untouched so operator edits survive
// restarts.
func EnsureVatRates(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&vatratedomain.VatRate{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := time.Now().UTC()
		rates := nlRateHistory()
		for i := range rates {
			rates[i].ID = node.Generate()
			rates[i].CreatedAt = now
			rates[i].UpdatedAt = now
			if err := rates[i].Validate(); err != nil {
				return err
			}
		}
		return tx.Create(&rates).Error
	})
}
