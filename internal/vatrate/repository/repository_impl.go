package repository

import (
	"context"
	"time"

	vatratedomain "github.com/smallbiznis/factuur/internal/vatrate/domain"
	"github.com/smallbiznis/factuur/pkg/db/option"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) vatratedomain.Repository {
	return &repository{db: db}
}

func (r *repository) FindForCountry(ctx context.Context, countryCode string, date time.Time) ([]vatratedomain.VatRate, error) {
	var rates []vatratedomain.VatRate
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, country_code, kind, rate, valid_from, valid_to, created_at, updated_at
		 FROM vat_rates
		 WHERE country_code = ?
		   AND valid_from <= ?
		   AND (valid_to IS NULL OR valid_to > ?)
		 ORDER BY rate DESC`,
		countryCode,
		date,
		date,
	).Scan(&rates).Error
	if err != nil {
		return nil, err
	}
	return rates, nil
}

func (r *repository) Create(ctx context.Context, rate *vatratedomain.VatRate) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO vat_rates (
			id, country_code, kind, rate, valid_from, valid_to, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rate.ID,
		rate.CountryCode,
		rate.Kind,
		rate.Rate,
		rate.ValidFrom,
		rate.ValidTo,
		rate.CreatedAt,
		rate.UpdatedAt,
	).Error
}

func (r *repository) List(ctx context.Context, filter vatratedomain.ListRequest) ([]vatratedomain.VatRate, error) {
	var items []vatratedomain.VatRate
	stmt := r.db.WithContext(ctx).Model(&vatratedomain.VatRate{})

	if filter.CountryCode != "" {
		stmt = stmt.Where("country_code = ?", filter.CountryCode)
	}
	if filter.Kind != "" {
		stmt = stmt.Where("kind = ?", filter.Kind)
	}

	stmt = option.WithSortBy(option.WithQuerySortBy(filter.SortBy, filter.OrderBy, map[string]bool{
		"country_code": true,
		"valid_from":   true,
		"rate":         true,
	})).Apply(stmt)

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
