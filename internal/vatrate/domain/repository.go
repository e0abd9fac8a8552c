package domain

import (
	"context"
	"time"
)

type Repository interface {
	// FindForCountry returns the rates of a country in force on a date,
	// highest rate first.
	FindForCountry(ctx context.Context, countryCode string, date time.Time) ([]VatRate, error)
	Create(ctx context.Context, rate *VatRate) error
	List(ctx context.Context, filter ListRequest) ([]VatRate, error)
}

type ListRequest struct {
	CountryCode string
	Kind        Kind
	SortBy      string
	OrderBy     string
}
