package domain

import (
	"context"
	"time"
)

// Service is the lookup the completion engine depends on. Implementations
// cache per (country, day); the engine fetches once per run.
type Service interface {
	RatesFor(ctx context.Context, countryCode string, date time.Time) ([]float64, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
}

type Response struct {
	ID          string     `json:"id"`
	CountryCode string     `json:"country_code"`
	Kind        Kind       `json:"kind"`
	Rate        float64    `json:"rate"`
	ValidFrom   time.Time  `json:"valid_from"`
	ValidTo     *time.Time `json:"valid_to,omitempty"`
}
