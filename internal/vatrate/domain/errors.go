package domain

import "errors"

var (
	ErrInvalidCountry  = errors.New("invalid_country_code")
	ErrInvalidKind     = errors.New("invalid_rate_kind")
	ErrInvalidRate     = errors.New("invalid_rate")
	ErrInvalidInterval = errors.New("invalid_validity_interval")
	ErrInvalidDate     = errors.New("invalid_date")
	ErrNotFound        = errors.New("not_found")
)
