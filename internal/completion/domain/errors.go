package domain

import "errors"

// Contract violations: the raw invoice shape is malformed. These abort the
// run; everything else is a message, not an error.
var (
	ErrMissingCustomer = errors.New("missing_customer")
	ErrMissingCountry  = errors.New("missing_customer_country")
	ErrMissingLines    = errors.New("missing_lines")
	ErrMissingDate     = errors.New("missing_issue_date")
	ErrInvalidQuantity = errors.New("invalid_line_quantity")
)
