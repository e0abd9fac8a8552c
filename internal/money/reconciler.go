// Package money derives missing monetary fields from partial data. All
// functions are pure; callers track provenance via the returned field lists.
package money

import "errors"

// ErrInsufficientData is returned when fewer than 2 of the 4 reconcile
// inputs are known.
var ErrInsufficientData = errors.New("money: need at least 2 known values to reconcile")

// Field names a monetary field derived by Reconcile.
type Field string

const (
	FieldAmountEx  Field = "amountEx"
	FieldAmountInc Field = "amountInc"
	FieldVatAmount Field = "vatAmount"
)

// Amounts is a fully reconciled ex/inc/vat triple.
type Amounts struct {
	AmountEx  float64
	AmountInc float64
	VatAmount float64
}

// Reconcile derives the missing values among amount-ex, amount-inc and
// vat-amount. At least 2 of the 4 inputs (the vat rate counts as one) must be
// non-nil. The rate is a fraction in [0, 1) when used. The returned fields
// list names which values were derived rather than given.
func Reconcile(amountEx, amountInc, vatAmount, vatRate *float64) (Amounts, []Field, error) {
	known := 0
	for _, v := range []*float64{amountEx, amountInc, vatAmount, vatRate} {
		if v != nil {
			known++
		}
	}
	if known < 2 {
		return Amounts{}, nil, ErrInsufficientData
	}

	ex, inc, vat := amountEx, amountInc, vatAmount
	var derived []Field

	// First close the triangle from any two of ex/inc/vat.
	switch {
	case ex != nil && inc != nil && vat == nil:
		vat = f(*inc - *ex)
		derived = append(derived, FieldVatAmount)
	case ex != nil && vat != nil && inc == nil:
		inc = f(*ex + *vat)
		derived = append(derived, FieldAmountInc)
	case inc != nil && vat != nil && ex == nil:
		ex = f(*inc - *vat)
		derived = append(derived, FieldAmountEx)
	}

	// Only one amount known: the rate is required to derive the others.
	if vatRate != nil {
		rate := *vatRate
		switch {
		case ex != nil && inc == nil && vat == nil:
			vat = f(*ex * rate)
			inc = f(*ex + *vat)
			derived = append(derived, FieldVatAmount, FieldAmountInc)
		case inc != nil && ex == nil && vat == nil:
			ex = f(*inc / (1 + rate))
			vat = f(*inc - *ex)
			derived = append(derived, FieldAmountEx, FieldVatAmount)
		case vat != nil && ex == nil && inc == nil:
			if rate == 0 {
				return Amounts{}, nil, ErrInsufficientData
			}
			// Low precision: the vat amount is usually rounded to cents, so
			// the quotient inherits an error of half a cent divided by rate.
			ex = f(*vat / rate)
			inc = f(*ex + *vat)
			derived = append(derived, FieldAmountEx, FieldAmountInc)
		}
	}

	if ex == nil || inc == nil || vat == nil {
		return Amounts{}, nil, ErrInsufficientData
	}
	return Amounts{AmountEx: *ex, AmountInc: *inc, VatAmount: *vat}, derived, nil
}

func f(v float64) *float64 {
	return &v
}
