package strategy

import "errors"

// ErrEqualRates is returned when the two-rate split is asked to divide over a
// single rate; the system of equations degenerates.
var ErrEqualRates = errors.New("strategy: cannot split an amount over two equal vat rates")

// SplitAmountOverTwoVatRates divides amountEx into a part taxed at lowRate
// and a part taxed at highRate such that the parts sum to amountEx and their
// vat sums to vatAmount. Rates are percentages.
//
//	lowEx + highEx = amountEx
//	lowEx*lowRate/100 + highEx*highRate/100 = vatAmount
func SplitAmountOverTwoVatRates(amountEx, vatAmount, lowRate, highRate float64) (lowEx, highEx float64, err error) {
	if lowRate == highRate {
		return 0, 0, ErrEqualRates
	}
	highEx = (vatAmount - amountEx*lowRate/100) / ((highRate - lowRate) / 100)
	lowEx = amountEx - highEx
	return lowEx, highEx, nil
}
