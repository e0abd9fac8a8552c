package money

// Range bounds a quotient of two rounded values: the true pre-rounding
// operands could lie anywhere within half the precision window on each side,
// so the true quotient lies in [Min, Max].
type Range struct {
	Min        float64
	Max        float64
	Calculated float64
}

// Contains reports whether v lies within the range (inclusive).
func (r Range) Contains(v float64) bool {
	return r.Min <= v && v <= r.Max
}

// DivisionRange computes numerator/denominator together with the sign-aware
// bounds implied by each operand's rounding precision (typically 0.01 for
// cent-rounded amounts). The denominator interval must not straddle zero:
// |denominator| must exceed half its precision.
func DivisionRange(numerator, denominator, numeratorPrecision, denominatorPrecision float64) Range {
	calculated := numerator / denominator

	numLow := numerator - numeratorPrecision/2
	numHigh := numerator + numeratorPrecision/2
	denLow := denominator - denominatorPrecision/2
	denHigh := denominator + denominatorPrecision/2

	min, max := calculated, calculated
	for _, n := range [2]float64{numLow, numHigh} {
		for _, d := range [2]float64{denLow, denHigh} {
			if d == 0 {
				continue
			}
			q := n / d
			if q < min {
				min = q
			}
			if q > max {
				max = q
			}
		}
	}

	return Range{Min: min, Max: max, Calculated: calculated}
}
