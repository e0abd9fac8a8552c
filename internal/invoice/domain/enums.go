package domain

// VatRateSource records why a line's vat rate has its current value and how
// much it can be trusted. Sources marked "correct" are usable for vat type
// classification; all others must be resolved before the invoice can leave
// concept status.
type VatRateSource string

const (
	// VatRateSourceExact: the rate came verbatim from the order data.
	VatRateSourceExact VatRateSource = "exact"
	// VatRateSourceExactZero: the order explicitly stated a 0 rate.
	VatRateSourceExactZero VatRateSource = "exact-0"
	// VatRateSourceCalculated: derived by dividing two rounded amounts; the
	// line carries a precision range while this source is set.
	VatRateSourceCalculated VatRateSource = "calculated"
	// VatRateSourceCalculatedCorrected: a calculated rate matched exactly one
	// legally possible rate.
	VatRateSourceCalculatedCorrected VatRateSource = "calculated-corrected"
	// VatRateSourceLookedUp: a stored product-level historical rate that is
	// still among the invoice's candidate rates.
	VatRateSourceLookedUp VatRateSource = "looked-up"
	// VatRateSourceCompletorProvided: provisionally set by the completor,
	// still ambiguous.
	VatRateSourceCompletorProvided VatRateSource = "completor-provided"
	// VatRateSourceCompletorCompleted: filled in by the completor with a
	// defensible choice (e.g. max sibling rate on a free line).
	VatRateSourceCompletorCompleted VatRateSource = "completor-completed"
	// VatRateSourceStrategyPending: direct inference failed; the strategy
	// resolver must decide.
	VatRateSourceStrategyPending VatRateSource = "strategy-pending"
	// VatRateSourceStrategyCompleted: resolved by a numeric strategy.
	VatRateSourceStrategyCompleted VatRateSource = "strategy-completed"
	// VatRateSourceCopiedFromParent / CopiedFromChildren: propagated within a
	// line hierarchy.
	VatRateSourceCopiedFromParent   VatRateSource = "copied-from-parent"
	VatRateSourceCopiedFromChildren VatRateSource = "copied-from-children"
)

// Correct reports whether the source is trustworthy for classification.
func (s VatRateSource) Correct() bool {
	switch s {
	case VatRateSourceExact,
		VatRateSourceExactZero,
		VatRateSourceCalculatedCorrected,
		VatRateSourceLookedUp,
		VatRateSourceCompletorCompleted,
		VatRateSourceStrategyCompleted,
		VatRateSourceCopiedFromParent,
		VatRateSourceCopiedFromChildren:
		return true
	default:
		return false
	}
}

// LineType classifies what a line bills for.
type LineType string

const (
	LineTypeProduct    LineType = "product"
	LineTypeShipping   LineType = "shipping"
	LineTypePaymentFee LineType = "payment-fee"
	LineTypeGiftWrap   LineType = "gift-wrap"
	LineTypeDiscount   LineType = "discount"
	LineTypeManual     LineType = "manual"
	LineTypeVoucher    LineType = "voucher"
	LineTypeCorrector  LineType = "corrector"
	LineTypeOther      LineType = "other"
)

// Splittable reports whether a line of this type may be split over multiple
// vat rates by the strategy resolver. Discounts and manual lines typically
// apply to the whole order and thus to a mix of rates.
func (t LineType) Splittable() bool {
	return t == LineTypeDiscount || t == LineTypeManual
}

// VatType is the overall tax regime classification of an invoice.
type VatType string

const (
	// VatTypeNational: regular home-country vat.
	VatTypeNational VatType = "national"
	// VatTypeNationalReversed: domestic reverse charge, buyer remits.
	VatTypeNationalReversed VatType = "national-reversed"
	// VatTypeEuReversed: intra-EU B2B reverse charge, 0% seller-side.
	VatTypeEuReversed VatType = "eu-reversed"
	// VatTypeRestOfWorld: export outside the EU, vat exempt.
	VatTypeRestOfWorld VatType = "rest-of-world"
	// VatTypeMargin: second-hand margin scheme, vat on margin only.
	VatTypeMargin VatType = "margin"
	// VatTypeForeign: destination-country vat (e.g. digital services).
	VatTypeForeign VatType = "foreign"
)

// ZeroRateAllowed reports whether a 0% or exempt line is consistent with the
// type without further policy input.
func (t VatType) ZeroRateAllowed() bool {
	switch t {
	case VatTypeNationalReversed, VatTypeEuReversed, VatTypeRestOfWorld:
		return true
	default:
		return false
	}
}

// VatRateExempt is the sentinel rate for legally vat-exempt lines, distinct
// from an ordinary 0% rate in the target schema.
const VatRateExempt = -1.0
