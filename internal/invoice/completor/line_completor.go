package completor

import (
	"github.com/smallbiznis/factuur/internal/invoice/domain"
	"github.com/smallbiznis/factuur/internal/money"
	"go.uber.org/zap"
)

// centPrecision is the rounding precision assumed for amounts coming from
// webshops; it drives the width of calculated-rate windows.
const centPrecision = 0.01

// LineCompletor fills the required numeric fields of every line and pins
// down imprecise rates by matching them against the legally possible ones.
// It never errors; everything it cannot resolve is left for the strategy
// resolver and surfaced through the message sink.
type LineCompletor struct {
	log *zap.Logger
}

func NewLineCompletor(log *zap.Logger) *LineCompletor {
	return &LineCompletor{log: log.Named("invoice.completor.line")}
}

// Complete runs the pre-flatten passes over the full line tree.
func (c *LineCompletor) Complete(inv *domain.Invoice, candidates []domain.VatRateCandidate, msgs *domain.MessageCollector) {
	normalizeCurrency(inv)
	correctCalculatedVatRates(inv.Lines, candidates, msgs)
	addVatRateToLookupLines(inv.Lines, candidates, msgs)
	completeLineRequiredData(inv.Lines)
	// Newly filled prices may have produced matchable calculated rates.
	correctCalculatedVatRates(inv.Lines, candidates, msgs)
}

// CompleteFlat runs the post-flatten passes over the flat line list.
func (c *LineCompletor) CompleteFlat(inv *domain.Invoice) {
	if adopted := addVatRateTo0PriceLines(inv.Lines); adopted > 0 {
		c.log.Debug("zero-priced lines adopted the invoice maximum rate",
			zap.Int("lines", adopted))
	}
	recalculateLineData(inv.Lines)
	completeLineMetaData(inv.Lines)
}

// normalizeCurrency converts all monetary fields into the home currency,
// exactly once: the pending flag is cleared so a re-run cannot double-apply
// the rate.
func normalizeCurrency(inv *domain.Invoice) {
	if !inv.ConvertCurrency || inv.ConversionRate == nil || *inv.ConversionRate == 0 {
		return
	}
	rate := *inv.ConversionRate
	convertLines(inv.Lines, rate)
	scale(inv.AmountEx, rate)
	scale(inv.AmountInc, rate)
	scale(inv.VatAmount, rate)
	inv.ConvertCurrency = false
}

func convertLines(lines []domain.Line, rate float64) {
	for i := range lines {
		line := &lines[i]
		scale(line.UnitPriceEx, rate)
		scale(line.UnitPriceInc, rate)
		scale(line.VatAmount, rate)
		scale(line.CostPrice, rate)
		scale(line.DiscountAmountInc, rate)
		scale(line.DiscountVatAmount, rate)
		convertLines(line.Children, rate)
	}
}

func scale(v *float64, rate float64) {
	if v != nil {
		*v *= rate
	}
}

// correctCalculatedVatRates matches every calculated rate's precision window
// against the candidate rates. Exactly one distinct match promotes the line;
// zero or several leave it provisional.
func correctCalculatedVatRates(lines []domain.Line, candidates []domain.VatRateCandidate, msgs *domain.MessageCollector) {
	for i := range lines {
		line := &lines[i]
		correctCalculatedVatRates(line.Children, candidates, msgs)
		if line.VatRateSource != domain.VatRateSourceCalculated || line.VatRateRange == nil {
			continue
		}
		correctCalculatedVatRate(line, candidates, msgs)
	}
}

// correctCalculatedVatRate is a pure function of the line's precision window
// and the candidate set; given the same inputs it always produces the same
// (rate, source) outcome.
func correctCalculatedVatRate(line *domain.Line, candidates []domain.VatRateCandidate, msgs *domain.MessageCollector) {
	matched := matchWindow(*line.VatRateRange, candidates)
	switch len(matched) {
	case 0:
		line.VatRate = nil
		line.VatRateRange = nil
		if line.LineType.Splittable() {
			line.VatRateSource = domain.VatRateSourceStrategyPending
			return
		}
		msgs.AddNotice(domain.CodeLineRateUnresolved, "line",
			"calculated rate of %q matches no legal rate", line.Description)
	case 1:
		line.VatRate = domain.Float(matched[0])
		line.VatRateRange = nil
		line.VatRateSource = domain.VatRateSourceCalculatedCorrected
	default:
		// Same-valued rates of different regimes cannot be told apart here;
		// that ambiguity is resolved at the type level, not the rate level.
		line.VatRate = nil
		line.VatRateSource = domain.VatRateSourceCompletorProvided
	}
}

// matchWindow collects the distinct candidate rate values inside the window.
func matchWindow(window domain.RateRange, candidates []domain.VatRateCandidate) []float64 {
	var matched []float64
	for _, cand := range candidates {
		if cand.Rate < window.Min || cand.Rate > window.Max {
			continue
		}
		duplicate := false
		for _, m := range matched {
			if m == cand.Rate {
				duplicate = true
				break
			}
		}
		if !duplicate {
			matched = append(matched, cand.Rate)
		}
	}
	return matched
}

// addVatRateToLookupLines applies a stored product-level historical rate,
// but only when that rate is still legally possible today. Tax law changes
// between pricing and sale would otherwise leak stale rates into the books.
func addVatRateToLookupLines(lines []domain.Line, candidates []domain.VatRateCandidate, msgs *domain.MessageCollector) {
	for i := range lines {
		line := &lines[i]
		addVatRateToLookupLines(line.Children, candidates, msgs)
		if line.IsCorrect() || line.LookupVatRate == nil {
			continue
		}
		if rateIsCandidate(*line.LookupVatRate, candidates) {
			line.VatRate = domain.Float(*line.LookupVatRate)
			line.VatRateRange = nil
			line.VatRateSource = domain.VatRateSourceLookedUp
			continue
		}
		msgs.AddNotice(domain.CodeLookupRateOutdated, "line",
			"stored rate %.3f of %q is no longer a legal rate", *line.LookupVatRate, line.Description)
		if line.LineType.Splittable() {
			line.VatRateSource = domain.VatRateSourceStrategyPending
		}
	}
}

func rateIsCandidate(rate float64, candidates []domain.VatRateCandidate) bool {
	for _, cand := range candidates {
		if cand.Rate == rate {
			return true
		}
	}
	return false
}

// completeLineRequiredData fills ex/inc/vat per line from whichever two are
// present, children before parents so a resolved child rate can seed its
// parent.
func completeLineRequiredData(lines []domain.Line) {
	for i := range lines {
		line := &lines[i]
		completeLineRequiredData(line.Children)
		propagateHierarchyRates(line)
		completeOneLine(line)
	}
}

// propagateHierarchyRates copies a trusted rate between a parent and its
// children when exactly one side knows it.
func propagateHierarchyRates(line *domain.Line) {
	if len(line.Children) == 0 {
		return
	}
	if line.VatRate == nil {
		if rate, ok := commonChildRate(line.Children); ok {
			line.VatRate = domain.Float(rate)
			line.VatRateRange = nil
			line.VatRateSource = domain.VatRateSourceCopiedFromChildren
		}
		return
	}
	if !line.IsCorrect() {
		return
	}
	for i := range line.Children {
		child := &line.Children[i]
		if child.VatRate == nil && !child.IsCorrect() {
			child.VatRate = domain.Float(*line.VatRate)
			child.VatRateRange = nil
			child.VatRateSource = domain.VatRateSourceCopiedFromParent
		}
	}
}

func commonChildRate(children []domain.Line) (float64, bool) {
	var rate *float64
	for i := range children {
		child := &children[i]
		if !child.IsCorrect() || child.VatRate == nil {
			return 0, false
		}
		if rate == nil {
			rate = child.VatRate
		} else if *rate != *child.VatRate {
			return 0, false
		}
	}
	if rate == nil {
		return 0, false
	}
	return *rate, true
}

// completeOneLine closes the ex/inc/vat triangle for one line and, when the
// amounts pin down a rate the webshop never sent, records that rate as
// calculated together with its precision window.
func completeOneLine(line *domain.Line) {
	if line.IsMargin() {
		// Margin lines carry no vat on the invoice itself; vat is computed on
		// the margin at submission. Inclusive equals exclusive by definition.
		switch {
		case line.UnitPriceEx == nil && line.UnitPriceInc != nil:
			line.UnitPriceEx = domain.Float(*line.UnitPriceInc)
		case line.UnitPriceInc == nil && line.UnitPriceEx != nil:
			line.UnitPriceInc = domain.Float(*line.UnitPriceEx)
		}
		if line.VatAmount == nil {
			line.VatAmount = domain.Float(0)
		}
		return
	}

	var fraction *float64
	if line.VatRate != nil {
		fraction = domain.Float(effectiveRate(*line.VatRate) / 100)
	}
	amounts, _, err := money.Reconcile(line.UnitPriceEx, line.UnitPriceInc, line.VatAmount, fraction)
	if err != nil {
		return
	}
	line.UnitPriceEx = domain.Float(amounts.AmountEx)
	line.UnitPriceInc = domain.Float(amounts.AmountInc)
	line.VatAmount = domain.Float(amounts.VatAmount)

	if line.VatRate == nil && amounts.AmountEx != 0 {
		window := money.DivisionRange(amounts.VatAmount, amounts.AmountEx, centPrecision, centPrecision)
		line.VatRate = domain.Float(window.Calculated * 100)
		line.VatRateRange = &domain.RateRange{Min: window.Min * 100, Max: window.Max * 100}
		line.VatRateSource = domain.VatRateSourceCalculated
	}
}

// effectiveRate maps the exempt sentinel onto 0 for arithmetic.
func effectiveRate(rate float64) float64 {
	if rate < 0 {
		return 0
	}
	return rate
}

// addVatRateTo0PriceLines gives free lines the maximum rate appearing
// elsewhere on the invoice. For promotional zero-priced items the highest
// rate is statistically the likeliest; the amounts are zero either way.
// Returns how many lines adopted the rate.
func addVatRateTo0PriceLines(lines []domain.Line) int {
	var max *float64
	for i := range lines {
		line := &lines[i]
		if line.IsCorrect() && line.VatRate != nil && (max == nil || *line.VatRate > *max) {
			max = line.VatRate
		}
	}
	adopted := 0
	for i := range lines {
		line := &lines[i]
		if line.VatRateSource != domain.VatRateSourceCompletorProvided || !isZeroPriced(line) {
			continue
		}
		if max == nil {
			line.VatRateSource = domain.VatRateSourceStrategyPending
			continue
		}
		line.VatRate = domain.Float(*max)
		line.VatRateSource = domain.VatRateSourceCompletorCompleted
		line.VatAmount = domain.Float(0)
		adopted++
	}
	return adopted
}

func isZeroPriced(line *domain.Line) bool {
	ex := line.UnitPriceEx != nil && *line.UnitPriceEx == 0
	inc := line.UnitPriceInc != nil && *line.UnitPriceInc == 0
	if line.UnitPriceEx != nil && line.UnitPriceInc != nil {
		return ex && inc
	}
	return ex || inc
}

// recalculateLineData rederives the excl price of flagged lines from the
// incl price now that the rate is trusted. Webshops round the excl side to
// cents independently, which drifts the books by a cent per unit.
func recalculateLineData(lines []domain.Line) {
	for i := range lines {
		line := &lines[i]
		if !line.Recalculate || !line.IsCorrect() || line.VatRate == nil || line.UnitPriceInc == nil {
			continue
		}
		rate := effectiveRate(*line.VatRate)
		line.OldUnitPrice = line.UnitPriceEx
		ex := *line.UnitPriceInc / (1 + rate/100)
		line.UnitPriceEx = domain.Float(ex)
		line.VatAmount = domain.Float(*line.UnitPriceInc - ex)
		line.Recalculate = false
	}
}

// completeLineMetaData fills the remaining derived fields on correct lines.
func completeLineMetaData(lines []domain.Line) {
	for i := range lines {
		line := &lines[i]
		if line.IsCorrect() && line.VatRate != nil {
			rate := effectiveRate(*line.VatRate)
			if line.UnitPriceEx != nil {
				if line.VatAmount == nil {
					line.VatAmount = domain.Float(*line.UnitPriceEx * rate / 100)
				}
				if line.UnitPriceInc == nil {
					line.UnitPriceInc = domain.Float(*line.UnitPriceEx + *line.VatAmount)
				}
			}
			if line.DiscountAmountInc == nil && line.DiscountVatAmount != nil && rate > 0 {
				line.DiscountAmountInc = domain.Float(*line.DiscountVatAmount / rate * (100 + rate))
			}
		}
	}
}

// markUnresolvedLines sweeps every line the direct passes could not settle
// into the strategy-pending set. Returns how many lines were swept.
func markUnresolvedLines(lines []domain.Line) int {
	pending := 0
	for i := range lines {
		line := &lines[i]
		if line.IsCorrect() {
			continue
		}
		line.VatRateSource = domain.VatRateSourceStrategyPending
		pending++
	}
	return pending
}
