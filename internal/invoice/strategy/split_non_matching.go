package strategy

import (
	"github.com/smallbiznis/factuur/internal/invoice/domain"
	"github.com/smallbiznis/factuur/internal/money"
)

// centPrecision is the rounding precision assumed for webshop amounts.
const centPrecision = 0.01

// SplitNonMatchingLine solves the single remaining pending line
// algebraically: with one unresolved line its vat must equal the whole
// remainder, so rate = vat2Divide / preTaxAmount * 100. The solution is only
// accepted when it lands on a candidate rate within the rounding window.
type SplitNonMatchingLine struct{}

func (SplitNonMatchingLine) Name() string { return "SplitNonMatchingLine" }

func (s SplitNonMatchingLine) Applicable(ctx *Context) bool {
	if !ctx.Vat2DivideKnown || len(ctx.Pending) != 1 {
		return false
	}
	line := &ctx.Invoice.Lines[ctx.Pending[0]]
	_, ok := pendingAmountEx(line, ctx.Vat2Divide)
	return ok
}

func (s SplitNonMatchingLine) Try(ctx *Context) (Outcome, bool) {
	line := &ctx.Invoice.Lines[ctx.Pending[0]]
	amountEx, ok := pendingAmountEx(line, ctx.Vat2Divide)
	if !ok || amountEx == 0 {
		return Outcome{}, false
	}

	// Both operands are cent-rounded, so accept any candidate inside the
	// division's precision window.
	window := money.DivisionRange(ctx.Vat2Divide, amountEx, centPrecision, centPrecision)
	var rate *float64
	for _, cand := range ctx.CandidateRates() {
		if cand < 0 {
			continue
		}
		if window.Contains(cand / 100) {
			if rate != nil && *rate != cand {
				// Two different candidates fit; ambiguity is not for this
				// strategy to resolve.
				return Outcome{}, false
			}
			rate = domain.Float(cand)
		}
	}
	if rate == nil {
		return Outcome{}, false
	}

	replacement := line.Copy()
	qty := replacement.Quantity
	if qty == 0 {
		qty = 1
		replacement.Quantity = 1
	}
	replacement.VatRate = rate
	replacement.UnitPriceEx = domain.Float(amountEx / qty)
	replacement.VatAmount = domain.Float(ctx.Vat2Divide / qty)
	replacement.UnitPriceInc = domain.Float((amountEx + ctx.Vat2Divide) / qty)
	replacement.VatRateRange = nil

	return Outcome{Covered: []int{0}, Replacements: []domain.Line{replacement}}, true
}

// pendingAmountEx derives the pre-tax total of a pending line. When only the
// inc amount is known, the line's vat must be the whole remainder, which
// pins the ex amount.
func pendingAmountEx(line *domain.Line, vat2Divide float64) (float64, bool) {
	qty := line.Quantity
	if qty == 0 {
		qty = 1
	}
	if line.UnitPriceEx != nil {
		return *line.UnitPriceEx * qty, true
	}
	if line.UnitPriceInc != nil {
		return *line.UnitPriceInc*qty - vat2Divide, true
	}
	return 0, false
}
