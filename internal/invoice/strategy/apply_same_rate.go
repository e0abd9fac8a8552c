package strategy

import "github.com/smallbiznis/factuur/internal/invoice/domain"

// ApplySameVatRate covers the common case where one rate governs the whole
// order and only ancillary lines (shipping, fees) lack it: when the correct
// lines all share a single distinct rate, the pending lines get that rate
// too.
type ApplySameVatRate struct{}

func (ApplySameVatRate) Name() string { return "ApplySameVatRate" }

func (s ApplySameVatRate) Applicable(ctx *Context) bool {
	if len(ctx.Pending) == 0 {
		return false
	}
	if _, ok := ctx.Breakdown.Single(); !ok {
		return false
	}
	for _, idx := range ctx.Pending {
		line := &ctx.Invoice.Lines[idx]
		if line.UnitPriceEx == nil && line.UnitPriceInc == nil {
			return false
		}
	}
	return true
}

func (s ApplySameVatRate) Try(ctx *Context) (Outcome, bool) {
	rate, ok := ctx.Breakdown.Single()
	if !ok {
		return Outcome{}, false
	}
	// A known vat remainder must also close under the shared rate; when it
	// does not, a later strategy has to find the allocation instead.
	if ctx.Vat2DivideKnown {
		total := 0.0
		for _, idx := range ctx.Pending {
			vat, ok := vatAtRate(&ctx.Invoice.Lines[idx], rate)
			if !ok {
				return Outcome{}, false
			}
			total += vat
		}
		if abs(total-ctx.Vat2Divide) > amountTolerance {
			return Outcome{}, false
		}
	}
	outcome := Outcome{Covered: make([]int, 0, len(ctx.Pending))}
	for pos, idx := range ctx.Pending {
		replacement := applyRate(&ctx.Invoice.Lines[idx], rate)
		outcome.Covered = append(outcome.Covered, pos)
		outcome.Replacements = append(outcome.Replacements, replacement)
	}
	return outcome, true
}

// vatAtRate is the vat a single line would carry at the given rate,
// percentage form. Exempt lines carry none.
func vatAtRate(line *domain.Line, rate float64) (float64, bool) {
	if rate < 0 {
		return 0, true
	}
	qty := line.Quantity
	if qty == 0 {
		qty = 1
	}
	if line.UnitPriceEx != nil {
		return *line.UnitPriceEx * qty * rate / 100, true
	}
	if line.UnitPriceInc != nil {
		return *line.UnitPriceInc * qty * rate / (100 + rate), true
	}
	return 0, false
}

// applyRate rebuilds a pending line with the resolved rate, completing the
// missing side of the price from the known one.
func applyRate(line *domain.Line, rate float64) domain.Line {
	replacement := line.Copy()
	replacement.VatRate = domain.Float(rate)
	replacement.VatRateRange = nil

	effective := rate
	if effective < 0 {
		effective = 0
	}
	switch {
	case replacement.UnitPriceEx != nil:
		replacement.VatAmount = domain.Float(*replacement.UnitPriceEx * effective / 100)
		replacement.UnitPriceInc = domain.Float(*replacement.UnitPriceEx + *replacement.VatAmount)
	case replacement.UnitPriceInc != nil:
		ex := *replacement.UnitPriceInc / (1 + effective/100)
		replacement.UnitPriceEx = domain.Float(ex)
		replacement.VatAmount = domain.Float(*replacement.UnitPriceInc - ex)
	}
	return replacement
}
