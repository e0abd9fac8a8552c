package strategy

import (
	"fmt"

	"github.com/smallbiznis/factuur/internal/invoice/domain"
)

// SplitKnownDiscountLine resolves discount lines whose webshop delivered an
// explicit (discount amount inc, discount vat amount) pair: the split over
// the invoice's appearing rates follows from that pair directly, no
// guesswork involved.
type SplitKnownDiscountLine struct{}

func (SplitKnownDiscountLine) Name() string { return "SplitKnownDiscountLine" }

func (s SplitKnownDiscountLine) Applicable(ctx *Context) bool {
	if n := ctx.Breakdown.Distinct(); n == 0 || n > 2 {
		return false
	}
	for _, idx := range ctx.Pending {
		if qualifies(&ctx.Invoice.Lines[idx]) {
			return true
		}
	}
	return false
}

func (s SplitKnownDiscountLine) Try(ctx *Context) (Outcome, bool) {
	var outcome Outcome
	for pos, idx := range ctx.Pending {
		line := &ctx.Invoice.Lines[idx]
		if !qualifies(line) {
			continue
		}
		replacements, ok := s.split(ctx, line)
		if !ok {
			continue
		}
		outcome.Covered = append(outcome.Covered, pos)
		outcome.Replacements = append(outcome.Replacements, replacements...)
	}
	return outcome, len(outcome.Covered) > 0
}

func (s SplitKnownDiscountLine) split(ctx *Context, line *domain.Line) ([]domain.Line, bool) {
	amountInc := *line.DiscountAmountInc
	vatAmount := *line.DiscountVatAmount
	amountEx := amountInc - vatAmount

	if rate, ok := ctx.Breakdown.Single(); ok {
		if rate < 0 {
			return nil, false
		}
		if abs(amountEx*rate/100-vatAmount) > amountTolerance {
			return nil, false
		}
		return []domain.Line{discountPart(line, amountEx, vatAmount, rate)}, true
	}

	low, high, _ := ctx.Breakdown.MinMax()
	if low < 0 {
		return nil, false
	}
	lowEx, highEx, err := SplitAmountOverTwoVatRates(amountEx, vatAmount, low, high)
	if err != nil {
		return nil, false
	}
	if !withinPart(lowEx, amountEx) || !withinPart(highEx, amountEx) {
		return nil, false
	}
	return []domain.Line{
		discountPart(line, lowEx, lowEx*low/100, low),
		discountPart(line, highEx, highEx*high/100, high),
	}, true
}

func discountPart(src *domain.Line, amountEx, vatAmount, rate float64) domain.Line {
	part := src.Copy()
	part.Description = fmt.Sprintf("%s (%s%% vat)", src.Description, trimRate(rate))
	part.Quantity = 1
	part.UnitPriceEx = domain.Float(amountEx)
	part.VatAmount = domain.Float(vatAmount)
	part.UnitPriceInc = domain.Float(amountEx + vatAmount)
	part.VatRate = domain.Float(rate)
	part.VatRateRange = nil
	part.DiscountAmountInc = nil
	part.DiscountVatAmount = nil
	return part
}

// withinPart checks that a split part lies between zero and the full amount,
// regardless of the discount's sign.
func withinPart(part, total float64) bool {
	low, high := 0.0, total
	if total < 0 {
		low, high = total, 0
	}
	return part >= low-amountTolerance && part <= high+amountTolerance
}

func qualifies(line *domain.Line) bool {
	return line.DiscountAmountInc != nil && line.DiscountVatAmount != nil
}

func trimRate(rate float64) string {
	s := fmt.Sprintf("%.3f", rate)
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}
