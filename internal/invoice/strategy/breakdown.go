package strategy

import (
	"sort"
	"strconv"

	"github.com/smallbiznis/factuur/internal/invoice/domain"
)

// RateTotals aggregates the amounts booked under one vat rate.
type RateTotals struct {
	VatAmount float64
	AmountEx  float64
	Count     int
}

// Breakdown aggregates vat per distinct rate over the "correct" lines of an
// invoice. Keys are 3-decimal rate strings so float noise collapses onto one
// entry. Recomputed per strategy attempt, never persisted.
type Breakdown struct {
	totals map[string]*RateTotals
	rates  []float64
}

func NewBreakdown(lines []domain.Line) Breakdown {
	b := Breakdown{totals: make(map[string]*RateTotals)}
	for i := range lines {
		line := &lines[i]
		if !line.IsCorrect() || line.VatRate == nil {
			continue
		}
		key := rateKey(*line.VatRate)
		totals, ok := b.totals[key]
		if !ok {
			totals = &RateTotals{}
			b.totals[key] = totals
			b.rates = append(b.rates, *line.VatRate)
		}
		totals.Count++
		if vat, ok := lineVat(line); ok {
			totals.VatAmount += vat
		}
		if line.UnitPriceEx != nil {
			totals.AmountEx += *line.UnitPriceEx * line.Quantity
		}
	}
	sort.Float64s(b.rates)
	return b
}

// Distinct returns the number of distinct rates in the breakdown.
func (b Breakdown) Distinct() int {
	return len(b.rates)
}

// Rates returns the distinct rates in ascending order.
func (b Breakdown) Rates() []float64 {
	return b.rates
}

// Single returns the sole rate when exactly one distinct rate occurs.
func (b Breakdown) Single() (float64, bool) {
	if len(b.rates) != 1 {
		return 0, false
	}
	return b.rates[0], true
}

// MinMax returns the lowest and highest distinct rate.
func (b Breakdown) MinMax() (low, high float64, ok bool) {
	if len(b.rates) == 0 {
		return 0, 0, false
	}
	return b.rates[0], b.rates[len(b.rates)-1], true
}

// Get returns the totals for a rate, or nil.
func (b Breakdown) Get(rate float64) *RateTotals {
	return b.totals[rateKey(rate)]
}

func rateKey(rate float64) string {
	return strconv.FormatFloat(rate, 'f', 3, 64)
}

// lineVat returns the total vat booked on a line, deriving it from the rate
// when the vat amount itself is absent.
func lineVat(line *domain.Line) (float64, bool) {
	if line.VatAmount != nil {
		return *line.VatAmount * line.Quantity, true
	}
	if line.VatRate == nil || *line.VatRate < 0 {
		return 0, line.VatRate != nil
	}
	if line.UnitPriceEx != nil {
		return *line.UnitPriceEx * line.Quantity * *line.VatRate / 100, true
	}
	if line.UnitPriceInc != nil {
		return *line.UnitPriceInc * line.Quantity * *line.VatRate / (100 + *line.VatRate), true
	}
	return 0, false
}
