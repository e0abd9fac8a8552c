package completor

import (
	"github.com/smallbiznis/factuur/internal/invoice/domain"
	"github.com/smallbiznis/factuur/internal/money"
)

// totalsTolerance is the absolute tolerance for comparing a line sum against
// an invoice-level total.
const totalsTolerance = 0.05

type totalState int

const (
	totalIncomplete totalState = iota
	totalEqual
	totalDiffering
)

// totalComparison captures one of the three total comparisons.
type totalComparison struct {
	state   totalState
	lineSum float64
	delta   float64 // invoice total minus line sum, valid when differing
}

// totalsReport is the outcome of comparing all three sums against the
// invoice-level totals.
type totalsReport struct {
	ex  totalComparison
	inc totalComparison
	vat totalComparison
}

// completeLineTotals sums the line amounts, fills missing invoice-level
// totals from complete sums, and compares the rest.
func completeLineTotals(inv *domain.Invoice) totalsReport {
	var sumEx, sumInc, sumVat float64
	exComplete, incComplete, vatComplete := true, true, true

	for i := range inv.Lines {
		line := &inv.Lines[i]
		qty := line.Quantity
		if line.UnitPriceEx != nil {
			sumEx += *line.UnitPriceEx * qty
		} else {
			exComplete = false
		}
		if line.UnitPriceInc != nil {
			sumInc += *line.UnitPriceInc * qty
		} else {
			incComplete = false
		}
		if line.VatAmount != nil {
			sumVat += *line.VatAmount * qty
		} else {
			vatComplete = false
		}
	}

	if inv.AmountEx == nil && exComplete {
		inv.AmountEx = domain.Float(sumEx)
	}
	if inv.AmountInc == nil && incComplete {
		inv.AmountInc = domain.Float(sumInc)
	}
	if inv.VatAmount == nil && vatComplete {
		inv.VatAmount = domain.Float(sumVat)
	}

	return totalsReport{
		ex:  compareTotal(inv.AmountEx, sumEx, exComplete),
		inc: compareTotal(inv.AmountInc, sumInc, incComplete),
		vat: compareTotal(inv.VatAmount, sumVat, vatComplete),
	}
}

func compareTotal(invoiceTotal *float64, lineSum float64, complete bool) totalComparison {
	if invoiceTotal == nil || !complete {
		return totalComparison{state: totalIncomplete, lineSum: lineSum}
	}
	delta := *invoiceTotal - lineSum
	if abs(delta) <= totalsTolerance {
		return totalComparison{state: totalEqual, lineSum: lineSum}
	}
	return totalComparison{state: totalDiffering, lineSum: lineSum, delta: delta}
}

type totalsVerdict int

const (
	totalsUndecided totalsVerdict = iota
	totalsEqual
	totalsNotEqual
)

// areTotalsEqual classifies the three comparisons into one verdict. A lone
// equal-but-zero vat comparison stays undecided: it could be a genuine
// zero-vat invoice or a mismatch the zero happens to mask, and guessing
// wrong on reverse-charge invoices is worse than leaving it open.
func areTotalsEqual(inv *domain.Invoice, report totalsReport) totalsVerdict {
	comparisons := []totalComparison{report.ex, report.inc, report.vat}
	for _, c := range comparisons {
		if c.state == totalDiffering {
			return totalsNotEqual
		}
	}
	equal := 0
	for _, c := range comparisons {
		if c.state == totalEqual {
			equal++
		}
	}
	if equal == 0 {
		return totalsUndecided
	}
	if equal == 1 && report.vat.state == totalEqual &&
		inv.VatAmount != nil && *inv.VatAmount == 0 {
		return totalsUndecided
	}
	return totalsEqual
}

// correctTotals repairs a proven mismatch by appending a corrective line
// carrying the deltas. Possible only when at most one of the three totals
// was incomplete, since the third delta then follows algebraically.
func correctTotals(inv *domain.Invoice, report totalsReport, candidates []domain.VatRateCandidate, msgs *domain.MessageCollector) {
	deltaEx, exKnown := deltaOf(report.ex)
	deltaInc, incKnown := deltaOf(report.inc)
	deltaVat, vatKnown := deltaOf(report.vat)

	known := 0
	for _, ok := range []bool{exKnown, incKnown, vatKnown} {
		if ok {
			known++
		}
	}
	if known < 2 {
		msgs.AddWarning(domain.CodeTotalMismatchUncorrected, "totals",
			"invoice %s total differs from the line sum but the other totals are incomplete; not corrected",
			differingField(report))
		return
	}
	switch {
	case !exKnown:
		deltaEx = deltaInc - deltaVat
	case !incKnown:
		deltaInc = deltaEx + deltaVat
	case !vatKnown:
		deltaVat = deltaInc - deltaEx
	}

	corrector := domain.Line{
		Description:  correctionLabel(inv, deltaInc),
		Quantity:     1,
		UnitPriceEx:  domain.Float(deltaEx),
		UnitPriceInc: domain.Float(deltaInc),
		VatAmount:    domain.Float(deltaVat),
		LineType:     domain.LineTypeCorrector,
	}
	if deltaEx != 0 {
		window := money.DivisionRange(deltaVat, deltaEx, centPrecision, centPrecision)
		corrector.VatRate = domain.Float(window.Calculated * 100)
		corrector.VatRateRange = &domain.RateRange{Min: window.Min * 100, Max: window.Max * 100}
		corrector.VatRateSource = domain.VatRateSourceCalculated
		correctCalculatedVatRate(&corrector, candidates, msgs)
	} else if deltaVat == 0 {
		corrector.VatRate = domain.Float(0)
		corrector.VatRateSource = domain.VatRateSourceExactZero
	}

	inv.Lines = append(inv.Lines, corrector)
	inv.SetConcept()
	msgs.AddWarning(domain.CodeCorrectiveLineAdded, "totals",
		"added corrective line %q (ex %.2f, vat %.2f) to close a total mismatch",
		corrector.Description, deltaEx, deltaVat)
}

func differingField(report totalsReport) string {
	switch {
	case report.ex.state == totalDiffering:
		return "amount-ex"
	case report.inc.state == totalDiffering:
		return "amount-inc"
	default:
		return "vat-amount"
	}
}

func deltaOf(c totalComparison) (float64, bool) {
	switch c.state {
	case totalIncomplete:
		return 0, false
	case totalEqual:
		return 0, true
	default:
		return c.delta, true
	}
}

// correctionLabel names the corrective line by the direction of the
// discrepancy so an operator sees at a glance what kind of adjustment it is.
func correctionLabel(inv *domain.Invoice, deltaInc float64) string {
	if inv.AmountInc != nil && *inv.AmountInc < 0 {
		return "Refund adjustment"
	}
	if deltaInc < 0 {
		return "Discount adjustment"
	}
	return "Fee adjustment"
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
