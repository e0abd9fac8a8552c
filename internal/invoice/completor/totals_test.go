package completor

import (
	"testing"

	"github.com/smallbiznis/factuur/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullLine(desc string, qty, ex, rate float64) domain.Line {
	return domain.Line{
		Description:   desc,
		Quantity:      qty,
		UnitPriceEx:   domain.Float(ex),
		UnitPriceInc:  domain.Float(ex * (1 + rate/100)),
		VatAmount:     domain.Float(ex * rate / 100),
		VatRate:       domain.Float(rate),
		VatRateSource: domain.VatRateSourceExact,
		LineType:      domain.LineTypeProduct,
	}
}

func TestCompleteLineTotals_FillsMissingInvoiceTotals(t *testing.T) {
	inv := &domain.Invoice{
		Lines: []domain.Line{
			fullLine("A", 2, 50, 21),
			fullLine("B", 1, 30, 9),
		},
	}

	report := completeLineTotals(inv)

	require.NotNil(t, inv.AmountEx)
	assert.InDelta(t, 130, *inv.AmountEx, 1e-9)
	require.NotNil(t, inv.VatAmount)
	assert.InDelta(t, 23.7, *inv.VatAmount, 1e-9)
	require.NotNil(t, inv.AmountInc)
	assert.InDelta(t, 153.7, *inv.AmountInc, 1e-9)
	assert.Equal(t, totalsEqual, areTotalsEqual(inv, report))
}

func TestCompleteLineTotals_IncompleteSumsStayOpen(t *testing.T) {
	inv := &domain.Invoice{
		Lines: []domain.Line{
			{Description: "No prices", Quantity: 1},
		},
	}

	report := completeLineTotals(inv)

	assert.Nil(t, inv.AmountEx)
	assert.Equal(t, totalIncomplete, report.ex.state)
	assert.Equal(t, totalsUndecided, areTotalsEqual(inv, report))
}

func TestAreTotalsEqual_ToleranceWindow(t *testing.T) {
	inv := &domain.Invoice{
		AmountEx: domain.Float(100.04),
		Lines:    []domain.Line{fullLine("A", 1, 100, 21)},
	}
	report := completeLineTotals(inv)
	assert.Equal(t, totalsEqual, areTotalsEqual(inv, report))

	inv = &domain.Invoice{
		AmountEx: domain.Float(100.10),
		Lines:    []domain.Line{fullLine("A", 1, 100, 21)},
	}
	report = completeLineTotals(inv)
	assert.Equal(t, totalsNotEqual, areTotalsEqual(inv, report))
}

func TestAreTotalsEqual_ZeroVatMatchAloneIsUndecided(t *testing.T) {
	// Both sides zero vat agree, but ex and inc are unknown: the zero could
	// mask a mismatch, so the verdict stays open.
	inv := &domain.Invoice{
		VatAmount: domain.Float(0),
		Lines: []domain.Line{{
			Description: "Reverse charged",
			Quantity:    1,
			VatAmount:   domain.Float(0),
		}},
	}

	report := completeLineTotals(inv)
	assert.Equal(t, totalsUndecided, areTotalsEqual(inv, report))
}

func TestCorrectTotals_AppendsCorrectorLine(t *testing.T) {
	// The webshop total includes a fee the lines never mention.
	inv := &domain.Invoice{
		AmountEx:  domain.Float(105),
		AmountInc: domain.Float(127.05),
		VatAmount: domain.Float(22.05),
		Lines:     []domain.Line{fullLine("Product", 1, 100, 21)},
	}
	msgs := domain.NewMessageCollector()

	report := completeLineTotals(inv)
	require.Equal(t, totalsNotEqual, areTotalsEqual(inv, report))
	correctTotals(inv, report, nlCandidates(), msgs)

	require.Len(t, inv.Lines, 2)
	corrector := inv.Lines[1]
	assert.Equal(t, domain.LineTypeCorrector, corrector.LineType)
	assert.Equal(t, "Fee adjustment", corrector.Description)
	assert.Equal(t, 1.0, corrector.Quantity)
	assert.InDelta(t, 5, *corrector.UnitPriceEx, 1e-9)
	assert.InDelta(t, 1.05, *corrector.VatAmount, 1e-9)
	assert.InDelta(t, 6.05, *corrector.UnitPriceInc, 1e-9)
	// The corrector's own rate snapped onto the legal 21%.
	assert.Equal(t, domain.VatRateSourceCalculatedCorrected, corrector.VatRateSource)
	assert.Equal(t, 21.0, *corrector.VatRate)

	assert.True(t, inv.Concept)
	require.Equal(t, 1, msgs.Count())
	assert.Equal(t, domain.CodeCorrectiveLineAdded, msgs.Messages()[0].Code)
}

func TestCorrectTotals_DerivesThirdDelta(t *testing.T) {
	// Vat total missing on the invoice but ex and inc differ consistently;
	// the vat delta follows algebraically.
	inv := &domain.Invoice{
		AmountEx:  domain.Float(90),
		AmountInc: domain.Float(108.9),
		Lines: []domain.Line{{
			Description:   "Product",
			Quantity:      1,
			UnitPriceEx:   domain.Float(100),
			UnitPriceInc:  domain.Float(121),
			VatRate:       domain.Float(21),
			VatRateSource: domain.VatRateSourceExact,
		}},
	}
	msgs := domain.NewMessageCollector()

	report := completeLineTotals(inv)
	require.Equal(t, totalsNotEqual, areTotalsEqual(inv, report))
	correctTotals(inv, report, nlCandidates(), msgs)

	require.Len(t, inv.Lines, 2)
	corrector := inv.Lines[1]
	assert.Equal(t, "Discount adjustment", corrector.Description)
	assert.InDelta(t, -10, *corrector.UnitPriceEx, 1e-9)
	assert.InDelta(t, -2.1, *corrector.VatAmount, 1e-9)
}

func TestCorrectTotals_RefundLabel(t *testing.T) {
	inv := &domain.Invoice{
		AmountEx:  domain.Float(-105),
		AmountInc: domain.Float(-127.05),
		VatAmount: domain.Float(-22.05),
		Lines:     []domain.Line{fullLine("Refund", 1, -100, 21)},
	}
	msgs := domain.NewMessageCollector()

	report := completeLineTotals(inv)
	correctTotals(inv, report, nlCandidates(), msgs)

	require.Len(t, inv.Lines, 2)
	assert.Equal(t, "Refund adjustment", inv.Lines[1].Description)
}

func TestCorrectTotals_TooLittleDataOnlyWarns(t *testing.T) {
	// Only the ex total is usable; with two unknowns the deltas cannot be
	// derived, so the mismatch is reported but not repaired.
	inv := &domain.Invoice{
		AmountEx: domain.Float(105),
		Lines: []domain.Line{{
			Description: "Product",
			Quantity:    1,
			UnitPriceEx: domain.Float(100),
		}},
	}
	msgs := domain.NewMessageCollector()

	report := completeLineTotals(inv)
	require.Equal(t, totalsNotEqual, areTotalsEqual(inv, report))
	correctTotals(inv, report, nlCandidates(), msgs)

	assert.Len(t, inv.Lines, 1)
	assert.False(t, inv.Concept)
	require.Equal(t, 1, msgs.Count())
	msg := msgs.Messages()[0]
	assert.Equal(t, domain.CodeTotalMismatchUncorrected, msg.Code)
	assert.Contains(t, msg.Text, "amount-ex")
}

func TestCorrectTotals_PureRoundingCorrector(t *testing.T) {
	// Inc differs while ex and vat agree: the corrector carries only the inc
	// delta and books no vat.
	inv := &domain.Invoice{
		AmountEx:  domain.Float(100),
		AmountInc: domain.Float(121.10),
		VatAmount: domain.Float(21),
		Lines:     []domain.Line{fullLine("Product", 1, 100, 21)},
	}
	msgs := domain.NewMessageCollector()

	report := completeLineTotals(inv)
	require.Equal(t, totalsNotEqual, areTotalsEqual(inv, report))
	correctTotals(inv, report, nlCandidates(), msgs)

	require.Len(t, inv.Lines, 2)
	corrector := inv.Lines[1]
	assert.InDelta(t, 0, *corrector.UnitPriceEx, 1e-9)
	assert.InDelta(t, 0, *corrector.VatAmount, 1e-9)
	assert.InDelta(t, 0.10, *corrector.UnitPriceInc, 1e-9)
	assert.Equal(t, domain.VatRateSourceExactZero, corrector.VatRateSource)
	assert.Equal(t, 0.0, *corrector.VatRate)
}
