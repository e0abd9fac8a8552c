package strategy

import (
	"testing"

	"github.com/smallbiznis/factuur/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func nlCandidates() []domain.VatRateCandidate {
	return []domain.VatRateCandidate{
		{Rate: 21, VatType: domain.VatTypeNational},
		{Rate: 9, VatType: domain.VatTypeNational},
		{Rate: 0, VatType: domain.VatTypeNational},
	}
}

func correctLine(desc string, qty, ex, rate float64) domain.Line {
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

func pendingLine(desc string, qty, ex float64, lineType domain.LineType) domain.Line {
	return domain.Line{
		Description:   desc,
		Quantity:      qty,
		UnitPriceEx:   domain.Float(ex),
		VatRateSource: domain.VatRateSourceStrategyPending,
		LineType:      lineType,
	}
}

func TestResolver_AppliesSameRateToAncillaryLines(t *testing.T) {
	// One distinct rate on the correct lines, no invoice totals: only the
	// same-rate strategy is applicable for the two pending lines.
	inv := &domain.Invoice{
		Lines: []domain.Line{
			correctLine("Product", 1, 100, 21),
			pendingLine("Shipping", 1, 6.95, domain.LineTypeShipping),
			pendingLine("Payment fee", 1, 0.50, domain.LineTypePaymentFee),
		},
	}
	msgs := domain.NewMessageCollector()

	resolved := NewResolver(zap.NewNop()).Resolve(inv, nlCandidates(), msgs)

	require.True(t, resolved)
	require.Len(t, inv.Lines, 3)
	for _, line := range inv.Lines[1:] {
		assert.Equal(t, domain.VatRateSourceStrategyCompleted, line.VatRateSource)
		require.NotNil(t, line.VatRate)
		assert.Equal(t, 21.0, *line.VatRate)
		require.NotNil(t, line.UnitPriceInc)
	}
	assert.InDelta(t, 6.95*1.21, *inv.Lines[1].UnitPriceInc, 1e-9)
	assert.Zero(t, msgs.Count())
}

func TestResolver_SameRateWinsOverPermutations(t *testing.T) {
	// Both the same-rate strategy and the brute-force search are applicable;
	// the priority order must let the cheap one win.
	inv := &domain.Invoice{
		VatAmount: domain.Float(21 + 1.46 + 0.11),
		Lines: []domain.Line{
			correctLine("Product", 1, 100, 21),
			pendingLine("Shipping", 1, 6.95, domain.LineTypeShipping),
			pendingLine("Payment fee", 1, 0.50, domain.LineTypePaymentFee),
		},
	}
	msgs := domain.NewMessageCollector()

	resolver := NewResolver(zap.NewNop())
	outcomes := map[string]string{}
	resolver.Observer = func(strategy, result string) {
		outcomes[strategy] = result
	}

	require.True(t, resolver.Resolve(inv, nlCandidates(), msgs))
	assert.Equal(t, "resolved", outcomes["ApplySameVatRate"])
	assert.NotEqual(t, "resolved", outcomes["TryAllVatRatePermutations"])
}

func TestResolver_SameRateDeclinesWhenRemainderDoesNotClose(t *testing.T) {
	// The invoice vat leaves 4.00 to divide, but the shipping line at the
	// shared 21% rate only carries 1.46. Applying it anyway would break the
	// line-sum-equals-invoice-vat property, so the run must end unresolved.
	inv := &domain.Invoice{
		VatAmount: domain.Float(25),
		Lines: []domain.Line{
			correctLine("Product", 1, 100, 21),
			pendingLine("Shipping", 1, 6.95, domain.LineTypeShipping),
		},
	}
	msgs := domain.NewMessageCollector()

	resolved := NewResolver(zap.NewNop()).Resolve(inv, nlCandidates(), msgs)

	assert.False(t, resolved)
	assert.Equal(t, domain.VatRateSourceStrategyPending, inv.Lines[1].VatRateSource)
	assert.Nil(t, inv.Lines[1].VatRate)
	require.Equal(t, 1, msgs.Count())
	assert.Equal(t, domain.CodeStrategyUnresolved, msgs.Messages()[0].Code)
}

func TestResolver_SplitsSingleNonMatchingLine(t *testing.T) {
	// One pending line and a known vat remainder: the rate follows
	// algebraically and must land on a candidate.
	inv := &domain.Invoice{
		VatAmount: domain.Float(21 + 0.63),
		Lines: []domain.Line{
			correctLine("Product", 1, 100, 21),
			pendingLine("Handling", 1, 7, domain.LineTypeManual),
		},
	}
	msgs := domain.NewMessageCollector()

	require.True(t, NewResolver(zap.NewNop()).Resolve(inv, nlCandidates(), msgs))

	line := inv.Lines[1]
	assert.Equal(t, domain.VatRateSourceStrategyCompleted, line.VatRateSource)
	require.NotNil(t, line.VatRate)
	assert.Equal(t, 9.0, *line.VatRate)
	assert.InDelta(t, 0.63, *line.VatAmount, 1e-9)
	assert.InDelta(t, 7.63, *line.UnitPriceInc, 1e-9)
}

func TestResolver_ResolvesPermutations(t *testing.T) {
	// No correct lines at all: only the brute-force search can allocate the
	// invoice vat over the two pending lines.
	inv := &domain.Invoice{
		VatAmount: domain.Float(25.5),
		Lines: []domain.Line{
			pendingLine("Books", 1, 50, domain.LineTypeProduct),
			pendingLine("Hardware", 1, 100, domain.LineTypeProduct),
		},
	}
	msgs := domain.NewMessageCollector()

	require.True(t, NewResolver(zap.NewNop()).Resolve(inv, nlCandidates(), msgs))

	require.Len(t, inv.Lines, 2)
	byDesc := map[string]domain.Line{}
	for _, line := range inv.Lines {
		byDesc[line.Description] = line
	}
	assert.Equal(t, 9.0, *byDesc["Books"].VatRate)
	assert.InDelta(t, 4.5, *byDesc["Books"].VatAmount, 1e-9)
	assert.Equal(t, 21.0, *byDesc["Hardware"].VatRate)
	assert.InDelta(t, 21.0, *byDesc["Hardware"].VatAmount, 1e-9)
}

func TestResolver_AmbiguousPermutationFails(t *testing.T) {
	// Two equally priced lines and a vat total both (21,9) and (9,21)
	// explain: no unique answer, the invoice stays unresolved.
	inv := &domain.Invoice{
		VatAmount: domain.Float(30),
		Lines: []domain.Line{
			pendingLine("Item A", 1, 100, domain.LineTypeProduct),
			pendingLine("Item B", 1, 100, domain.LineTypeProduct),
		},
	}
	msgs := domain.NewMessageCollector()

	resolved := NewResolver(zap.NewNop()).Resolve(inv, nlCandidates(), msgs)

	assert.False(t, resolved)
	assert.Equal(t, domain.VatRateSourceStrategyPending, inv.Lines[0].VatRateSource)
	require.Equal(t, 1, msgs.Count())
	assert.Equal(t, domain.CodeStrategyUnresolved, msgs.Messages()[0].Code)
	assert.Equal(t, domain.SeverityWarning, msgs.Messages()[0].Severity)
}

func TestResolver_PartialResolutionKeepsRemainderPending(t *testing.T) {
	// The discount split covers its line; the second pending line has no
	// price, so nothing else can touch it.
	inv := &domain.Invoice{
		Lines: []domain.Line{
			correctLine("Product", 1, 100, 21),
			{
				Description:       "Order discount",
				Quantity:          1,
				DiscountAmountInc: domain.Float(-12.1),
				DiscountVatAmount: domain.Float(-2.1),
				VatRateSource:     domain.VatRateSourceStrategyPending,
				LineType:          domain.LineTypeDiscount,
			},
			{
				Description:   "Mystery",
				Quantity:      1,
				VatRateSource: domain.VatRateSourceStrategyPending,
				LineType:      domain.LineTypeOther,
			},
		},
	}
	msgs := domain.NewMessageCollector()

	resolved := NewResolver(zap.NewNop()).Resolve(inv, nlCandidates(), msgs)

	assert.False(t, resolved)
	completed := 0
	pending := 0
	for _, line := range inv.Lines {
		switch line.VatRateSource {
		case domain.VatRateSourceStrategyCompleted:
			completed++
		case domain.VatRateSourceStrategyPending:
			pending++
		}
	}
	assert.Equal(t, 1, completed)
	assert.Equal(t, 1, pending)
}

func TestNewContext_ComputesVatRemainder(t *testing.T) {
	inv := &domain.Invoice{
		VatAmount: domain.Float(25),
		Lines: []domain.Line{
			correctLine("Product", 2, 50, 21),
			pendingLine("Rest", 1, 10, domain.LineTypeOther),
		},
	}

	ctx := NewContext(inv, nlCandidates(), domain.NewMessageCollector())

	require.True(t, ctx.Vat2DivideKnown)
	assert.InDelta(t, 25-21, ctx.Vat2Divide, 1e-9)
	assert.Equal(t, []int{1}, ctx.Pending)
}

func TestNewContext_RemainderFromIncMinusEx(t *testing.T) {
	inv := &domain.Invoice{
		AmountEx:  domain.Float(110),
		AmountInc: domain.Float(133.1),
		Lines: []domain.Line{
			correctLine("Product", 1, 100, 21),
			pendingLine("Rest", 1, 10, domain.LineTypeOther),
		},
	}

	ctx := NewContext(inv, nlCandidates(), domain.NewMessageCollector())

	require.True(t, ctx.Vat2DivideKnown)
	assert.InDelta(t, 2.1, ctx.Vat2Divide, 1e-9)
}

func TestNewContext_UnknownWithoutInvoiceTotals(t *testing.T) {
	inv := &domain.Invoice{
		Lines: []domain.Line{pendingLine("Rest", 1, 10, domain.LineTypeOther)},
	}

	ctx := NewContext(inv, nlCandidates(), domain.NewMessageCollector())
	assert.False(t, ctx.Vat2DivideKnown)
}

func TestContext_CandidateRatesDeduplicates(t *testing.T) {
	candidates := []domain.VatRateCandidate{
		{Rate: 21, VatType: domain.VatTypeNational},
		{Rate: 21, VatType: domain.VatTypeForeign},
		{Rate: 9, VatType: domain.VatTypeNational},
	}
	ctx := NewContext(&domain.Invoice{}, candidates, domain.NewMessageCollector())

	assert.Equal(t, []float64{21, 9}, ctx.CandidateRates())
}
