package strategy

import (
	"testing"

	"github.com/smallbiznis/factuur/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSplitAmountOverTwoVatRates(t *testing.T) {
	// 100 ex carrying 15 vat over 9% and 21%: 50/50 solves the system.
	lowEx, highEx, err := SplitAmountOverTwoVatRates(100, 15, 9, 21)
	require.NoError(t, err)
	assert.InDelta(t, 50, lowEx, 1e-9)
	assert.InDelta(t, 50, highEx, 1e-9)

	// The parts must reproduce both the amount and the vat.
	assert.InDelta(t, 100, lowEx+highEx, 1e-9)
	assert.InDelta(t, 15, lowEx*0.09+highEx*0.21, 1e-9)
}

func TestSplitAmountOverTwoVatRates_NegativeAmount(t *testing.T) {
	lowEx, highEx, err := SplitAmountOverTwoVatRates(-10, -1.5, 9, 21)
	require.NoError(t, err)
	assert.InDelta(t, -10, lowEx+highEx, 1e-9)
	assert.InDelta(t, -1.5, lowEx*0.09+highEx*0.21, 1e-9)
}

func TestSplitAmountOverTwoVatRates_EqualRates(t *testing.T) {
	_, _, err := SplitAmountOverTwoVatRates(100, 21, 21, 21)
	assert.ErrorIs(t, err, ErrEqualRates)
}

func TestSplitKnownDiscount_SingleRate(t *testing.T) {
	inv := &domain.Invoice{
		Lines: []domain.Line{
			correctLine("Product", 1, 100, 21),
			{
				Description:       "Voucher SUMMER",
				Quantity:          1,
				DiscountAmountInc: domain.Float(-12.1),
				DiscountVatAmount: domain.Float(-2.1),
				VatRateSource:     domain.VatRateSourceStrategyPending,
				LineType:          domain.LineTypeDiscount,
			},
		},
	}
	ctx := NewContext(inv, nlCandidates(), domain.NewMessageCollector())

	s := SplitKnownDiscountLine{}
	require.True(t, s.Applicable(ctx))
	outcome, ok := s.Try(ctx)
	require.True(t, ok)
	require.Len(t, outcome.Replacements, 1)

	part := outcome.Replacements[0]
	assert.Equal(t, "Voucher SUMMER (21% vat)", part.Description)
	assert.Equal(t, 1.0, part.Quantity)
	assert.InDelta(t, -10, *part.UnitPriceEx, 1e-9)
	assert.InDelta(t, -2.1, *part.VatAmount, 1e-9)
	assert.InDelta(t, -12.1, *part.UnitPriceInc, 1e-9)
	assert.Equal(t, 21.0, *part.VatRate)
	assert.Nil(t, part.DiscountAmountInc)
	assert.Nil(t, part.DiscountVatAmount)
}

func TestSplitKnownDiscount_TwoRates(t *testing.T) {
	inv := &domain.Invoice{
		Lines: []domain.Line{
			correctLine("Books", 1, 50, 9),
			correctLine("Hardware", 1, 100, 21),
			{
				Description:       "Order discount",
				Quantity:          1,
				DiscountAmountInc: domain.Float(-11.5),
				DiscountVatAmount: domain.Float(-1.5),
				VatRateSource:     domain.VatRateSourceStrategyPending,
				LineType:          domain.LineTypeDiscount,
			},
		},
	}
	ctx := NewContext(inv, nlCandidates(), domain.NewMessageCollector())

	s := SplitKnownDiscountLine{}
	require.True(t, s.Applicable(ctx))
	outcome, ok := s.Try(ctx)
	require.True(t, ok)
	require.Len(t, outcome.Replacements, 2)

	low, high := outcome.Replacements[0], outcome.Replacements[1]
	assert.Equal(t, 9.0, *low.VatRate)
	assert.Equal(t, 21.0, *high.VatRate)
	assert.InDelta(t, -5, *low.UnitPriceEx, 1e-9)
	assert.InDelta(t, -5, *high.UnitPriceEx, 1e-9)
	// The parts together reproduce the delivered discount pair.
	assert.InDelta(t, -11.5, *low.UnitPriceInc+*high.UnitPriceInc, 1e-9)
	assert.InDelta(t, -1.5, *low.VatAmount+*high.VatAmount, 1e-9)
}

func TestSplitKnownDiscount_RejectsInconsistentPair(t *testing.T) {
	// The delivered vat does not match the single appearing rate; guessing
	// would book wrong vat, so the strategy declines.
	inv := &domain.Invoice{
		Lines: []domain.Line{
			correctLine("Product", 1, 100, 21),
			{
				Description:       "Discount",
				Quantity:          1,
				DiscountAmountInc: domain.Float(-12.1),
				DiscountVatAmount: domain.Float(-0.5),
				VatRateSource:     domain.VatRateSourceStrategyPending,
				LineType:          domain.LineTypeDiscount,
			},
		},
	}
	ctx := NewContext(inv, nlCandidates(), domain.NewMessageCollector())

	outcome, ok := SplitKnownDiscountLine{}.Try(ctx)
	assert.False(t, ok)
	assert.Empty(t, outcome.Covered)
}

func TestSplitKnownDiscount_NotApplicableWithThreeRates(t *testing.T) {
	inv := &domain.Invoice{
		Lines: []domain.Line{
			correctLine("A", 1, 10, 21),
			correctLine("B", 1, 10, 9),
			correctLine("C", 1, 10, 0),
			{
				Description:       "Discount",
				Quantity:          1,
				DiscountAmountInc: domain.Float(-5),
				DiscountVatAmount: domain.Float(-0.5),
				VatRateSource:     domain.VatRateSourceStrategyPending,
				LineType:          domain.LineTypeDiscount,
			},
		},
	}
	ctx := NewContext(inv, nlCandidates(), domain.NewMessageCollector())
	assert.False(t, SplitKnownDiscountLine{}.Applicable(ctx))
}

func TestSplitNonMatching_AmbiguousCandidatesDecline(t *testing.T) {
	// A tiny amount makes the precision window swallow both 21% and 9%; the
	// strategy must refuse rather than pick one.
	inv := &domain.Invoice{
		VatAmount: domain.Float(0.013),
		Lines: []domain.Line{
			pendingLine("Trinket", 1, 0.09, domain.LineTypeProduct),
		},
	}
	ctx := NewContext(inv, nlCandidates(), domain.NewMessageCollector())

	s := SplitNonMatchingLine{}
	require.True(t, s.Applicable(ctx))
	_, ok := s.Try(ctx)
	assert.False(t, ok)
}

func TestSplitNonMatching_DerivesExFromInc(t *testing.T) {
	// Only the inc price is known: its vat must be the whole remainder.
	inv := &domain.Invoice{
		VatAmount: domain.Float(1.26),
		Lines: []domain.Line{
			{
				Description:   "Service",
				Quantity:      2,
				UnitPriceInc:  domain.Float(7.63),
				VatRateSource: domain.VatRateSourceStrategyPending,
				LineType:      domain.LineTypeManual,
			},
		},
	}
	ctx := NewContext(inv, nlCandidates(), domain.NewMessageCollector())

	s := SplitNonMatchingLine{}
	require.True(t, s.Applicable(ctx))
	outcome, ok := s.Try(ctx)
	require.True(t, ok)

	line := outcome.Replacements[0]
	assert.Equal(t, 9.0, *line.VatRate)
	assert.InDelta(t, 7.0, *line.UnitPriceEx, 1e-9)
	assert.InDelta(t, 0.63, *line.VatAmount, 1e-9)
}

func TestPermutations_DeclinesOversizedSearchSpace(t *testing.T) {
	inv := &domain.Invoice{VatAmount: domain.Float(10)}
	for i := 0; i < 14; i++ {
		inv.Lines = append(inv.Lines, pendingLine("Line", 1, 1, domain.LineTypeProduct))
	}
	candidates := []domain.VatRateCandidate{
		{Rate: 21, VatType: domain.VatTypeNational},
		{Rate: 9, VatType: domain.VatTypeNational},
	}
	ctx := NewContext(inv, candidates, domain.NewMessageCollector())

	// 2^14 assignments exceed the search bound.
	assert.False(t, TryAllVatRatePermutations{}.Applicable(ctx))
}

func TestPermutations_EquivalentAssignmentsAreNotAmbiguous(t *testing.T) {
	// The zero-priced line reconciles under any rate; those assignments all
	// carry the same vat and must not count as ambiguity.
	inv := &domain.Invoice{
		VatAmount: domain.Float(21),
		Lines: []domain.Line{
			pendingLine("Hardware", 1, 100, domain.LineTypeProduct),
			pendingLine("Freebie", 1, 0, domain.LineTypeProduct),
		},
	}
	msgs := domain.NewMessageCollector()

	require.True(t, NewResolver(zap.NewNop()).Resolve(inv, nlCandidates(), msgs))
	byDesc := map[string]domain.Line{}
	for _, line := range inv.Lines {
		byDesc[line.Description] = line
	}
	assert.Equal(t, 21.0, *byDesc["Hardware"].VatRate)
}

func TestBreakdown_AggregatesCorrectLinesOnly(t *testing.T) {
	lines := []domain.Line{
		correctLine("A", 1, 100, 21),
		correctLine("B", 2, 50, 21),
		correctLine("C", 1, 30, 9),
		pendingLine("D", 1, 10, domain.LineTypeOther),
	}

	b := NewBreakdown(lines)

	assert.Equal(t, 2, b.Distinct())
	assert.Equal(t, []float64{9, 21}, b.Rates())

	_, single := b.Single()
	assert.False(t, single)

	low, high, ok := b.MinMax()
	require.True(t, ok)
	assert.Equal(t, 9.0, low)
	assert.Equal(t, 21.0, high)

	totals := b.Get(21)
	require.NotNil(t, totals)
	assert.Equal(t, 2, totals.Count)
	assert.InDelta(t, 200, totals.AmountEx, 1e-9)
	assert.InDelta(t, 42, totals.VatAmount, 1e-9)

	assert.Nil(t, b.Get(12))
}
