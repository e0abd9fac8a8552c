package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile_TwoAmountsCloseTheTriangle(t *testing.T) {
	amounts, derived, err := Reconcile(f(100), f(121), nil, nil)
	require.NoError(t, err)
	assert.InDelta(t, 21, amounts.VatAmount, 1e-9)
	assert.Equal(t, []Field{FieldVatAmount}, derived)

	amounts, derived, err = Reconcile(f(100), nil, f(21), nil)
	require.NoError(t, err)
	assert.InDelta(t, 121, amounts.AmountInc, 1e-9)
	assert.Equal(t, []Field{FieldAmountInc}, derived)

	amounts, derived, err = Reconcile(nil, f(121), f(21), nil)
	require.NoError(t, err)
	assert.InDelta(t, 100, amounts.AmountEx, 1e-9)
	assert.Equal(t, []Field{FieldAmountEx}, derived)
}

func TestReconcile_OneAmountPlusRate(t *testing.T) {
	amounts, derived, err := Reconcile(f(100), nil, nil, f(0.21))
	require.NoError(t, err)
	assert.InDelta(t, 21, amounts.VatAmount, 1e-9)
	assert.InDelta(t, 121, amounts.AmountInc, 1e-9)
	assert.Equal(t, []Field{FieldVatAmount, FieldAmountInc}, derived)

	amounts, _, err = Reconcile(nil, f(121), nil, f(0.21))
	require.NoError(t, err)
	assert.InDelta(t, 100, amounts.AmountEx, 1e-9)
	assert.InDelta(t, 21, amounts.VatAmount, 1e-9)

	amounts, _, err = Reconcile(nil, nil, f(21), f(0.21))
	require.NoError(t, err)
	assert.InDelta(t, 100, amounts.AmountEx, 1e-9)
	assert.InDelta(t, 121, amounts.AmountInc, 1e-9)
}

func TestReconcile_RoundTripIsStable(t *testing.T) {
	// A reconciled triple must reconcile back to itself from any pair.
	amounts, _, err := Reconcile(f(82.64), nil, nil, f(0.21))
	require.NoError(t, err)

	again, _, err := Reconcile(f(amounts.AmountEx), f(amounts.AmountInc), nil, nil)
	require.NoError(t, err)
	assert.InDelta(t, amounts.VatAmount, again.VatAmount, 1e-9)

	again, _, err = Reconcile(nil, f(amounts.AmountInc), f(amounts.VatAmount), nil)
	require.NoError(t, err)
	assert.InDelta(t, amounts.AmountEx, again.AmountEx, 1e-9)
}

func TestReconcile_InsufficientData(t *testing.T) {
	_, _, err := Reconcile(f(100), nil, nil, nil)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, _, err = Reconcile(nil, nil, nil, nil)
	assert.ErrorIs(t, err, ErrInsufficientData)

	// Vat amount plus a zero rate cannot produce an ex amount.
	_, _, err = Reconcile(nil, nil, f(21), f(0))
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestReconcile_GivenValuesAreNotOverwritten(t *testing.T) {
	// All three amounts present: nothing derived, even if inconsistent.
	amounts, derived, err := Reconcile(f(100), f(122), f(21), nil)
	require.NoError(t, err)
	assert.Empty(t, derived)
	assert.Equal(t, 122.0, amounts.AmountInc)
}

func TestDivisionRange_ContainsTrueQuotient(t *testing.T) {
	// 21 / 100 with cent-rounded operands: true rate 0.21 must be inside.
	r := DivisionRange(21, 100, 0.01, 0.01)
	assert.InDelta(t, 0.21, r.Calculated, 1e-9)
	assert.True(t, r.Contains(0.21))
	assert.Less(t, r.Min, r.Calculated)
	assert.Greater(t, r.Max, r.Calculated)
}

func TestDivisionRange_WidthShrinksWithAmount(t *testing.T) {
	// The same rate derived from larger amounts pins it down tighter.
	small := DivisionRange(2.1, 10, 0.01, 0.01)
	large := DivisionRange(210, 1000, 0.01, 0.01)
	assert.Less(t, large.Max-large.Min, small.Max-small.Min)
}

func TestDivisionRange_ZeroPrecision(t *testing.T) {
	r := DivisionRange(21, 100, 0, 0)
	assert.Equal(t, r.Calculated, r.Min)
	assert.Equal(t, r.Calculated, r.Max)
}

func TestDivisionRange_NegativeOperands(t *testing.T) {
	// A discount line: both operands negative, quotient positive.
	r := DivisionRange(-2.1, -10, 0.01, 0.01)
	assert.InDelta(t, 0.21, r.Calculated, 1e-9)
	assert.True(t, r.Contains(0.21))
	assert.LessOrEqual(t, r.Min, r.Max)
}
