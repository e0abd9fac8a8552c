package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/factuur/internal/clock"
	completiondomain "github.com/smallbiznis/factuur/internal/completion/domain"
	"github.com/smallbiznis/factuur/internal/config"
	"github.com/smallbiznis/factuur/internal/invoice/completor"
	invoicedomain "github.com/smallbiznis/factuur/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type lookupStub struct {
	rates map[string][]float64
}

func (s lookupStub) RatesFor(ctx context.Context, countryCode string, date time.Time) ([]float64, error) {
	return s.rates[countryCode], nil
}

type runRepoStub struct {
	runs []*completiondomain.CompletionRun
	err  error
}

func (r *runRepoStub) Create(ctx context.Context, run *completiondomain.CompletionRun) error {
	if r.err != nil {
		return r.err
	}
	r.runs = append(r.runs, run)
	return nil
}

func testClock() *clock.FakeClock {
	return clock.NewFakeClock(time.Date(2024, time.April, 2, 10, 30, 0, 0, time.UTC))
}

func newTestService(t *testing.T, repo completiondomain.Repository) completiondomain.Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	lookup := lookupStub{rates: map[string][]float64{"NL": {21, 9, 0}}}
	comp := completor.NewInvoiceCompletor(
		config.NewStaticPolicyHolder(config.DefaultCompletionPolicy()),
		lookup,
		zap.NewNop(),
	)
	return NewService(serviceParam{
		Completor:  comp,
		Repository: repo,
		GenID:      node,
		Clock:      testClock(),
		Logger:     zap.NewNop(),
	})
}

func rawInvoice() invoicedomain.Invoice {
	return invoicedomain.Invoice{
		Customer: invoicedomain.Customer{
			FullName:    "Jan Jansen",
			CountryCode: "NL",
			Email:       "jan@example.org",
		},
		Number:    "2024-0001",
		IssueDate: time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
		Lines: []invoicedomain.Line{
			{
				Description:   "Product",
				Quantity:      1,
				UnitPriceEx:   invoicedomain.Float(100),
				VatRate:       invoicedomain.Float(21),
				VatRateSource: invoicedomain.VatRateSourceExact,
				LineType:      invoicedomain.LineTypeProduct,
			},
		},
	}
}

func TestComplete_EndToEnd(t *testing.T) {
	repo := &runRepoStub{}
	svc := newTestService(t, repo)
	raw := rawInvoice()

	result, err := svc.Complete(context.Background(), raw, completiondomain.SourceInfo{Shop: "woocommerce"})
	require.NoError(t, err)

	assert.False(t, result.Concept)
	assert.Equal(t, invoicedomain.VatTypeNational, result.Invoice.VatType)
	require.NotNil(t, result.Invoice.VatAmount)
	assert.InDelta(t, 21, *result.Invoice.VatAmount, 0.05)

	// The caller's invoice is untouched; the engine worked on a copy.
	assert.Nil(t, raw.AmountEx)
	assert.Equal(t, invoicedomain.VatType(""), raw.VatType)

	// An audit row was recorded.
	require.Len(t, repo.runs, 1)
	run := repo.runs[0]
	assert.Equal(t, "woocommerce", run.Source)
	assert.Equal(t, "2024-0001", run.InvoiceNumber)
	assert.False(t, run.Concept)
	assert.Equal(t, 0, run.Warnings)
	assert.NotZero(t, run.ID)
	assert.True(t, run.CreatedAt.Equal(testClock().Now()))
}

func TestComplete_ConceptRunCountsWarnings(t *testing.T) {
	repo := &runRepoStub{}
	svc := newTestService(t, repo)

	raw := rawInvoice()
	// Break the totals so the engine must append a corrector and go concept.
	raw.AmountEx = invoicedomain.Float(105)
	raw.AmountInc = invoicedomain.Float(127.05)
	raw.VatAmount = invoicedomain.Float(22.05)

	result, err := svc.Complete(context.Background(), raw, completiondomain.SourceInfo{Shop: "shopify"})
	require.NoError(t, err)

	assert.True(t, result.Concept)
	require.Len(t, repo.runs, 1)
	assert.True(t, repo.runs[0].Concept)
	assert.GreaterOrEqual(t, repo.runs[0].Warnings, 1)
}

func TestComplete_AuditFailureDoesNotFailTheRun(t *testing.T) {
	repo := &runRepoStub{err: errors.New("db down")}
	svc := newTestService(t, repo)

	result, err := svc.Complete(context.Background(), rawInvoice(), completiondomain.SourceInfo{Shop: "woocommerce"})
	require.NoError(t, err)
	assert.False(t, result.Concept)
}

func TestComplete_ContractValidation(t *testing.T) {
	svc := newTestService(t, &runRepoStub{})
	ctx := context.Background()
	src := completiondomain.SourceInfo{Shop: "woocommerce"}

	t.Run("missing customer", func(t *testing.T) {
		raw := rawInvoice()
		raw.Customer = invoicedomain.Customer{}
		_, err := svc.Complete(ctx, raw, src)
		assert.ErrorIs(t, err, completiondomain.ErrMissingCustomer)
	})

	t.Run("missing country", func(t *testing.T) {
		raw := rawInvoice()
		raw.Customer.CountryCode = ""
		_, err := svc.Complete(ctx, raw, src)
		assert.ErrorIs(t, err, completiondomain.ErrMissingCountry)
	})

	t.Run("missing lines", func(t *testing.T) {
		raw := rawInvoice()
		raw.Lines = nil
		_, err := svc.Complete(ctx, raw, src)
		assert.ErrorIs(t, err, completiondomain.ErrMissingLines)
	})

	t.Run("missing issue date", func(t *testing.T) {
		raw := rawInvoice()
		raw.IssueDate = time.Time{}
		_, err := svc.Complete(ctx, raw, src)
		assert.ErrorIs(t, err, completiondomain.ErrMissingDate)
	})

	t.Run("negative quantity", func(t *testing.T) {
		raw := rawInvoice()
		raw.Lines[0].Quantity = -1
		_, err := svc.Complete(ctx, raw, src)
		assert.ErrorIs(t, err, completiondomain.ErrInvalidQuantity)
	})
}
