// Package completor repairs a raw invoice until it satisfies the bookkeeping
// API's numerical and classification invariants, or marks it concept with
// coded warnings when it cannot. Stages run forward only; no stage aborts
// the pipeline.
package completor

import (
	"context"

	"github.com/smallbiznis/factuur/internal/config"
	"github.com/smallbiznis/factuur/internal/invoice/domain"
	"github.com/smallbiznis/factuur/internal/invoice/flatten"
	"github.com/smallbiznis/factuur/internal/invoice/strategy"
	"go.uber.org/zap"
)

// InvoiceCompletor drives one invoice through the full completion pipeline.
// It is stateless per run; a single instance serves concurrent invoices.
type InvoiceCompletor struct {
	policies *config.PolicyHolder
	lookup   RateLookup
	lines    *LineCompletor
	resolver *strategy.Resolver
	log      *zap.Logger
}

func NewInvoiceCompletor(policies *config.PolicyHolder, lookup RateLookup, log *zap.Logger) *InvoiceCompletor {
	return &InvoiceCompletor{
		policies: policies,
		lookup:   lookup,
		lines:    NewLineCompletor(log),
		resolver: strategy.NewResolver(log),
		log:      log.Named("invoice.completor"),
	}
}

// Resolver exposes the strategy resolver so callers can attach an observer.
func (c *InvoiceCompletor) Resolver() *strategy.Resolver {
	return c.resolver
}

// Complete mutates inv in place and returns the collected diagnostics. The
// invoice is always usable afterwards; inconclusive steps set the concept
// flag instead of failing.
func (c *InvoiceCompletor) Complete(ctx context.Context, inv *domain.Invoice) *domain.MessageCollector {
	msgs := domain.NewMessageCollector()
	policy := c.policies.Get()

	completeCustomer(inv, policy, msgs)

	types := initPossibleVatTypes(inv, policy, msgs)
	candidates := expandCandidates(ctx, c.lookup, inv, types, policy, msgs)

	c.lines.Complete(inv, candidates, msgs)
	inv.Lines = flatten.New(policy.Flatten).Flatten(inv.Lines)
	c.lines.CompleteFlat(inv)

	report := completeLineTotals(inv)
	if areTotalsEqual(inv, report) == totalsNotEqual {
		correctTotals(inv, report, candidates, msgs)
	}

	if pending := markUnresolvedLines(inv.Lines); pending > 0 {
		c.log.Debug("resolving pending lines",
			zap.Int("pending", pending),
			zap.Int("candidates", len(candidates)),
		)
		if !c.resolver.Resolve(inv, candidates, msgs) {
			inv.SetConcept()
		}
		completeLineMetaData(inv.Lines)
	}

	completeVatType(inv, types, candidates, msgs)
	if inv.VatType == domain.VatTypeMargin {
		correctMarginLines(inv)
	}
	promoteZeroToExempt(inv, policy, msgs)
	if policy.RemoveEmptyShipping {
		removeEmptyShipping(inv)
	}

	return msgs
}

// correctMarginLines reshapes every line for the margin scheme: the unit
// price field must hold the tax-inclusive amount and each line carries a
// cost price, zero for lines outside the scheme. The pre-correction price is
// kept for audit.
func correctMarginLines(inv *domain.Invoice) {
	for i := range inv.Lines {
		line := &inv.Lines[i]
		if line.CostPrice == nil {
			line.CostPrice = domain.Float(0)
		}

		var inc *float64
		switch {
		case line.UnitPriceInc != nil:
			inc = line.UnitPriceInc
		case line.UnitPriceEx != nil && line.VatAmount != nil:
			inc = domain.Float(*line.UnitPriceEx + *line.VatAmount)
		case line.UnitPriceEx != nil && line.VatRate != nil:
			inc = domain.Float(*line.UnitPriceEx * (1 + effectiveRate(*line.VatRate)/100))
		}
		if inc == nil {
			continue
		}
		if line.UnitPriceEx == nil || *line.UnitPriceEx != *inc {
			line.OldUnitPrice = line.UnitPriceEx
			line.UnitPriceEx = domain.Float(*inc)
		}
		line.UnitPriceInc = domain.Float(*inc)
	}
}

// promoteZeroToExempt separates genuine 0%-rated lines from legally exempt
// ones; the target schema treats them as different things.
func promoteZeroToExempt(inv *domain.Invoice, policy config.CompletionPolicy, msgs *domain.MessageCollector) {
	for i := range inv.Lines {
		line := &inv.Lines[i]
		if line.VatRate == nil || *line.VatRate != 0 {
			continue
		}
		switch {
		case inv.VatType == domain.VatTypeRestOfWorld:
			line.VatRate = domain.Float(domain.VatRateExempt)
		case inv.VatType.ZeroRateAllowed():
			// Reverse charge: a genuine 0% seller-side rate.
		case policy.SellsVatFreeGoods:
			line.VatRate = domain.Float(domain.VatRateExempt)
		default:
			inv.SetConcept()
			msgs.AddWarning(domain.CodeZeroRateNotAllowed, "line",
				"line %q carries a 0%% rate but vat type %s does not allow it", line.Description, inv.VatType)
		}
	}
}

// removeEmptyShipping drops zero-amount shipping lines. Cosmetic, so it runs
// last and cannot disturb the total reconciliation upstream.
func removeEmptyShipping(inv *domain.Invoice) {
	kept := inv.Lines[:0]
	for i := range inv.Lines {
		line := inv.Lines[i]
		if line.LineType == domain.LineTypeShipping && isZeroPriced(&line) {
			continue
		}
		kept = append(kept, line)
	}
	inv.Lines = kept
}
