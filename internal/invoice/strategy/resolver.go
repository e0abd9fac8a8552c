// Package strategy resolves lines whose vat rate could not be determined by
// direct per-line inference. Strategies run in a fixed priority order; each
// declares its own preconditions and the first success wins for the lines it
// covers. Partial solutions are supported: remaining pending lines continue
// through later strategies.
package strategy

import (
	"strings"

	"github.com/smallbiznis/factuur/internal/invoice/domain"
	"go.uber.org/zap"
)

// amountTolerance is the absolute tolerance used when checking whether a
// derived vat total reconciles with the amount still to divide.
const amountTolerance = 0.05

// Context is the ephemeral state one strategy attempt works on.
type Context struct {
	Invoice *domain.Invoice
	// Pending holds indices into Invoice.Lines of strategy-pending lines.
	Pending []int
	// Vat2Divide is the invoice-level vat not yet attributable to any
	// correct line; the quantity strategies must allocate.
	Vat2Divide      float64
	Vat2DivideKnown bool
	Breakdown       Breakdown
	Candidates      []domain.VatRateCandidate
	Messages        *domain.MessageCollector
}

// NewContext snapshots the pending set, the unallocated vat and the per-rate
// breakdown for one strategy attempt.
func NewContext(inv *domain.Invoice, candidates []domain.VatRateCandidate, msgs *domain.MessageCollector) *Context {
	ctx := &Context{
		Invoice:    inv,
		Breakdown:  NewBreakdown(inv.Lines),
		Candidates: candidates,
		Messages:   msgs,
	}
	for i := range inv.Lines {
		if inv.Lines[i].IsStrategyPending() {
			ctx.Pending = append(ctx.Pending, i)
		}
	}

	vatTotal, ok := invoiceVat(inv)
	if !ok {
		return ctx
	}
	allocated := 0.0
	complete := true
	for i := range inv.Lines {
		line := &inv.Lines[i]
		if !line.IsCorrect() {
			continue
		}
		vat, ok := lineVat(line)
		if !ok {
			complete = false
			break
		}
		allocated += vat
	}
	if complete {
		ctx.Vat2Divide = vatTotal - allocated
		ctx.Vat2DivideKnown = true
	}
	return ctx
}

// CandidateRates returns the distinct candidate rate values, preserving
// candidate order.
func (c *Context) CandidateRates() []float64 {
	seen := make(map[string]struct{}, len(c.Candidates))
	rates := make([]float64, 0, len(c.Candidates))
	for _, cand := range c.Candidates {
		key := rateKey(cand.Rate)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		rates = append(rates, cand.Rate)
	}
	return rates
}

func invoiceVat(inv *domain.Invoice) (float64, bool) {
	if inv.VatAmount != nil {
		return *inv.VatAmount, true
	}
	if inv.AmountInc != nil && inv.AmountEx != nil {
		return *inv.AmountInc - *inv.AmountEx, true
	}
	return 0, false
}

// Outcome is a successful (possibly partial) strategy result.
type Outcome struct {
	// Covered holds positions in Context.Pending that were resolved.
	Covered []int
	// Replacements are the lines that take their place.
	Replacements []domain.Line
}

// Strategy is one numeric approach to allocating the vat remainder.
type Strategy interface {
	Name() string
	Applicable(ctx *Context) bool
	Try(ctx *Context) (Outcome, bool)
}

// Resolver runs the strategies in priority order until every pending line is
// resolved or the list is exhausted.
type Resolver struct {
	strategies []Strategy
	log        *zap.Logger
	// Observer is notified of each strategy attempt result; optional.
	Observer func(strategy, result string)
}

// NewResolver builds the resolver with the documented priority order.
func NewResolver(log *zap.Logger) *Resolver {
	return &Resolver{
		strategies: []Strategy{
			SplitKnownDiscountLine{},
			SplitNonMatchingLine{},
			ApplySameVatRate{},
			TryAllVatRatePermutations{},
		},
		log: log.Named("invoice.strategy"),
	}
}

// Resolve attempts to resolve all strategy-pending lines. It returns true
// when none remain. On failure the attempted strategies are recorded in the
// message sink; the caller decides about concept status.
func (r *Resolver) Resolve(inv *domain.Invoice, candidates []domain.VatRateCandidate, msgs *domain.MessageCollector) bool {
	var attempted []string
	for _, s := range r.strategies {
		ctx := NewContext(inv, candidates, msgs)
		if len(ctx.Pending) == 0 {
			return true
		}
		if !s.Applicable(ctx) {
			r.observe(s.Name(), "skipped")
			attempted = append(attempted, s.Name()+": not applicable")
			continue
		}
		outcome, ok := s.Try(ctx)
		if !ok || len(outcome.Covered) == 0 {
			r.observe(s.Name(), "failed")
			attempted = append(attempted, s.Name()+": no reconciling solution")
			continue
		}
		r.apply(inv, ctx, outcome)
		r.observe(s.Name(), "resolved")
		r.log.Debug("strategy resolved lines",
			zap.String("strategy", s.Name()),
			zap.Int("lines", len(outcome.Covered)),
		)
	}

	final := NewContext(inv, candidates, msgs)
	if len(final.Pending) == 0 {
		return true
	}
	msgs.AddWarning(domain.CodeStrategyUnresolved, "strategy",
		"%d line(s) could not be resolved; attempted: %s",
		len(final.Pending), strings.Join(attempted, "; "))
	return false
}

// apply removes the covered pending lines and appends the replacements,
// preserving the order of the remaining lines.
func (r *Resolver) apply(inv *domain.Invoice, ctx *Context, outcome Outcome) {
	remove := make(map[int]struct{}, len(outcome.Covered))
	for _, pos := range outcome.Covered {
		remove[ctx.Pending[pos]] = struct{}{}
	}

	kept := make([]domain.Line, 0, len(inv.Lines))
	for i := range inv.Lines {
		if _, drop := remove[i]; drop {
			continue
		}
		kept = append(kept, inv.Lines[i])
	}
	for i := range outcome.Replacements {
		outcome.Replacements[i].VatRateSource = domain.VatRateSourceStrategyCompleted
		kept = append(kept, outcome.Replacements[i])
	}
	inv.Lines = kept
}

func (r *Resolver) observe(strategy, result string) {
	if r.Observer != nil {
		r.Observer(strategy, result)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
