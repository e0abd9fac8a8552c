package strategy

// maxPermutations bounds the search space of the brute-force strategy. With
// candidates^pending above this the attempt is declined rather than burning
// CPU on an invoice that almost certainly has a data problem instead.
const maxPermutations = 10000

// TryAllVatRatePermutations is the last resort: enumerate every assignment
// of candidate rates to pending lines and keep the one whose vat total
// reconciles with the remainder. Runs odometer-style so memory stays flat.
type TryAllVatRatePermutations struct{}

func (TryAllVatRatePermutations) Name() string { return "TryAllVatRatePermutations" }

func (s TryAllVatRatePermutations) Applicable(ctx *Context) bool {
	if !ctx.Vat2DivideKnown || len(ctx.Pending) == 0 {
		return false
	}
	rates := ctx.CandidateRates()
	if len(rates) == 0 {
		return false
	}
	if permutationCount(len(rates), len(ctx.Pending)) > maxPermutations {
		return false
	}
	for _, idx := range ctx.Pending {
		line := &ctx.Invoice.Lines[idx]
		if line.UnitPriceEx == nil && line.UnitPriceInc == nil {
			return false
		}
	}
	return true
}

func (s TryAllVatRatePermutations) Try(ctx *Context) (Outcome, bool) {
	rates := ctx.CandidateRates()
	assignment := make([]int, len(ctx.Pending))
	var solution []int

	for {
		total := 0.0
		feasible := true
		for i, idx := range ctx.Pending {
			vat, ok := vatAtRate(&ctx.Invoice.Lines[idx], rates[assignment[i]])
			if !ok {
				feasible = false
				break
			}
			total += vat
		}
		if feasible && abs(total-ctx.Vat2Divide) <= amountTolerance {
			if solution != nil && !sameVatProfile(ctx, rates, solution, assignment) {
				// Two materially different assignments reconcile; the data
				// does not pin down a unique answer.
				return Outcome{}, false
			}
			if solution == nil {
				solution = append([]int(nil), assignment...)
			}
		}
		if !advance(assignment, len(rates)) {
			break
		}
	}
	if solution == nil {
		return Outcome{}, false
	}

	outcome := Outcome{Covered: make([]int, 0, len(ctx.Pending))}
	for pos, idx := range ctx.Pending {
		replacement := applyRate(&ctx.Invoice.Lines[idx], rates[solution[pos]])
		outcome.Covered = append(outcome.Covered, pos)
		outcome.Replacements = append(outcome.Replacements, replacement)
	}
	return outcome, true
}

// sameVatProfile reports whether two assignments put the same vat on every
// pending line, which makes them interchangeable even when the rate indices
// differ (a zero-priced line reconciles under any rate).
func sameVatProfile(ctx *Context, rates []float64, a, b []int) bool {
	for i, idx := range ctx.Pending {
		line := &ctx.Invoice.Lines[idx]
		vatA, _ := vatAtRate(line, rates[a[i]])
		vatB, _ := vatAtRate(line, rates[b[i]])
		if abs(vatA-vatB) > amountTolerance {
			return false
		}
	}
	return true
}

// advance increments the assignment odometer; false means it wrapped.
func advance(assignment []int, base int) bool {
	for i := len(assignment) - 1; i >= 0; i-- {
		assignment[i]++
		if assignment[i] < base {
			return true
		}
		assignment[i] = 0
	}
	return false
}

// permutationCount computes base^exp, capping early to avoid overflow.
func permutationCount(base, exp int) int {
	count := 1
	for i := 0; i < exp; i++ {
		count *= base
		if count > maxPermutations {
			return count
		}
	}
	return count
}
