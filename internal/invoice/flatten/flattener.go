// Package flatten collapses a tree of invoice lines into the flat list the
// bookkeeping API expects, without double-counting amounts.
package flatten

import (
	"strings"

	"github.com/smallbiznis/factuur/internal/config"
	"github.com/smallbiznis/factuur/internal/invoice/domain"
)

const childIndent = " - "

// Flattener flattens line hierarchies according to a shop policy.
type Flattener struct {
	policy config.FlattenPolicy
}

func New(policy config.FlattenPolicy) *Flattener {
	return &Flattener{policy: policy}
}

// Flatten returns a new flat line list. Children are processed before their
// parents; the parent-index counter is local to this call so concurrent
// invoices can flatten independently.
func (f *Flattener) Flatten(lines []domain.Line) []domain.Line {
	counter := 0
	return f.flatten(lines, &counter, 0)
}

func (f *Flattener) flatten(lines []domain.Line, counter *int, depth int) []domain.Line {
	out := make([]domain.Line, 0, len(lines))
	for _, line := range lines {
		children := line.Children
		line.Children = nil
		line.Description = indent(line.Description, depth)

		if len(children) == 0 {
			out = append(out, line)
			*counter++
			continue
		}

		if f.keepSeparate(line, children) {
			children = f.correctAmounts(&line, children)
			parentIndex := *counter
			out = append(out, line)
			*counter++
			for i := range children {
				idx := parentIndex
				children[i].ParentIndex = &idx
			}
			out = append(out, f.flatten(children, counter, depth+1)...)
			continue
		}

		out = append(out, f.merge(line, children))
		*counter++
	}
	return out
}

// keepSeparate decides whether children stay on their own lines. Children
// with heterogeneous vat rates must never be merged; the rest is policy.
func (f *Flattener) keepSeparate(parent domain.Line, children []domain.Line) bool {
	if heterogeneousRates(parent, children) {
		return true
	}
	if len(children) >= f.policy.MinChildLines {
		return true
	}
	if len(children) > f.policy.MaxChildLines {
		return true
	}
	if len(mergedDescription(parent, children, -1)) > f.policy.MaxMergedTextLength {
		return true
	}
	return false
}

func heterogeneousRates(parent domain.Line, children []domain.Line) bool {
	var first *float64
	consider := func(rate *float64) bool {
		if rate == nil {
			return false
		}
		if first == nil {
			first = rate
			return false
		}
		return *first != *rate
	}
	if consider(parent.VatRate) {
		return true
	}
	for i := range children {
		if consider(children[i].VatRate) {
			return true
		}
		if heterogeneousRates(children[i], children[i].Children) {
			return true
		}
	}
	return false
}

// correctAmounts copies or validates vat info between parent and children per
// the configured correction mode and returns the (possibly adjusted)
// children. Only one of parent or children may end up carrying the amounts.
func (f *Flattener) correctAmounts(parent *domain.Line, children []domain.Line) []domain.Line {
	switch f.policy.CorrectionMode {
	case config.CorrectionModeParentOnly:
		// Amounts live on the parent; children are informational.
		for i := range children {
			zeroAmounts(&children[i])
			if children[i].VatRate == nil && parent.VatRate != nil && parent.IsCorrect() {
				children[i].VatRate = copyOf(parent.VatRate)
				children[i].VatRateSource = domain.VatRateSourceCopiedFromParent
			}
		}
	case config.CorrectionModeChildrenOnly:
		// Amounts live on the children; strip the parent's.
		if parent.VatRate == nil {
			if rate, ok := singleChildRate(children); ok {
				parent.VatRate = domain.Float(rate)
				parent.VatRateSource = domain.VatRateSourceCopiedFromChildren
			}
		}
		zeroAmounts(parent)
	case config.CorrectionModeDoubled:
		// Webshop put the full amounts on both levels; zero the children to
		// avoid double counting.
		for i := range children {
			zeroAmounts(&children[i])
		}
	case config.CorrectionModeAdditive:
		// Parent and children each carry part of the total; nothing to fix.
	}
	return children
}

func (f *Flattener) merge(parent domain.Line, children []domain.Line) domain.Line {
	parent.Description = mergedDescription(parent, children, f.policy.MaxMergedTextLength)
	parent.ChildrenMerged = countLines(children)

	if f.policy.RetainChildPrices {
		for i := range children {
			addAmounts(&parent, children[i])
		}
	}
	return parent
}

func mergedDescription(parent domain.Line, children []domain.Line, maxLen int) string {
	parts := make([]string, 0, len(children)+1)
	parts = append(parts, parent.Description)
	appendDescriptions(&parts, children)
	merged := parts[0] + " (" + strings.Join(parts[1:], ", ") + ")"
	if maxLen > 0 && len(merged) > maxLen {
		merged = strings.TrimRight(merged[:maxLen], " ,(")
	}
	return merged
}

func appendDescriptions(parts *[]string, lines []domain.Line) {
	for i := range lines {
		if desc := strings.TrimSpace(lines[i].Description); desc != "" {
			*parts = append(*parts, desc)
		}
		appendDescriptions(parts, lines[i].Children)
	}
}

func countLines(lines []domain.Line) int {
	n := len(lines)
	for i := range lines {
		n += countLines(lines[i].Children)
	}
	return n
}

func addAmounts(dst *domain.Line, src domain.Line) {
	dst.UnitPriceEx = addFloat(dst.UnitPriceEx, src.UnitPriceEx, src.Quantity)
	dst.UnitPriceInc = addFloat(dst.UnitPriceInc, src.UnitPriceInc, src.Quantity)
	dst.VatAmount = addFloat(dst.VatAmount, src.VatAmount, src.Quantity)
}

func addFloat(dst, src *float64, qty float64) *float64 {
	if src == nil {
		return dst
	}
	if dst == nil {
		return domain.Float(*src * qty)
	}
	return domain.Float(*dst + *src*qty)
}

func zeroAmounts(line *domain.Line) {
	line.UnitPriceEx = domain.Float(0)
	line.UnitPriceInc = domain.Float(0)
	line.VatAmount = domain.Float(0)
}

func singleChildRate(children []domain.Line) (float64, bool) {
	var rate *float64
	for i := range children {
		child := &children[i]
		if !child.IsCorrect() || child.VatRate == nil {
			return 0, false
		}
		if rate == nil {
			rate = child.VatRate
		} else if *rate != *child.VatRate {
			return 0, false
		}
	}
	if rate == nil {
		return 0, false
	}
	return *rate, true
}

func copyOf(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return domain.Float(*v)
}

func indent(desc string, depth int) string {
	if depth == 0 {
		return desc
	}
	return strings.Repeat(childIndent, depth) + desc
}
