// Package domain contains the invoice document model the completion engine
// works on. Values are mutated in place as the pipeline progresses; a run
// always owns its working copy.
package domain

import "time"

// Customer is the buyer block of an invoice.
type Customer struct {
	CompanyName string `json:"companyName,omitempty"`
	VatNumber   string `json:"vatNumber,omitempty"`
	FullName    string `json:"fullName,omitempty"`
	Address     string `json:"address,omitempty"`
	PostalCode  string `json:"postalCode,omitempty"`
	City        string `json:"city,omitempty"`
	CountryCode string `json:"countryCode"`
	Email       string `json:"email,omitempty"`
	Telephone   string `json:"telephone,omitempty"`
	// OverwriteIfExists tells the bookkeeping API whether to update an
	// existing relation; forced to 0 for fictionalized customers.
	OverwriteIfExists int `json:"overwriteIfExists"`
}

// IsBusiness reports whether the customer is a business buyer. Both a company
// name and a vat number are required; either alone is too weak a signal.
func (c Customer) IsBusiness() bool {
	return c.CompanyName != "" && c.VatNumber != ""
}

// RateRange is the precision window of a calculated vat rate: the true rate
// lies in [Min, Max] given the rounding of the amounts it was derived from.
type RateRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Line is one billable unit on an invoice. Monetary fields are nullable
// because upstream creators deliver partial data; the completor fills them.
// Unit prices and vat amount are per unit.
type Line struct {
	Description  string   `json:"description"`
	Quantity     float64  `json:"quantity"`
	UnitPriceEx  *float64 `json:"unitPriceEx,omitempty"`
	UnitPriceInc *float64 `json:"unitPriceInc,omitempty"`
	VatAmount    *float64 `json:"vatAmount,omitempty"`
	// VatRate is a percentage (21 means 21%); VatRateExempt marks exempt.
	VatRate *float64 `json:"vatRate,omitempty"`
	// CostPrice marks a margin-scheme line when set.
	CostPrice *float64 `json:"costPrice,omitempty"`
	// LookupVatRate is the historical rate stored with the product.
	LookupVatRate *float64 `json:"lookupVatRate,omitempty"`

	// Order-level discount metadata, when the webshop provides it.
	DiscountAmountInc *float64 `json:"discountAmountInc,omitempty"`
	DiscountVatAmount *float64 `json:"discountVatAmount,omitempty"`

	VatRateSource VatRateSource `json:"vatRateSource"`
	VatRateRange  *RateRange    `json:"vatRateRange,omitempty"`
	LineType      LineType      `json:"lineType"`

	// Recalculate flags a line whose excl price must be rederived from the
	// incl price once the rate is trusted (webshop cent-rounding drift).
	Recalculate bool `json:"recalculate,omitempty"`
	// OldUnitPrice preserves the pre-correction price for audit when a
	// correction (recalculate, margin) overwrites it.
	OldUnitPrice *float64 `json:"oldUnitPrice,omitempty"`

	// Children holds sub-lines (bundle parts, variants); only populated
	// before flattening.
	Children []Line `json:"children,omitempty"`
	// ParentIndex links a flattened child to the flat index of its parent.
	ParentIndex *int `json:"parentIndex,omitempty"`
	// ChildrenMerged counts descendants merged into this line's description.
	ChildrenMerged int `json:"childrenMerged,omitempty"`
}

// IsCorrect reports whether the line's vat data is trustworthy.
func (l *Line) IsCorrect() bool {
	return l.VatRateSource.Correct()
}

// IsStrategyPending reports whether the line awaits strategy resolution.
func (l *Line) IsStrategyPending() bool {
	return l.VatRateSource == VatRateSourceStrategyPending
}

// IsMargin reports whether the line falls under the margin scheme.
func (l *Line) IsMargin() bool {
	return l.CostPrice != nil
}

// Copy returns a deep copy of the line, children included.
func (l Line) Copy() Line {
	out := l
	out.UnitPriceEx = copyFloat(l.UnitPriceEx)
	out.UnitPriceInc = copyFloat(l.UnitPriceInc)
	out.VatAmount = copyFloat(l.VatAmount)
	out.VatRate = copyFloat(l.VatRate)
	out.CostPrice = copyFloat(l.CostPrice)
	out.LookupVatRate = copyFloat(l.LookupVatRate)
	out.DiscountAmountInc = copyFloat(l.DiscountAmountInc)
	out.DiscountVatAmount = copyFloat(l.DiscountVatAmount)
	out.OldUnitPrice = copyFloat(l.OldUnitPrice)
	if l.VatRateRange != nil {
		r := *l.VatRateRange
		out.VatRateRange = &r
	}
	if l.ParentIndex != nil {
		i := *l.ParentIndex
		out.ParentIndex = &i
	}
	if l.Children != nil {
		out.Children = make([]Line, 0, len(l.Children))
		for _, child := range l.Children {
			out.Children = append(out.Children, child.Copy())
		}
	}
	return out
}

// Invoice is the root document handed to the completion engine by a creator
// and, once completed, to the submission collaborator.
type Invoice struct {
	Customer Customer `json:"customer"`

	Number      string    `json:"number,omitempty"`
	IssueDate   time.Time `json:"issueDate"`
	Description string    `json:"description,omitempty"`

	// Concept marks the invoice as a draft needing human review.
	Concept bool    `json:"concept"`
	VatType VatType `json:"vatType,omitempty"`

	AmountEx  *float64 `json:"amountEx,omitempty"`
	AmountInc *float64 `json:"amountInc,omitempty"`
	VatAmount *float64 `json:"vatAmount,omitempty"`

	Currency string `json:"currency,omitempty"`
	// ConversionRate converts line amounts into the home currency when
	// ConvertCurrency is set; applied exactly once.
	ConversionRate  *float64 `json:"conversionRate,omitempty"`
	ConvertCurrency bool     `json:"convertCurrency,omitempty"`

	Lines []Line `json:"lines"`
}

// Copy returns a deep copy of the invoice.
func (inv Invoice) Copy() Invoice {
	out := inv
	out.AmountEx = copyFloat(inv.AmountEx)
	out.AmountInc = copyFloat(inv.AmountInc)
	out.VatAmount = copyFloat(inv.VatAmount)
	out.ConversionRate = copyFloat(inv.ConversionRate)
	out.Lines = make([]Line, 0, len(inv.Lines))
	for _, line := range inv.Lines {
		out.Lines = append(out.Lines, line.Copy())
	}
	return out
}

// SetConcept marks the invoice as concept.
func (inv *Invoice) SetConcept() {
	inv.Concept = true
}

// VatRateCandidate is one legally possible (rate, vat type) combination for
// the invoice's jurisdiction and date.
type VatRateCandidate struct {
	Rate    float64 `json:"rate"`
	VatType VatType `json:"vatType"`
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v
	return &f
}

// Float returns a pointer to v; shorthand for building optional fields.
func Float(v float64) *float64 {
	return &v
}
