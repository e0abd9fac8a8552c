package completor

import (
	"context"
	"time"

	"github.com/smallbiznis/factuur/internal/config"
	"github.com/smallbiznis/factuur/internal/invoice/domain"
)

// digitalServicesCutover is when the EU moved consumer digital services to
// destination-country vat. Invoices dated before it stay under home vat.
var digitalServicesCutover = time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC)

// euCountries holds the current EU member states by ISO 3166-1 alpha-2 code.
var euCountries = map[string]struct{}{
	"AT": {}, "BE": {}, "BG": {}, "CY": {}, "CZ": {}, "DE": {}, "DK": {},
	"EE": {}, "ES": {}, "FI": {}, "FR": {}, "GR": {}, "HR": {}, "HU": {},
	"IE": {}, "IT": {}, "LT": {}, "LU": {}, "LV": {}, "MT": {}, "NL": {},
	"PL": {}, "PT": {}, "RO": {}, "SE": {}, "SI": {}, "SK": {},
}

type customerRegion int

const (
	regionHome customerRegion = iota
	regionEU
	regionWorld
)

func regionOf(countryCode, homeCountry string) customerRegion {
	if countryCode == homeCountry {
		return regionHome
	}
	if _, ok := euCountries[countryCode]; ok {
		return regionEU
	}
	return regionWorld
}

// lineSignals summarizes what the lines themselves already say about the tax
// regime before any classification runs.
type lineSignals struct {
	hasPositiveRate bool
	hasMargin       bool
}

func collectLineSignals(lines []domain.Line) lineSignals {
	var sig lineSignals
	for i := range lines {
		line := &lines[i]
		if line.IsMargin() {
			sig.hasMargin = true
		}
		if line.VatRate != nil && *line.VatRate > 0 {
			sig.hasPositiveRate = true
		}
		child := collectLineSignals(line.Children)
		sig.hasPositiveRate = sig.hasPositiveRate || child.hasPositiveRate
		sig.hasMargin = sig.hasMargin || child.hasMargin
	}
	return sig
}

// initPossibleVatTypes enumerates the tax regimes that could legally apply to
// this invoice, most likely first. An empty outcome falls back to a safe
// default pair and forces concept status.
func initPossibleVatTypes(inv *domain.Invoice, policy config.CompletionPolicy, msgs *domain.MessageCollector) []domain.VatType {
	sig := collectLineSignals(inv.Lines)
	region := regionOf(inv.Customer.CountryCode, policy.HomeCountry)
	business := inv.Customer.IsBusiness()

	var types []domain.VatType
	add := func(t domain.VatType) {
		for _, existing := range types {
			if existing == t {
				return
			}
		}
		types = append(types, t)
	}

	switch region {
	case regionHome:
		add(domain.VatTypeNational)
		if policy.MarginProducts && sig.hasMargin {
			add(domain.VatTypeMargin)
		}
		if policy.NationalReversed && business {
			add(domain.VatTypeNationalReversed)
		}
	case regionEU:
		if business {
			add(domain.VatTypeEuReversed)
			// Positive rates contradict a pure reverse charge; the order may
			// also contain home-taxed goods.
			if sig.hasPositiveRate {
				add(domain.VatTypeNational)
			}
		} else {
			if policy.ForeignVat ||
				(policy.SellsDigitalServices && !inv.IssueDate.Before(digitalServicesCutover)) {
				add(domain.VatTypeForeign)
			}
			add(domain.VatTypeNational)
			if policy.MarginProducts && sig.hasMargin {
				add(domain.VatTypeMargin)
			}
		}
	case regionWorld:
		add(domain.VatTypeRestOfWorld)
		if sig.hasPositiveRate {
			add(domain.VatTypeNational)
		}
	}

	if len(types) == 0 {
		types = []domain.VatType{domain.VatTypeNational, domain.VatTypeRestOfWorld}
		inv.SetConcept()
		msgs.AddWarning(domain.CodeNoCandidateVatTypes, "vattype",
			"no candidate vat types for country %s; falling back to %v",
			inv.Customer.CountryCode, types)
	}
	return types
}

// RateLookup fetches the legally valid vat rates of a country on a date.
type RateLookup interface {
	RatesFor(ctx context.Context, countryCode string, date time.Time) ([]float64, error)
}

// expandCandidates turns the candidate types into concrete (rate, type)
// pairs. Lookup failure is surfaced as a message and the affected type keeps
// an empty rate set; the run continues best-effort.
func expandCandidates(ctx context.Context, lookup RateLookup, inv *domain.Invoice, types []domain.VatType, policy config.CompletionPolicy, msgs *domain.MessageCollector) []domain.VatRateCandidate {
	var candidates []domain.VatRateCandidate
	for _, t := range types {
		switch t {
		case domain.VatTypeNational, domain.VatTypeMargin:
			rates, err := lookup.RatesFor(ctx, policy.HomeCountry, inv.IssueDate)
			if err != nil {
				msgs.AddWarning(domain.CodeRateLookupFailed, "vatrate",
					"rate lookup for %s failed: %v", policy.HomeCountry, err)
				continue
			}
			for _, rate := range rates {
				candidates = append(candidates, domain.VatRateCandidate{Rate: rate, VatType: t})
			}
		case domain.VatTypeNationalReversed, domain.VatTypeEuReversed:
			candidates = append(candidates, domain.VatRateCandidate{Rate: 0, VatType: t})
		case domain.VatTypeRestOfWorld:
			candidates = append(candidates, domain.VatRateCandidate{Rate: domain.VatRateExempt, VatType: t})
		case domain.VatTypeForeign:
			rates, err := lookup.RatesFor(ctx, inv.Customer.CountryCode, inv.IssueDate)
			if err != nil {
				msgs.AddWarning(domain.CodeRateLookupFailed, "vatrate",
					"rate lookup for %s failed: %v", inv.Customer.CountryCode, err)
				continue
			}
			for _, rate := range rates {
				candidates = append(candidates, domain.VatRateCandidate{Rate: rate, VatType: t})
			}
		}
	}
	return candidates
}

// completeVatType classifies the invoice's overall tax regime from the rates
// its correct lines ended up with.
func completeVatType(inv *domain.Invoice, types []domain.VatType, candidates []domain.VatRateCandidate, msgs *domain.MessageCollector) {
	var perLine [][]domain.VatType
	for i := range inv.Lines {
		line := &inv.Lines[i]
		if !line.IsCorrect() || line.VatRate == nil {
			continue
		}
		perLine = append(perLine, possibleTypesForRate(*line.VatRate, types, candidates))
	}

	union := unionTypes(perLine, types)

	switch {
	case len(union) == 0:
		inv.VatType = types[0]
		inv.SetConcept()
		msgs.AddWarning(domain.CodeVatTypeIndeterminable, "vattype",
			"vat type could not be determined from line rates; assuming %s", types[0])
	case len(union) == 1:
		inv.VatType = union[0]
	default:
		if common := intersectTypes(perLine, union); len(common) > 0 {
			inv.VatType = common[0]
			inv.SetConcept()
			msgs.AddWarning(domain.CodeVatTypeMaySplit, "vattype",
				"multiple vat types possible (%v); assuming %s, invoice may need splitting",
				union, common[0])
		} else {
			inv.VatType = union[0]
			inv.SetConcept()
			msgs.AddWarning(domain.CodeVatTypeMustSplit, "vattype",
				"lines mix incompatible vat regimes (%v); assuming %s, invoice must be split",
				union, union[0])
		}
	}
}

// possibleTypesForRate lists the candidate types consistent with one line
// rate. Positive rates match types sharing that exact rate; zero and exempt
// rates match the types that allow a zero seller-side rate.
func possibleTypesForRate(rate float64, types []domain.VatType, candidates []domain.VatRateCandidate) []domain.VatType {
	var out []domain.VatType
	seen := make(map[domain.VatType]struct{})
	add := func(t domain.VatType) {
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	if rate > 0 {
		for _, cand := range candidates {
			if cand.Rate == rate {
				add(cand.VatType)
			}
		}
		return out
	}
	for _, t := range types {
		if t.ZeroRateAllowed() {
			add(t)
		}
	}
	// An exempt line also fits an exempt-capable national invoice.
	for _, cand := range candidates {
		if cand.Rate <= 0 && cand.Rate == rate {
			add(cand.VatType)
		}
	}
	return out
}

// unionTypes merges the per-line sets, ordered by the candidate type order.
func unionTypes(perLine [][]domain.VatType, order []domain.VatType) []domain.VatType {
	present := make(map[domain.VatType]struct{})
	for _, set := range perLine {
		for _, t := range set {
			present[t] = struct{}{}
		}
	}
	var out []domain.VatType
	for _, t := range order {
		if _, ok := present[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// intersectTypes keeps the types every line agrees on, in candidate order.
func intersectTypes(perLine [][]domain.VatType, order []domain.VatType) []domain.VatType {
	var out []domain.VatType
	for _, t := range order {
		inAll := true
		for _, set := range perLine {
			found := false
			for _, lt := range set {
				if lt == t {
					found = true
					break
				}
			}
			if !found {
				inAll = false
				break
			}
		}
		if inAll {
			out = append(out, t)
		}
	}
	return out
}
