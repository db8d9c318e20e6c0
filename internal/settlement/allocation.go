package settlement

import "github.com/mchalloran/backend-pos/internal/money"

// Allocation records how much of one tender was applied against one line
// item, split into pretax and tax portions for category-level receipt
// reporting. AppliedTotal == AppliedPretax + AppliedTax.
type Allocation struct {
	ItemIndex     int
	AppliedPretax money.Cents
	AppliedTax    money.Cents
	AppliedTotal  money.Cents
}

// AllocateTender spreads a tender amount across positive line items in
// proportion to their pretax value. The last allocatable line absorbs the
// rounding remainder so the applied totals always sum exactly to the tender
// amount. Taxed lines split each applied amount back into pretax and tax via
// the inverse of the tax formula.
func AllocateTender(items []ItemTotals, amount money.Cents, taxRateBps int64) []Allocation {
	if amount <= 0 {
		return nil
	}
	indexes := make([]int, 0, len(items))
	var weight money.Cents
	for i, it := range items {
		if it.Pretax <= 0 {
			continue
		}
		indexes = append(indexes, i)
		weight += it.Pretax
	}
	if len(indexes) == 0 || weight <= 0 {
		return nil
	}

	out := make([]Allocation, 0, len(indexes))
	remaining := amount
	for n, i := range indexes {
		it := items[i]
		var applied money.Cents
		if n == len(indexes)-1 {
			applied = remaining
		} else {
			applied = (amount*it.Pretax + weight/2) / weight
		}
		remaining -= applied

		alloc := Allocation{ItemIndex: i, AppliedTotal: applied}
		if it.Taxed && taxRateBps > 0 {
			alloc.AppliedPretax = money.InverseScale(applied, taxRateBps)
			alloc.AppliedTax = applied - alloc.AppliedPretax
		} else {
			alloc.AppliedPretax = applied
		}
		out = append(out, alloc)
	}
	return out
}
