package settlement

import (
	"errors"

	"github.com/mchalloran/backend-pos/internal/money"
)

var (
	// ErrQuantityInvalid is returned when a line item quantity is below one.
	ErrQuantityInvalid = errors.New("line item quantity must be at least 1")
	// ErrNegativeUnitPrice is returned for a negative unit price. Returns are
	// expressed with the return flag, never with negative prices.
	ErrNegativeUnitPrice = errors.New("line item unit price must not be negative")
)

// ItemInput captures one sale or return line as entered at the register.
type ItemInput struct {
	// CategoryTaxable is the taxability default of the line's sales category.
	CategoryTaxable bool
	// Taxable overrides the category default when set.
	Taxable *bool
	// UnitPrice is the pretax sale price in cents as entered. Zero is a valid
	// free item.
	UnitPrice money.Cents
	// Quantity must be at least 1.
	Quantity int32
	// IsReturn flips the sign of every derived figure.
	IsReturn bool
}

// ItemTotals holds the derived figures for a single line item. The invariant
// Total == Pretax + Tax always holds, and all three share the line's sign.
type ItemTotals struct {
	Pretax money.Cents
	Tax    money.Cents
	Total  money.Cents
	// Taxed records whether tax applied, which allocation needs to split
	// applied amounts back into pretax and tax portions.
	Taxed bool
}

// EffectiveTaxable resolves the line's taxability: the explicit override when
// present, otherwise the category default.
func (in ItemInput) EffectiveTaxable() bool {
	if in.Taxable != nil {
		return *in.Taxable
	}
	return in.CategoryTaxable
}

// EvaluateItem computes the derived figures for one line item at the given
// tax rate in basis points. A return is the exact mirror image of the
// equivalent sale, not a separate code path.
func EvaluateItem(in ItemInput, taxRateBps int64) (ItemTotals, error) {
	if in.Quantity < 1 {
		return ItemTotals{}, ErrQuantityInvalid
	}
	if in.UnitPrice < 0 {
		return ItemTotals{}, ErrNegativeUnitPrice
	}
	pretax := in.UnitPrice * money.Cents(in.Quantity)
	taxed := in.EffectiveTaxable()
	var tax money.Cents
	if taxed {
		tax = money.Scale(pretax, taxRateBps)
	}
	out := ItemTotals{
		Pretax: pretax,
		Tax:    tax,
		Total:  money.Add(pretax, tax),
		Taxed:  taxed,
	}
	if in.IsReturn {
		out.Pretax = money.Negate(out.Pretax)
		out.Tax = money.Negate(out.Tax)
		out.Total = money.Negate(out.Total)
	}
	return out, nil
}

// EvaluateItems evaluates every line in order. It fails on the first invalid
// line so callers can reject the whole draft before anything is persisted.
func EvaluateItems(items []ItemInput, taxRateBps int64) ([]ItemTotals, error) {
	out := make([]ItemTotals, 0, len(items))
	for _, in := range items {
		totals, err := EvaluateItem(in, taxRateBps)
		if err != nil {
			return nil, err
		}
		out = append(out, totals)
	}
	return out, nil
}
