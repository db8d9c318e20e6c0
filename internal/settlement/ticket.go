package settlement

import "github.com/mchalloran/backend-pos/internal/money"

// Summary aggregates the ticket-level monetary picture. BalanceOwed may go
// negative; the excess is change due and does not keep the ticket open.
type Summary struct {
	Subtotal    money.Cents `json:"subtotal"`
	TaxTotal    money.Cents `json:"tax_total"`
	Total       money.Cents `json:"total"`
	TotalPaid   money.Cents `json:"total_paid"`
	BalanceOwed money.Cents `json:"balance_owed"`
	IsOpen      bool        `json:"is_open"`
}

// ChangeDue reports the overpayment owed back to the customer, zero when the
// ticket is exactly settled or underpaid.
func (s Summary) ChangeDue() money.Cents {
	if s.BalanceOwed < 0 {
		return -s.BalanceOwed
	}
	return 0
}

// Settle combines evaluated line items and resolved tender amounts into the
// ticket summary. Summation is order independent, and recomputing from the
// same snapshot always yields the same result; there is no incremental
// counter to drift.
func Settle(items []ItemTotals, tenderAmounts []money.Cents) Summary {
	var s Summary
	for _, it := range items {
		s.Subtotal = money.Add(s.Subtotal, it.Pretax)
		s.TaxTotal = money.Add(s.TaxTotal, it.Tax)
	}
	s.Total = money.Add(s.Subtotal, s.TaxTotal)
	s.TotalPaid = TotalPaid(tenderAmounts)
	s.BalanceOwed = s.Total - s.TotalPaid
	// An empty ticket owes nothing, so it can never be open no matter what
	// tenders were recorded against it.
	s.IsOpen = len(items) > 0 && s.BalanceOwed > 0
	return s
}

// Compute evaluates a full draft in one pass: per-line figures, resolved
// tender amounts, and the ticket summary. It is the single entry point the
// posting service and the live-quote endpoint share.
func Compute(items []ItemInput, tenders []TenderInput, taxRateBps int64) (Summary, []ItemTotals, []money.Cents, error) {
	itemTotals, err := EvaluateItems(items, taxRateBps)
	if err != nil {
		return Summary{}, nil, nil, err
	}
	amounts, err := ResolveTenders(tenders, taxRateBps)
	if err != nil {
		return Summary{}, nil, nil, err
	}
	return Settle(itemTotals, amounts), itemTotals, amounts, nil
}
