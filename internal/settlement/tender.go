package settlement

import (
	"errors"

	"github.com/mchalloran/backend-pos/internal/money"
)

var (
	// ErrNegativeTender is returned for a negative tender amount. Refunds are
	// modelled as returned line items, not negative payments.
	ErrNegativeTender = errors.New("tender amount must not be negative")
	// ErrLayawayDesiredTotal is returned when a layaway tender carries a
	// negative desired total.
	ErrLayawayDesiredTotal = errors.New("layaway desired total must not be negative")
)

// TenderInput captures one payment applied toward a ticket.
type TenderInput struct {
	// Amount is the actual post-tax cash effect in cents.
	Amount money.Cents
	// DesiredTotal, when set on a layaway tender, is the post-tax amount the
	// customer intends the deposit to eventually cover. The stored amount is
	// back-computed from it.
	DesiredTotal *money.Cents
	// IsLayaway marks a deposit scheduled against an eventual taxed total.
	IsLayaway bool
}

// ResolveTender returns the amount to store for the tender. Layaway tenders
// with a desired total back-compute the pretax deposit as
// round(desired / (1 + rate)); applying the line-item tax formula to the
// result reproduces the desired total within one cent, which is accepted
// tolerance since rounding is not exactly invertible for every rate.
// Non-layaway tenders pass through unchanged.
func ResolveTender(in TenderInput, taxRateBps int64) (money.Cents, error) {
	if in.IsLayaway && in.DesiredTotal != nil {
		if *in.DesiredTotal < 0 {
			return 0, ErrLayawayDesiredTotal
		}
		return money.InverseScale(*in.DesiredTotal, taxRateBps), nil
	}
	if in.Amount < 0 {
		return 0, ErrNegativeTender
	}
	return in.Amount, nil
}

// ResolveTenders resolves every tender in order, failing on the first
// invalid one.
func ResolveTenders(tenders []TenderInput, taxRateBps int64) ([]money.Cents, error) {
	out := make([]money.Cents, 0, len(tenders))
	for _, in := range tenders {
		amount, err := ResolveTender(in, taxRateBps)
		if err != nil {
			return nil, err
		}
		out = append(out, amount)
	}
	return out, nil
}

// TotalPaid sums resolved tender amounts. The sum is a plain non-negative
// aggregate; tenders never carry sign.
func TotalPaid(amounts []money.Cents) money.Cents {
	var total money.Cents
	for _, a := range amounts {
		total = money.Add(total, a)
	}
	return total
}
