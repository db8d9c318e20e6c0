package settlement

import (
	"errors"
	"testing"

	"github.com/mchalloran/backend-pos/internal/money"
)

func centsPtr(v money.Cents) *money.Cents { return &v }

func TestResolveTenderPassThrough(t *testing.T) {
	amount, err := ResolveTender(TenderInput{Amount: 5000}, 825)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if amount != 5000 {
		t.Fatalf("amount = %d, want 5000", amount)
	}
}

func TestResolveTenderLayawayBackComputes(t *testing.T) {
	amount, err := ResolveTender(TenderInput{IsLayaway: true, DesiredTotal: centsPtr(5000)}, 825)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if amount != 4619 {
		t.Fatalf("amount = %d, want 4619", amount)
	}
}

func TestResolveTenderLayawayWithoutDesiredTotal(t *testing.T) {
	// A layaway tender with no desired total behaves like a plain deposit.
	amount, err := ResolveTender(TenderInput{IsLayaway: true, Amount: 2500}, 825)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if amount != 2500 {
		t.Fatalf("amount = %d, want 2500", amount)
	}
}

func TestResolveTenderRejectsNegative(t *testing.T) {
	if _, err := ResolveTender(TenderInput{Amount: -1}, 825); !errors.Is(err, ErrNegativeTender) {
		t.Fatalf("got %v, want ErrNegativeTender", err)
	}
	if _, err := ResolveTender(TenderInput{IsLayaway: true, DesiredTotal: centsPtr(-100)}, 825); !errors.Is(err, ErrLayawayDesiredTotal) {
		t.Fatalf("got %v, want ErrLayawayDesiredTotal", err)
	}
}

func TestLayawayRoundTripWithinOneCent(t *testing.T) {
	rates := []int64{0, 100, 500, 825, 1250, 2000}
	desireds := []money.Cents{1, 99, 5000, 10825, 99999}
	for _, rate := range rates {
		for _, desired := range desireds {
			amount, err := ResolveTender(TenderInput{IsLayaway: true, DesiredTotal: centsPtr(desired)}, rate)
			if err != nil {
				t.Fatalf("resolve rate=%d desired=%d: %v", rate, desired, err)
			}
			// Forward tax application must land within one cent of the
			// desired post-tax total.
			back := amount + money.Scale(amount, rate)
			diff := back - desired
			if diff < -1 || diff > 1 {
				t.Fatalf("rate=%d desired=%d amount=%d back=%d", rate, desired, amount, back)
			}
		}
	}
}

func TestTotalPaid(t *testing.T) {
	if got := TotalPaid([]money.Cents{5000, 4619, 0}); got != 9619 {
		t.Fatalf("TotalPaid = %d, want 9619", got)
	}
	if got := TotalPaid(nil); got != 0 {
		t.Fatalf("TotalPaid(nil) = %d, want 0", got)
	}
}
