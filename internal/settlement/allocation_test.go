package settlement

import (
	"testing"

	"github.com/mchalloran/backend-pos/internal/money"
)

func TestAllocateTenderCoversFullAmount(t *testing.T) {
	items, err := EvaluateItems([]ItemInput{
		{CategoryTaxable: true, UnitPrice: 7000, Quantity: 1},
		{CategoryTaxable: false, UnitPrice: 3000, Quantity: 1},
	}, 825)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	allocs := AllocateTender(items, 5000, 825)
	if len(allocs) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(allocs))
	}
	var applied money.Cents
	for _, a := range allocs {
		if a.AppliedTotal != a.AppliedPretax+a.AppliedTax {
			t.Fatalf("allocation identity broken: %+v", a)
		}
		applied += a.AppliedTotal
	}
	if applied != 5000 {
		t.Fatalf("applied %d, want exactly the tender amount 5000", applied)
	}
}

func TestAllocateTenderSplitsTaxOnTaxedLines(t *testing.T) {
	items, _ := EvaluateItems([]ItemInput{
		{CategoryTaxable: true, UnitPrice: 10000, Quantity: 1},
	}, 825)
	allocs := AllocateTender(items, 10825, 825)
	if len(allocs) != 1 {
		t.Fatalf("expected 1 allocation, got %d", len(allocs))
	}
	if allocs[0].AppliedPretax != 10000 || allocs[0].AppliedTax != 825 {
		t.Fatalf("inverse tax split wrong: %+v", allocs[0])
	}
}

func TestAllocateTenderSkipsReturnsAndFreeLines(t *testing.T) {
	items, _ := EvaluateItems([]ItemInput{
		{CategoryTaxable: true, UnitPrice: 10000, Quantity: 1, IsReturn: true},
		{CategoryTaxable: true, UnitPrice: 0, Quantity: 1},
		{CategoryTaxable: false, UnitPrice: 4000, Quantity: 1},
	}, 825)
	allocs := AllocateTender(items, 4000, 825)
	if len(allocs) != 1 || allocs[0].ItemIndex != 2 {
		t.Fatalf("expected single allocation against index 2, got %+v", allocs)
	}
}

func TestAllocateTenderNoAllocatableLines(t *testing.T) {
	items, _ := EvaluateItems([]ItemInput{
		{CategoryTaxable: true, UnitPrice: 500, Quantity: 1, IsReturn: true},
	}, 825)
	if allocs := AllocateTender(items, 1000, 825); allocs != nil {
		t.Fatalf("expected no allocations, got %+v", allocs)
	}
	if allocs := AllocateTender(nil, 0, 825); allocs != nil {
		t.Fatalf("expected no allocations for zero amount, got %+v", allocs)
	}
}
