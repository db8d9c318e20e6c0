package settlement

import (
	"errors"
	"testing"
)

func boolPtr(v bool) *bool { return &v }

func TestEvaluateItemTaxableSale(t *testing.T) {
	got, err := EvaluateItem(ItemInput{CategoryTaxable: true, UnitPrice: 10000, Quantity: 1}, 825)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got.Pretax != 10000 || got.Tax != 825 || got.Total != 10825 {
		t.Fatalf("got %+v, want pretax=10000 tax=825 total=10825", got)
	}
}

func TestEvaluateItemReturnMirrorsSale(t *testing.T) {
	sale, err := EvaluateItem(ItemInput{CategoryTaxable: true, UnitPrice: 10000, Quantity: 1}, 825)
	if err != nil {
		t.Fatalf("evaluate sale: %v", err)
	}
	ret, err := EvaluateItem(ItemInput{CategoryTaxable: true, UnitPrice: 10000, Quantity: 1, IsReturn: true}, 825)
	if err != nil {
		t.Fatalf("evaluate return: %v", err)
	}
	if ret.Pretax != -sale.Pretax || ret.Tax != -sale.Tax || ret.Total != -sale.Total {
		t.Fatalf("return %+v is not the mirror of sale %+v", ret, sale)
	}
	if ret.Pretax != -10000 || ret.Tax != -825 || ret.Total != -10825 {
		t.Fatalf("got %+v, want pretax=-10000 tax=-825 total=-10825", ret)
	}
}

func TestEvaluateItemOverrideBeatsCategoryDefault(t *testing.T) {
	got, err := EvaluateItem(ItemInput{CategoryTaxable: true, Taxable: boolPtr(false), UnitPrice: 5000, Quantity: 2}, 825)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got.Tax != 0 || got.Total != 10000 || got.Taxed {
		t.Fatalf("override to non-taxable ignored: %+v", got)
	}

	got, err = EvaluateItem(ItemInput{CategoryTaxable: false, Taxable: boolPtr(true), UnitPrice: 5000, Quantity: 2}, 825)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got.Tax != 825 || !got.Taxed {
		t.Fatalf("override to taxable ignored: %+v", got)
	}
}

func TestEvaluateItemQuantityMultiplies(t *testing.T) {
	got, err := EvaluateItem(ItemInput{CategoryTaxable: true, UnitPrice: 333, Quantity: 3}, 825)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got.Pretax != 999 {
		t.Fatalf("pretax = %d, want 999", got.Pretax)
	}
	if got.Total != got.Pretax+got.Tax {
		t.Fatalf("total %d != pretax %d + tax %d", got.Total, got.Pretax, got.Tax)
	}
}

func TestEvaluateItemFreeItem(t *testing.T) {
	got, err := EvaluateItem(ItemInput{CategoryTaxable: true, UnitPrice: 0, Quantity: 5}, 825)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got.Pretax != 0 || got.Tax != 0 || got.Total != 0 {
		t.Fatalf("free item produced nonzero totals: %+v", got)
	}
}

func TestEvaluateItemValidation(t *testing.T) {
	if _, err := EvaluateItem(ItemInput{UnitPrice: 100, Quantity: 0}, 825); !errors.Is(err, ErrQuantityInvalid) {
		t.Fatalf("quantity 0: got %v, want ErrQuantityInvalid", err)
	}
	if _, err := EvaluateItem(ItemInput{UnitPrice: -1, Quantity: 1}, 825); !errors.Is(err, ErrNegativeUnitPrice) {
		t.Fatalf("negative price: got %v, want ErrNegativeUnitPrice", err)
	}
}
