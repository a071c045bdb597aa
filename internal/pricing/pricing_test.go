package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestCompute_Scenarios(t *testing.T) {
	calc := New(30)

	cases := []struct {
		name         string
		subtotal     string
		method       string
		pct          int
		wantShipping string
		wantDiscount string
		wantTotal    string
	}{
		{"cod no coupon", "500", MethodCOD, 0, "30", "0", "530"},
		{"cod with 10pct", "500", MethodCOD, 10, "30", "50", "480"},
		{"online with 10pct", "500", MethodOnline, 10, "0", "50", "450"},
		{"online no coupon", "500", MethodOnline, 0, "0", "0", "500"},
		{"empty cart cod", "0", MethodCOD, 0, "30", "0", "30"},
		{"full discount", "250", MethodOnline, 100, "0", "250", "0"},
		{"discount floors", "999", MethodOnline, 7, "0", "69", "930"}, // 69.93 -> 69
		{"fractional subtotal floors", "199.90", MethodCOD, 15, "30", "29", "200.90"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := calc.Compute(d(tc.subtotal), tc.method, tc.pct)
			if !got.ShippingCharge.Equal(d(tc.wantShipping)) {
				t.Fatalf("shipping=%s, want %s", got.ShippingCharge, tc.wantShipping)
			}
			if !got.DiscountAmount.Equal(d(tc.wantDiscount)) {
				t.Fatalf("discount=%s, want %s", got.DiscountAmount, tc.wantDiscount)
			}
			if !got.FinalTotal.Equal(d(tc.wantTotal)) {
				t.Fatalf("total=%s, want %s", got.FinalTotal, tc.wantTotal)
			}
		})
	}
}

// Total never drops below the shipping charge for any percentage in [0,100].
func TestCompute_NeverNegative(t *testing.T) {
	calc := New(30)
	subtotals := []string{"0", "1", "29", "500", "12345.67"}
	for _, s := range subtotals {
		for pct := 0; pct <= 100; pct += 5 {
			got := calc.Compute(d(s), MethodCOD, pct)
			if got.FinalTotal.LessThan(got.ShippingCharge) {
				t.Fatalf("subtotal=%s pct=%d: total %s < shipping %s", s, pct, got.FinalTotal, got.ShippingCharge)
			}
			if got.FinalTotal.IsNegative() {
				t.Fatalf("subtotal=%s pct=%d: negative total %s", s, pct, got.FinalTotal)
			}
		}
	}
}

func TestCompute_Idempotent(t *testing.T) {
	calc := New(30)
	a := calc.Compute(d("500"), MethodCOD, 10)
	b := calc.Compute(d("500"), MethodCOD, 10)
	if !a.FinalTotal.Equal(b.FinalTotal) || !a.DiscountAmount.Equal(b.DiscountAmount) {
		t.Fatalf("not idempotent: %+v vs %+v", a, b)
	}
}

// Removing a coupon restores the no-coupon total exactly.
func TestCompute_ApplyRemoveRestoresTotal(t *testing.T) {
	calc := New(30)
	before := calc.Compute(d("500"), MethodCOD, 0)
	_ = calc.Compute(d("500"), MethodCOD, 10)
	after := calc.Compute(d("500"), MethodCOD, 0)
	if !before.FinalTotal.Equal(after.FinalTotal) {
		t.Fatalf("total drifted: %s vs %s", before.FinalTotal, after.FinalTotal)
	}
}

// Switching ONLINE→COD adds exactly the flat fee, and back removes it.
func TestCompute_MethodSwitchIsExactFee(t *testing.T) {
	calc := New(30)
	online := calc.Compute(d("500"), MethodOnline, 10)
	cod := calc.Compute(d("500"), MethodCOD, 10)
	if !cod.FinalTotal.Sub(online.FinalTotal).Equal(d("30")) {
		t.Fatalf("COD delta=%s, want 30", cod.FinalTotal.Sub(online.FinalTotal))
	}
	back := calc.Compute(d("500"), MethodOnline, 10)
	if !back.FinalTotal.Equal(online.FinalTotal) {
		t.Fatalf("switch back drifted: %s vs %s", back.FinalTotal, online.FinalTotal)
	}
}

func TestValidMethod(t *testing.T) {
	if !ValidMethod("COD") || !ValidMethod("ONLINE") {
		t.Fatal("known methods rejected")
	}
	if ValidMethod("cod") || ValidMethod("") || ValidMethod("CARD") {
		t.Fatal("unknown method accepted")
	}
}
