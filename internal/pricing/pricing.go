// Package pricing computes the payable total for a checkout: cart subtotal,
// plus a flat cash-on-delivery surcharge, minus a percentage coupon discount.
package pricing

import "github.com/shopspring/decimal"

const (
	MethodCOD    = "COD"
	MethodOnline = "ONLINE"
)

// DefaultCODFee is the flat surcharge applied to cash-on-delivery orders
// when no override is configured.
const DefaultCODFee = 30

// Totals is the pricing breakdown for a checkout.
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	ShippingCharge decimal.Decimal `json:"shippingCharge"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	FinalTotal     decimal.Decimal `json:"finalTotal"`
}

// Calculator holds the deployment's COD fee. The zero value is not usable;
// construct with New.
type Calculator struct {
	codFee decimal.Decimal
}

func New(codFee int64) Calculator {
	if codFee < 0 {
		codFee = 0
	}
	return Calculator{codFee: decimal.NewFromInt(codFee)}
}

// Compute derives the full breakdown. discountPct is the applied coupon's
// percentage, 0 when no coupon is applied. The discount is floored so a
// percentage ≤ 100 can never push the total below the shipping charge.
func (c Calculator) Compute(subtotal decimal.Decimal, method string, discountPct int) Totals {
	shipping := decimal.Zero
	if method == MethodCOD {
		shipping = c.codFee
	}
	discount := decimal.Zero
	if discountPct > 0 {
		discount = subtotal.
			Mul(decimal.NewFromInt(int64(discountPct))).
			Div(decimal.NewFromInt(100)).
			Floor()
	}
	return Totals{
		Subtotal:       subtotal,
		ShippingCharge: shipping,
		DiscountAmount: discount,
		FinalTotal:     subtotal.Add(shipping).Sub(discount),
	}
}

// ValidMethod reports whether m is a recognized payment method.
func ValidMethod(m string) bool {
	return m == MethodCOD || m == MethodOnline
}
