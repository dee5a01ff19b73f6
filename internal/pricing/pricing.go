// Package pricing contains the pure pricing engine: subtotal, discount, tax
// and quote computation. Functions here perform no I/O and hold no state;
// every result is re-derived from raw inputs with two-place rounding at the
// public boundary so repeated calls never accumulate rounding error.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/example/order-pipeline/internal/models"
)

// promoSchedule maps promo codes to fractional discount rates. Unknown codes
// map to a zero rate.
var promoSchedule = map[string]decimal.Decimal{
	"SAVE10":  decimal.NewFromFloat(0.10),
	"SAVE20":  decimal.NewFromFloat(0.20),
	"WELCOME": decimal.NewFromFloat(0.15),
}

// taxRate is the flat rate applied by the volume pricing policy.
var taxRate = decimal.NewFromFloat(0.08)

// Bulk discount brackets, evaluated highest first.
var bulkBrackets = []struct {
	threshold decimal.Decimal
	rate      decimal.Decimal
}{
	{decimal.NewFromInt(1000), decimal.NewFromFloat(0.15)},
	{decimal.NewFromInt(500), decimal.NewFromFloat(0.10)},
	{decimal.NewFromInt(100), decimal.NewFromFloat(0.05)},
}

// Subtotal sums unit price times quantity across all items, rounded to two
// decimal places.
func Subtotal(items []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total.Round(2)
}

// PromoRate returns the fractional discount rate for the supplied promo code,
// or zero when the code is unknown or empty.
func PromoRate(promoCode string) decimal.Decimal {
	if rate, ok := promoSchedule[promoCode]; ok {
		return rate
	}
	return decimal.Zero
}

// ApplyDiscount applies the promo schedule to a subtotal and returns the
// final total and discount amount, both rounded to two decimal places.
func ApplyDiscount(subtotal decimal.Decimal, promoCode string) (finalTotal, discountAmount decimal.Decimal) {
	discountAmount = subtotal.Mul(PromoRate(promoCode)).Round(2)
	finalTotal = subtotal.Sub(discountAmount).Round(2)
	return finalTotal, discountAmount
}

// BulkDiscount returns the discount amount for a subtotal based on its
// volume bracket: over 1000 takes 15%, over 500 takes 10%, over 100 takes
// 5%, otherwise zero.
func BulkDiscount(subtotal decimal.Decimal) decimal.Decimal {
	for _, b := range bulkBrackets {
		if subtotal.GreaterThan(b.threshold) {
			return subtotal.Mul(b.rate).Round(2)
		}
	}
	return decimal.Zero
}

// Tax returns the flat 8% tax on the supplied amount, rounded to two decimal
// places.
func Tax(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(taxRate).Round(2)
}

// Quote is the full pricing outcome for an order. Tax is zero under the
// promo policy; under the volume policy it is folded into the final total.
type Quote struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	Tax            decimal.Decimal
	FinalTotal     decimal.Decimal
}

// Policy computes a deterministic Quote for a set of items. The promo-code
// schedule and the bulk brackets are distinct policies; exactly one applies
// to any given order, never both.
type Policy interface {
	Quote(items []models.OrderItem, promoCode string) Quote
}

// Policy mode names accepted by NewPolicy.
const (
	PolicyPromo  = "promo"
	PolicyVolume = "volume"
)

// NewPolicy returns the pricing policy for the supplied mode.
func NewPolicy(mode string) (Policy, error) {
	switch mode {
	case PolicyPromo:
		return promoPolicy{}, nil
	case PolicyVolume:
		return volumePolicy{}, nil
	default:
		return nil, fmt.Errorf("pricing: unknown policy %q", mode)
	}
}

// promoPolicy discounts by promo code and applies no tax.
type promoPolicy struct{}

func (promoPolicy) Quote(items []models.OrderItem, promoCode string) Quote {
	subtotal := Subtotal(items)
	finalTotal, discount := ApplyDiscount(subtotal, promoCode)
	return Quote{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		Tax:            decimal.Zero,
		FinalTotal:     finalTotal,
	}
}

// volumePolicy discounts by subtotal bracket and adds flat tax. The promo
// code is ignored on this path.
type volumePolicy struct{}

func (volumePolicy) Quote(items []models.OrderItem, _ string) Quote {
	subtotal := Subtotal(items)
	discount := BulkDiscount(subtotal)
	discounted := subtotal.Sub(discount).Round(2)
	tax := Tax(discounted)
	return Quote{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		Tax:            tax,
		FinalTotal:     discounted.Add(tax).Round(2),
	}
}
